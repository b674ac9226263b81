package file

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/custodia-labs/harvester/internal/core/ports/driven"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindNumber
	kindBool
	kindDuration
)

// keyKinds lists every key LoadSettings reads and how its value is parsed.
var keyKinds = map[string]valueKind{
	KeyToken:             kindString,
	KeyBaseURL:           kindString,
	KeyGraphURL:          kindString,
	KeyRequestsPerSecond: kindNumber,
	KeyMinRateBuffer:     kindInt,

	KeyRepositoryCap:       kindInt,
	KeyOrganizationCap:     kindInt,
	KeyUserCap:             kindInt,
	KeyStaleAfter:          kindDuration,
	KeyChildRepositoryCap:  kindInt,
	KeyGraphPageSize:       kindInt,
	KeyRequestDelay:        kindDuration,
	KeyMaxRetries:          kindInt,
	KeyRetryBackoff:        kindDuration,
	KeyFetchReadmes:        kindBool,
	KeyFetchProfileReadmes: kindBool,

	KeyScheduleInterval: kindDuration,
	KeyScheduleCheck:    kindString,

	KeyDataDir:      kindString,
	KeyLogRetention: kindDuration,
}

// Keys returns every supported config key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(keyKinds))
	for k := range keyKinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Editor reads and writes single config keys. A value is parsed by its
// key's type and the resulting settings must validate before it is written.
type Editor struct {
	store  driven.ConfigStore
	getenv func(string) string
}

// NewEditor creates an editor over store. getenv is usually os.Getenv.
func NewEditor(store driven.ConfigStore, getenv func(string) string) *Editor {
	return &Editor{store: store, getenv: getenv}
}

// Get returns the value stored for key. ok is false when the key is unset
// and its default applies.
func (e *Editor) Get(key string) (value string, ok bool, err error) {
	if _, known := keyKinds[key]; !known {
		return "", false, unknownKey(key)
	}
	val, ok := e.store.Get(key)
	if !ok {
		return "", false, nil
	}
	if s, isString := val.(string); isString {
		return s, true, nil
	}
	return fmt.Sprint(val), true, nil
}

// Set parses raw for key, validates the result and persists it.
func (e *Editor) Set(key, raw string) error {
	kind, known := keyKinds[key]
	if !known {
		return unknownKey(key)
	}
	value, err := parseValue(kind, raw)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
	}
	if _, err := LoadSettings(overlay{ConfigStore: e.store, key: key, value: value}, e.getenv); err != nil {
		return err
	}
	if err := e.store.Set(key, value); err != nil {
		return fmt.Errorf("writing %s: %w", e.store.Path(), err)
	}
	return nil
}

// Path returns the config file path.
func (e *Editor) Path() string {
	return e.store.Path()
}

func unknownKey(key string) error {
	return fmt.Errorf("%w: unknown key %q", ErrInvalidConfig, key)
}

func parseValue(kind valueKind, raw string) (any, error) {
	switch kind {
	case kindInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("expected integer, got %q", raw)
		}
		return n, nil
	case kindNumber:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("expected number, got %q", raw)
		}
		return f, nil
	case kindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("expected boolean, got %q", raw)
		}
		return b, nil
	case kindDuration:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("expected duration, got %q", raw)
		}
		return d.String(), nil
	default:
		return raw, nil
	}
}

// overlay shows one pending value on top of a store.
type overlay struct {
	driven.ConfigStore
	key   string
	value any
}

func (o overlay) Get(key string) (any, bool) {
	if key == o.key {
		return o.value, true
	}
	return o.ConfigStore.Get(key)
}
