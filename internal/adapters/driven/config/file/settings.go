package file

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
)

// Environment variables that override the config file.
const (
	EnvToken   = "GITHUB_TOKEN"
	EnvDataDir = "HARVESTER_DATA_DIR"
)

// Config keys.
const (
	KeyToken             = "github.token"
	KeyBaseURL           = "github.base_url"
	KeyGraphURL          = "github.graph_url"
	KeyRequestsPerSecond = "github.requests_per_second"
	KeyMinRateBuffer     = "github.min_rate_buffer"

	KeyRepositoryCap       = "harvest.repository_cap"
	KeyOrganizationCap     = "harvest.organization_cap"
	KeyUserCap             = "harvest.user_cap"
	KeyStaleAfter          = "harvest.stale_after"
	KeyChildRepositoryCap  = "harvest.child_repository_cap"
	KeyGraphPageSize       = "harvest.graph_page_size"
	KeyRequestDelay        = "harvest.request_delay"
	KeyMaxRetries          = "harvest.max_retries"
	KeyRetryBackoff        = "harvest.retry_backoff"
	KeyFetchReadmes        = "harvest.fetch_readmes"
	KeyFetchProfileReadmes = "harvest.fetch_profile_readmes"

	KeyScheduleInterval = "schedule.interval"
	KeyScheduleCheck    = "schedule.check"

	KeyDataDir      = "storage.data_dir"
	KeyLogRetention = "logs.retention"
)

// ErrInvalidConfig is returned when the configuration cannot be used.
var ErrInvalidConfig = errors.New("invalid configuration")

// GitHub holds the API client settings.
type GitHub struct {
	Token             string  `config:"token"`
	BaseURL           string  `config:"base_url" validate:"omitempty,url"`
	GraphURL          string  `config:"graph_url" validate:"omitempty,url"`
	RequestsPerSecond float64 `config:"requests_per_second" validate:"gte=0"`
	MinRateBuffer     int     `config:"min_rate_buffer" validate:"gte=0"`
}

// Settings is the resolved configuration: file values over defaults,
// environment over file.
type Settings struct {
	GitHub   GitHub                `config:"github"`
	Harvest  domain.HarvestConfig  `config:"harvest"`
	Schedule domain.ScheduleConfig `config:"schedule"`

	// DataDir holds the database. Empty means the store default.
	DataDir string `config:"storage.data_dir"`

	// LogRetention is how long log entries are kept by "logs prune".
	// Zero means the built-in default.
	LogRetention time.Duration `config:"logs.retention" validate:"gte=0"`
}

// LoadEnv reads .env files into the environment. Missing files are ignored
// and variables already set are not overridden.
func LoadEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		_ = godotenv.Load(path)
	}
}

// LoadSettings resolves settings from the store and environment.
// getenv is usually os.Getenv.
func LoadSettings(store driven.ConfigStore, getenv func(string) string) (*Settings, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	r := &reader{store: store}
	harvest := domain.DefaultHarvestConfig()
	schedule := domain.DefaultScheduleConfig()

	s := &Settings{
		GitHub: GitHub{
			Token:             r.str(KeyToken, ""),
			BaseURL:           r.str(KeyBaseURL, ""),
			GraphURL:          r.str(KeyGraphURL, ""),
			RequestsPerSecond: r.number(KeyRequestsPerSecond, 0),
			MinRateBuffer:     r.integer(KeyMinRateBuffer, 0),
		},
		Harvest: domain.HarvestConfig{
			RepositoryCap:       r.integer(KeyRepositoryCap, harvest.RepositoryCap),
			OrganizationCap:     r.integer(KeyOrganizationCap, harvest.OrganizationCap),
			UserCap:             r.integer(KeyUserCap, harvest.UserCap),
			StaleAfter:          r.duration(KeyStaleAfter, harvest.StaleAfter),
			ChildRepositoryCap:  r.integer(KeyChildRepositoryCap, harvest.ChildRepositoryCap),
			GraphPageSize:       r.integer(KeyGraphPageSize, harvest.GraphPageSize),
			RequestDelay:        r.duration(KeyRequestDelay, harvest.RequestDelay),
			MaxRetries:          r.integer(KeyMaxRetries, harvest.MaxRetries),
			RetryBackoff:        r.duration(KeyRetryBackoff, harvest.RetryBackoff),
			FetchReadmes:        r.boolean(KeyFetchReadmes, harvest.FetchReadmes),
			FetchProfileReadmes: r.boolean(KeyFetchProfileReadmes, harvest.FetchProfileReadmes),
		},
		Schedule: domain.ScheduleConfig{
			Interval:  r.duration(KeyScheduleInterval, schedule.Interval),
			CheckSpec: r.str(KeyScheduleCheck, schedule.CheckSpec),
		},
		DataDir:      r.str(KeyDataDir, ""),
		LogRetention: r.duration(KeyLogRetention, 0),
	}
	if len(r.errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(r.errs...))
	}

	if token := getenv(EnvToken); token != "" {
		s.GitHub.Token = token
	}
	if dir := getenv(EnvDataDir); dir != "" {
		s.DataDir = dir
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks every setting and reports all problems at once.
func (s *Settings) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("config"), ",", 2)[0]
		if name == "" {
			return fld.Name
		}
		return name
	})
	v.RegisterStructValidation(validateHarvest, domain.HarvestConfig{})
	v.RegisterStructValidation(validateSchedule, domain.ScheduleConfig{})
	return v
}

func validateHarvest(sl validator.StructLevel) {
	c := sl.Current().Interface().(domain.HarvestConfig)
	atLeast := func(value int, field, name string, floor int) {
		if value < floor {
			sl.ReportError(value, field, name, "gte", fmt.Sprint(floor))
		}
	}
	atLeast(c.RepositoryCap, "repository_cap", "RepositoryCap", 0)
	atLeast(c.OrganizationCap, "organization_cap", "OrganizationCap", 0)
	atLeast(c.UserCap, "user_cap", "UserCap", 0)
	atLeast(c.ChildRepositoryCap, "child_repository_cap", "ChildRepositoryCap", 0)
	atLeast(c.GraphPageSize, "graph_page_size", "GraphPageSize", 1)
	atLeast(c.MaxRetries, "max_retries", "MaxRetries", 0)
	// The graph API rejects pages larger than 100 nodes.
	if c.GraphPageSize > 100 {
		sl.ReportError(c.GraphPageSize, "graph_page_size", "GraphPageSize", "lte", "100")
	}
	if c.StaleAfter <= 0 {
		sl.ReportError(c.StaleAfter, "stale_after", "StaleAfter", "gt", "0")
	}
	if c.RequestDelay < 0 {
		sl.ReportError(c.RequestDelay, "request_delay", "RequestDelay", "gte", "0")
	}
	if c.RetryBackoff < 0 {
		sl.ReportError(c.RetryBackoff, "retry_backoff", "RetryBackoff", "gte", "0")
	}
}

func validateSchedule(sl validator.StructLevel) {
	c := sl.Current().Interface().(domain.ScheduleConfig)
	if c.Interval <= 0 {
		sl.ReportError(c.Interval, "interval", "Interval", "gt", "0")
	}
	if _, err := cron.ParseStandard(c.CheckSpec); err != nil {
		sl.ReportError(c.CheckSpec, "check", "CheckSpec", "cron", "")
	}
}

// describe turns a field error into "harvest.graph_page_size must be at most 100".
func describe(fe validator.FieldError) string {
	key := strings.TrimPrefix(fe.Namespace(), "Settings.")
	switch fe.Tag() {
	case "gte":
		return fmt.Sprintf("%s must be at least %s", key, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", key, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", key, fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", key)
	case "cron":
		return fmt.Sprintf("%s must be a cron expression", key)
	default:
		return fmt.Sprintf("%s is invalid", key)
	}
}

// reader reads typed values with defaults and collects type mismatches.
type reader struct {
	store driven.ConfigStore
	errs  []error
}

func (r *reader) mismatch(key, want string, got any) {
	r.errs = append(r.errs, fmt.Errorf("%s: expected %s, got %T", key, want, got))
}

func (r *reader) str(key, def string) string {
	val, ok := r.store.Get(key)
	if !ok {
		return def
	}
	s, ok := val.(string)
	if !ok {
		r.mismatch(key, "string", val)
		return def
	}
	return s
}

func (r *reader) integer(key string, def int) int {
	val, ok := r.store.Get(key)
	if !ok {
		return def
	}
	switch v := val.(type) {
	case int64:
		return int(v)
	case int:
		return v
	}
	r.mismatch(key, "integer", val)
	return def
}

func (r *reader) number(key string, def float64) float64 {
	val, ok := r.store.Get(key)
	if !ok {
		return def
	}
	switch v := val.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	r.mismatch(key, "number", val)
	return def
}

func (r *reader) boolean(key string, def bool) bool {
	val, ok := r.store.Get(key)
	if !ok {
		return def
	}
	b, ok := val.(bool)
	if !ok {
		r.mismatch(key, "boolean", val)
		return def
	}
	return b
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	val, ok := r.store.Get(key)
	if !ok {
		return def
	}
	switch v := val.(type) {
	case time.Duration:
		return v
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
			return def
		}
		return d
	}
	r.mismatch(key, "duration string", val)
	return def
}
