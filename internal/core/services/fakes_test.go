package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/harvester/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
	normaliser "github.com/custodia-labs/harvester/internal/normalisers/github"
)

// --- Mock implementations for harvest testing ---

// fakeClock implements driven.Clock. Sleep advances time instantly.
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return ctx.Err()
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Slept() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.slept...)
}

// statusError is a protocol error carrying an HTTP status.
type statusError struct {
	code int
}

func (e *statusError) Error() string   { return fmt.Sprintf("http %d", e.code) }
func (e *statusError) HTTPStatus() int { return e.code }
func (e *statusError) Is(target error) bool {
	return target == domain.ErrProtocol
}

var errNotFound = &statusError{code: http.StatusNotFound}

// fakeAPI implements driven.SourceAPI from in-memory fixtures.
// Unknown organizations and users are served with a minimal payload.
type fakeAPI struct {
	mu       sync.Mutex
	repos    map[string]string
	repoErrs map[string][]error
	orgs     map[string]bool
	missing  map[string]bool
	readmes  map[string]string
	files    map[string]string
	pages    map[string][]*domain.GraphPage
	calls    []string

	paginateCalls []int
	onRepository  func(owner, name string)
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		repos:    make(map[string]string),
		repoErrs: make(map[string][]error),
		orgs:     make(map[string]bool),
		missing:  make(map[string]bool),
		readmes:  make(map[string]string),
		files:    make(map[string]string),
		pages:    make(map[string][]*domain.GraphPage),
	}
}

func repoJSON(fullName, ownerType string) string {
	owner, name, _ := domain.SplitFullName(fullName)
	return fmt.Sprintf(`{"name": %q, "full_name": %q, "owner": {"login": %q, "type": %q}, "stargazers_count": 1}`,
		name, fullName, owner, ownerType)
}

func (f *fakeAPI) addRepo(fullName, ownerType string) {
	f.repos[fullName] = repoJSON(fullName, ownerType)
}

func (f *fakeAPI) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) GetRepository(_ context.Context, owner, name string) (json.RawMessage, error) {
	fullName := owner + "/" + name
	f.record("repo " + fullName)
	if f.onRepository != nil {
		f.onRepository(owner, name)
	}
	f.mu.Lock()
	if errs := f.repoErrs[fullName]; len(errs) > 0 {
		f.repoErrs[fullName] = errs[1:]
		f.mu.Unlock()
		return nil, errs[0]
	}
	payload, ok := f.repos[fullName]
	f.mu.Unlock()
	if !ok {
		return nil, errNotFound
	}
	return json.RawMessage(payload), nil
}

func (f *fakeAPI) GetOrganization(_ context.Context, login string) (json.RawMessage, error) {
	f.record("org " + login)
	if f.missing[login] {
		return nil, errNotFound
	}
	return json.RawMessage(fmt.Sprintf(`{"login": %q, "id": 1}`, login)), nil
}

func (f *fakeAPI) GetUser(_ context.Context, login string) (json.RawMessage, error) {
	f.record("user " + login)
	if f.missing[login] {
		return nil, errNotFound
	}
	return json.RawMessage(fmt.Sprintf(`{"login": %q, "id": 2, "type": "User"}`, login)), nil
}

func (f *fakeAPI) GetReadme(_ context.Context, owner, name string) (string, error) {
	f.record("readme " + owner + "/" + name)
	return f.readmes[owner+"/"+name], nil
}

func (f *fakeAPI) GetFile(_ context.Context, owner, name, path string) (string, error) {
	f.record("file " + owner + "/" + name + "/" + path)
	return f.files[owner+"/"+name+"/"+path], nil
}

func (f *fakeAPI) Paginate(
	_ context.Context,
	root string,
	_ domain.EntityKind,
	pageSize int,
	cursor string,
) (*domain.GraphPage, error) {
	f.record("paginate " + root + " " + cursor)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paginateCalls = append(f.paginateCalls, pageSize)
	pages := f.pages[root]
	index := 0
	if cursor != "" {
		_, err := fmt.Sscanf(cursor, "page-%d", &index)
		if err != nil {
			return nil, err
		}
	}
	if index >= len(pages) {
		return &domain.GraphPage{}, nil
	}
	return pages[index], nil
}

// graphPages builds pages of the given sizes for repositories owned by root.
func graphPages(root string, sizes ...int) []*domain.GraphPage {
	pages := make([]*domain.GraphPage, 0, len(sizes))
	n := 0
	for i, size := range sizes {
		page := &domain.GraphPage{HasNextPage: i < len(sizes)-1}
		if page.HasNextPage {
			page.EndCursor = fmt.Sprintf("page-%d", i+1)
		}
		for j := 0; j < size; j++ {
			n++
			page.Nodes = append(page.Nodes, domain.RawNode{
				Origin: domain.OriginGraph,
				Kind:   domain.KindRepository,
				Payload: json.RawMessage(fmt.Sprintf(
					`{"name": "repo-%d", "nameWithOwner": "%s/repo-%d", "owner": {"login": %q}}`, n, root, n, root)),
			})
		}
		pages = append(pages, page)
	}
	return pages
}

// upperRenderer implements driven.Renderer.
type upperRenderer struct{}

func (upperRenderer) Render(markdown string) (string, error) {
	return "<p>" + strings.ToUpper(markdown) + "</p>", nil
}

// failingEntityStore fails repository upserts.
type failingEntityStore struct {
	*memory.EntityStore
}

func (s failingEntityStore) UpsertRepository(context.Context, *domain.Repository) (int64, error) {
	return 0, fmt.Errorf("disk full")
}

// Ensure mocks implement interfaces
var _ driven.Clock = (*fakeClock)(nil)
var _ driven.SourceAPI = (*fakeAPI)(nil)
var _ driven.Renderer = upperRenderer{}
var _ driven.EntityStore = failingEntityStore{}

// harness wires the services over memory stores.
type harness struct {
	clock     *fakeClock
	api       *fakeAPI
	entities  driven.EntityStore
	runStore  *memory.RunStore
	logStore  *memory.LogStore
	runLog    *RunLog
	runs      *RunScheduler
	harvester *Harvester
}

func newHarness(t *testing.T, cfg domain.HarvestConfig, entities driven.EntityStore) *harness {
	t.Helper()
	if entities == nil {
		entities = memory.NewEntityStore()
	}
	h := &harness{
		clock:    newFakeClock(),
		api:      newFakeAPI(),
		entities: entities,
		runStore: memory.NewRunStore(),
		logStore: memory.NewLogStore(),
	}
	h.runLog = NewRunLog(h.logStore, h.clock)
	h.runs = NewRunScheduler(h.runStore, h.runLog, h.clock)
	policy := NewStalenessPolicy(h.entities, h.clock)
	h.harvester = NewHarvester(cfg, h.runs, policy, h.api, normaliser.New(), h.entities, upperRenderer{}, h.runLog, h.clock)
	return h
}

func (h *harness) track(t *testing.T, kind domain.EntityKind, keys ...string) {
	t.Helper()
	for _, key := range keys {
		_, err := h.harvester.Track(context.Background(), kind, key)
		require.NoError(t, err)
	}
}

func (h *harness) schedule(t *testing.T) string {
	t.Helper()
	id, err := h.runs.Schedule(context.Background(), domain.TriggerManual)
	require.NoError(t, err)
	return id
}

// errorEntries returns the error-level entries of a run.
func (h *harness) errorEntries(runID string) []domain.LogEntry {
	var out []domain.LogEntry
	for _, e := range h.logStore.All() {
		if e.Reference == domain.RunReference(runID) && e.Level == domain.LevelError {
			out = append(out, e)
		}
	}
	return out
}

func (h *harness) messages(runID string) []string {
	var out []string
	for _, e := range h.logStore.All() {
		if e.Reference == domain.RunReference(runID) {
			out = append(out, e.Message)
		}
	}
	return out
}

func testConfig() domain.HarvestConfig {
	cfg := domain.DefaultHarvestConfig()
	cfg.FetchProfileReadmes = false
	return cfg
}
