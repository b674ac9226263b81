package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
	"github.com/custodia-labs/harvester/internal/core/ports/driving"
	"github.com/custodia-labs/harvester/internal/logger"
)

// Ensure Harvester implements the interface.
var _ driving.Harvester = (*Harvester)(nil)

// Harvester executes harvest runs: one sequential pass per entity kind over
// the stale backlog, isolating failures per identifier.
type Harvester struct {
	config     domain.HarvestConfig
	runs       *RunScheduler
	policy     *StalenessPolicy
	api        driven.SourceAPI
	normaliser driven.Normaliser
	store      driven.EntityStore
	renderer   driven.Renderer
	runLog     *RunLog
	clock      driven.Clock

	cfgMu sync.RWMutex

	// Progress tracking
	mu     sync.RWMutex
	active map[string]*harvestJob
}

// NewHarvester creates a harvester.
// The renderer is optional - if nil, READMEs are stored without HTML.
func NewHarvester(
	config domain.HarvestConfig,
	runs *RunScheduler,
	policy *StalenessPolicy,
	api driven.SourceAPI,
	normaliser driven.Normaliser,
	store driven.EntityStore,
	renderer driven.Renderer,
	runLog *RunLog,
	clock driven.Clock,
) *Harvester {
	return &Harvester{
		config:     config,
		runs:       runs,
		policy:     policy,
		api:        api,
		normaliser: normaliser,
		store:      store,
		renderer:   renderer,
		runLog:     runLog,
		clock:      clock,
		active:     make(map[string]*harvestJob),
	}
}

// Execute runs a pending run. Item failures are recorded and skipped; the
// run still completes. A storage failure fails the run. A stop requested
// through the RunScheduler ends the run at the next checkpoint.
func (h *Harvester) Execute(ctx context.Context, runID string) (*domain.RunStats, error) {
	ok, err := h.runs.Transition(ctx, runID, domain.RunRunning)
	if err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("run %s: %w", runID, domain.ErrRunNotRunnable)
	}

	ctx = domain.ContextWithRun(ctx, runID)
	job := &harvestJob{
		h:      h,
		runID:  runID,
		config: h.Config(),
		stats:  domain.RunStats{StartedAt: h.clock.Now()},
	}
	h.mu.Lock()
	h.active[runID] = job
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.active, runID)
		h.mu.Unlock()
	}()

	runErr := h.runLog.Info(ctx, runID, "", "Starting harvest", "")
	stopped := false
	if runErr == nil {
		stopped, runErr = job.run(ctx)
	}
	return h.finish(ctx, job, stopped, runErr)
}

// Config returns the harvest settings applied to new runs.
func (h *Harvester) Config() domain.HarvestConfig {
	h.cfgMu.RLock()
	defer h.cfgMu.RUnlock()
	return h.config
}

// SetConfig replaces the harvest settings. Runs already executing keep
// the settings they started with.
func (h *Harvester) SetConfig(config domain.HarvestConfig) {
	h.cfgMu.Lock()
	defer h.cfgMu.Unlock()
	h.config = config
}

// finish records the run outcome and the final statistics.
func (h *Harvester) finish(ctx context.Context, job *harvestJob, stopped bool, runErr error) (*domain.RunStats, error) {
	cause := context.Cause(ctx)
	// Finalisation must survive cancellation of the run context.
	ctx = context.WithoutCancel(ctx)
	runID := job.runID

	var result error
	switch {
	case cause != nil:
		if _, err := h.runs.Transition(ctx, runID, domain.RunStopped); err != nil {
			logger.Error("run %s: %v", runID, err)
		}
		h.logOrWarn(h.runLog.Info(ctx, runID, "", "Harvest interrupted", cause.Error()))
	case runErr != nil:
		job.countError()
		h.logOrWarn(h.runLog.Error(ctx, runID, "", "Harvest failed", runErr.Error()))
		if _, err := h.runs.Transition(ctx, runID, domain.RunFailed); err != nil {
			logger.Error("run %s: %v", runID, err)
		}
		result = fmt.Errorf("harvest run %s: %w", runID, runErr)
	case stopped:
		h.logOrWarn(h.runLog.Info(ctx, runID, "", "Harvest stopped", ""))
	default:
		ok, err := h.runs.Transition(ctx, runID, domain.RunCompleted)
		if err != nil {
			result = fmt.Errorf("complete run: %w", err)
		} else if ok {
			h.logOrWarn(h.runLog.Info(ctx, runID, "", "Harvest completed", ""))
		}
	}

	stats := job.snapshot()
	stats.EndedAt = h.clock.Now()
	h.logOrWarn(h.runLog.Stats(ctx, runID, stats))
	return &stats, result
}

func (h *Harvester) logOrWarn(err error) {
	if err != nil {
		logger.Error("run log: %v", err)
	}
}

// Progress returns the live counters of a run executing in this process.
func (h *Harvester) Progress(runID string) (domain.RunStats, bool) {
	h.mu.RLock()
	job, ok := h.active[runID]
	h.mu.RUnlock()
	if !ok {
		return domain.RunStats{}, false
	}
	return job.snapshot(), true
}

// Track registers an entity for harvesting. It enters the next backlog of
// its kind as never harvested.
func (h *Harvester) Track(ctx context.Context, kind domain.EntityKind, key string) (bool, error) {
	if !kind.Valid() {
		return false, fmt.Errorf("%w: entity kind %q", domain.ErrUnsupportedType, kind)
	}
	if key == "" {
		return false, fmt.Errorf("%w: empty key", domain.ErrInvalidInput)
	}
	if kind == domain.KindRepository {
		if _, _, ok := domain.SplitFullName(key); !ok {
			return false, fmt.Errorf("%w: repository must be owner/name, got %q", domain.ErrInvalidInput, key)
		}
	}
	created, err := h.store.Track(ctx, kind, key)
	if err != nil {
		return false, fmt.Errorf("%w: track %s: %w", domain.ErrStorage, kind, err)
	}
	return created, nil
}

// itemOutcome is the result of harvesting one backlog identifier.
// A failed item is recorded and skipped; an aborted item ends the run.
type itemOutcome struct {
	err   error
	fatal error
}

func succeeded() itemOutcome { return itemOutcome{} }

// outcomeOf classifies err. Storage failures and cancellation escape the
// per-item boundary; everything else is isolated to the item.
func outcomeOf(ctx context.Context, err error) itemOutcome {
	switch {
	case err == nil:
		return itemOutcome{}
	case ctx.Err() != nil:
		return itemOutcome{fatal: ctx.Err()}
	case errors.Is(err, domain.ErrStorage):
		return itemOutcome{fatal: err}
	default:
		return itemOutcome{err: err}
	}
}

func aborted(err error) itemOutcome { return itemOutcome{fatal: err} }

// harvestJob holds the state of one executing run.
type harvestJob struct {
	h      *Harvester
	runID  string
	config domain.HarvestConfig

	mu    sync.Mutex
	stats domain.RunStats
	calls int
}

func (j *harvestJob) snapshot() domain.RunStats {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.stats
}

func (j *harvestJob) update(fn func(s *domain.RunStats)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	fn(&j.stats)
}

func (j *harvestJob) countError() {
	j.update(func(s *domain.RunStats) { s.Errors++ })
}

// run executes the three passes. It reports whether an operator stop was
// observed, and returns an error only for failures that end the run.
func (j *harvestJob) run(ctx context.Context) (bool, error) {
	for _, kind := range domain.HarvestOrder {
		if stopped, err := j.checkpoint(ctx); err != nil || stopped {
			return stopped, err
		}
		stopped, err := j.pass(ctx, kind)
		if err != nil || stopped {
			return stopped, err
		}
	}
	return false, nil
}

// checkpoint reads the persisted run status.
func (j *harvestJob) checkpoint(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	run, err := j.h.runs.Get(ctx, j.runID)
	if err != nil {
		return false, fmt.Errorf("%w: checkpoint: %w", domain.ErrStorage, err)
	}
	return run.Status == domain.RunStopped, nil
}

func (j *harvestJob) pass(ctx context.Context, kind domain.EntityKind) (bool, error) {
	cfg := j.config
	refs, err := j.h.policy.Backlog(ctx, kind, cfg.Cap(kind), cfg.StaleAfter)
	if err != nil {
		return false, err
	}

	logger.Section("Harvesting " + kind.Plural())
	if err := j.h.runLog.Info(ctx, j.runID, "", fmt.Sprintf("Harvesting %d %s", len(refs), kind.Plural()), ""); err != nil {
		return false, err
	}

	for i, ref := range refs {
		if i > 0 {
			if stopped, err := j.checkpoint(ctx); err != nil || stopped {
				return stopped, err
			}
		}

		var out itemOutcome
		switch kind {
		case domain.KindRepository:
			out = j.harvestRepository(ctx, ref)
		default:
			out = j.harvestOwner(ctx, ref)
		}

		if out.fatal != nil {
			return false, out.fatal
		}
		if out.err != nil {
			if err := j.recordError(ctx, ref.Key, "Failed to harvest "+string(kind), out.err); err != nil {
				return false, err
			}
			continue
		}
		j.update(func(s *domain.RunStats) {
			switch kind {
			case domain.KindRepository:
				s.RepositoriesCrawled++
			case domain.KindOrganization:
				s.OrganizationsCrawled++
			case domain.KindUser:
				s.UsersCrawled++
			}
		})
	}
	return false, nil
}

func (j *harvestJob) harvestRepository(ctx context.Context, ref domain.EntityRef) itemOutcome {
	owner, name, ok := domain.SplitFullName(ref.Key)
	if !ok {
		return itemOutcome{err: fmt.Errorf("%w: repository name %q", domain.ErrInvalidInput, ref.Key)}
	}

	var payload json.RawMessage
	err := j.call(ctx, func(ctx context.Context) error {
		var err error
		payload, err = j.h.api.GetRepository(ctx, owner, name)
		return err
	})
	if err != nil {
		return outcomeOf(ctx, err)
	}

	repo, err := j.h.normaliser.Normalise(domain.RawNode{
		Origin:  domain.OriginREST,
		Kind:    domain.KindRepository,
		Payload: payload,
	}, owner)
	if err != nil {
		return outcomeOf(ctx, err)
	}

	id, err := j.h.store.UpsertRepository(ctx, repo)
	if err != nil {
		return aborted(storageErr("upsert repository", err))
	}

	if j.config.FetchReadmes {
		err := j.saveContent(ctx, domain.KindRepository, id, repo.FullName, func(ctx context.Context) (string, error) {
			return j.h.api.GetReadme(ctx, repo.OwnerLogin, repo.Name)
		})
		if err != nil {
			return aborted(err)
		}
	}

	// The owner enters the organization or user backlog.
	if repo.OwnerLogin != "" && repo.OwnerKind != domain.OwnerUnknown {
		if _, err := j.h.store.Track(ctx, repo.OwnerKind.EntityKind(), repo.OwnerLogin); err != nil {
			return aborted(storageErr("track owner", err))
		}
	}

	return j.touch(ctx, domain.KindRepository, ref.ID, id)
}

func (j *harvestJob) harvestOwner(ctx context.Context, ref domain.EntityRef) itemOutcome {
	login := ref.Key
	raw := domain.RawNode{Origin: domain.OriginREST, Kind: ref.Kind}

	err := j.call(ctx, func(ctx context.Context) error {
		var err error
		if ref.Kind == domain.KindOrganization {
			raw.Payload, err = j.h.api.GetOrganization(ctx, login)
		} else {
			raw.Payload, err = j.h.api.GetUser(ctx, login)
		}
		return err
	})
	if err != nil {
		return outcomeOf(ctx, err)
	}

	var id int64
	if ref.Kind == domain.KindOrganization {
		org, err := j.h.normaliser.Organization(raw)
		if err != nil {
			return outcomeOf(ctx, err)
		}
		if id, err = j.h.store.UpsertOrganization(ctx, org); err != nil {
			return aborted(storageErr("upsert organization", err))
		}
		login = org.Login
	} else {
		user, err := j.h.normaliser.User(raw)
		if err != nil {
			return outcomeOf(ctx, err)
		}
		if id, err = j.h.store.UpsertUser(ctx, user); err != nil {
			return aborted(storageErr("upsert user", err))
		}
		login = user.Login
	}

	if j.config.FetchProfileReadmes {
		err := j.saveContent(ctx, ref.Kind, id, login, func(ctx context.Context) (string, error) {
			if ref.Kind == domain.KindOrganization {
				return j.h.api.GetFile(ctx, login, ".github", "profile/README.md")
			}
			return j.h.api.GetReadme(ctx, login, login)
		})
		if err != nil {
			return aborted(err)
		}
	}

	if err := j.harvestChildren(ctx, ref.Kind, login); err != nil {
		return aborted(err)
	}

	return j.touch(ctx, ref.Kind, ref.ID, id)
}

// harvestChildren pages through the repositories owned by login, stopping
// exactly at the configured cap. It returns an error only when the run
// must end.
func (j *harvestJob) harvestChildren(ctx context.Context, kind domain.EntityKind, login string) error {
	cfg := j.config
	remaining := cfg.ChildRepositoryCap
	cursor := ""

	for remaining > 0 {
		pageSize := min(cfg.GraphPageSize, remaining)
		var page *domain.GraphPage
		err := j.call(ctx, func(ctx context.Context) error {
			var err error
			page, err = j.h.api.Paginate(ctx, login, kind, pageSize, cursor)
			return err
		})
		if err != nil {
			return j.subordinateFailure(ctx, login, "Failed to list repositories", err)
		}

		for _, node := range page.Nodes {
			if remaining == 0 {
				break
			}
			remaining--
			if err := j.harvestChild(ctx, kind, login, node); err != nil {
				return err
			}
		}

		if !page.HasNextPage || page.EndCursor == "" {
			break
		}
		cursor = page.EndCursor
	}
	return nil
}

func (j *harvestJob) harvestChild(ctx context.Context, rootKind domain.EntityKind, login string, node domain.RawNode) error {
	repo, err := j.h.normaliser.Normalise(node, login)
	if err != nil {
		return j.subordinateFailure(ctx, login, "Failed to normalise repository", err)
	}

	kind, err := j.resolveOwnerKind(ctx, repo, rootKind)
	if err != nil {
		return err
	}
	repo.OwnerKind = kind

	id, err := j.h.store.UpsertRepository(ctx, repo)
	if err != nil {
		return storageErr("upsert repository", err)
	}
	j.update(func(s *domain.RunStats) { s.ChildRepositories++ })

	if !j.config.FetchReadmes {
		return nil
	}
	return j.saveContent(ctx, domain.KindRepository, id, repo.FullName, func(ctx context.Context) (string, error) {
		return j.h.api.GetReadme(ctx, repo.OwnerLogin, repo.Name)
	})
}

// resolveOwnerKind fills in the owner type graph nodes do not carry:
// a stored organization wins, then a stored user, then the kind of the
// pagination root. Users are the fallback.
func (j *harvestJob) resolveOwnerKind(
	ctx context.Context,
	repo *domain.Repository,
	rootKind domain.EntityKind,
) (domain.OwnerKind, error) {
	if repo.OwnerKind != domain.OwnerUnknown {
		return repo.OwnerKind, nil
	}
	org, err := j.h.store.FindOrganization(ctx, repo.OwnerLogin)
	if err != nil {
		return domain.OwnerUnknown, storageErr("find organization", err)
	}
	if org != nil {
		return domain.OwnerOrganization, nil
	}
	user, err := j.h.store.FindUser(ctx, repo.OwnerLogin)
	if err != nil {
		return domain.OwnerUnknown, storageErr("find user", err)
	}
	if user != nil {
		return domain.OwnerUser, nil
	}
	if rootKind == domain.KindOrganization {
		return domain.OwnerOrganization, nil
	}
	return domain.OwnerUser, nil
}

// saveContent fetches, renders and stores a README. Fetch and render
// failures are recorded against subject without failing the caller.
func (j *harvestJob) saveContent(
	ctx context.Context,
	kind domain.EntityKind,
	entityID int64,
	subject string,
	fetch func(ctx context.Context) (string, error),
) error {
	var raw string
	err := j.call(ctx, func(ctx context.Context) error {
		var err error
		raw, err = fetch(ctx)
		return err
	})
	if err != nil {
		return j.subordinateFailure(ctx, subject, "Failed to fetch README", err)
	}
	if raw == "" {
		return nil
	}

	content := &domain.Content{
		Kind:      kind,
		EntityID:  entityID,
		Filename:  domain.ReadmeFilename,
		Raw:       raw,
		FetchedAt: j.h.clock.Now(),
	}
	if j.h.renderer != nil {
		html, err := j.h.renderer.Render(raw)
		if err != nil {
			return j.subordinateFailure(ctx, subject, "Failed to render README", err)
		}
		content.Rendered = html
	}
	if err := j.h.store.PutContent(ctx, content); err != nil {
		return storageErr("store README", err)
	}
	j.update(func(s *domain.RunStats) { s.FilesSaved++ })
	return nil
}

// subordinateFailure records a failure that does not fail the parent item.
// It returns an error only if the run must end.
func (j *harvestJob) subordinateFailure(ctx context.Context, subject, message string, err error) error {
	if out := outcomeOf(ctx, err); out.fatal != nil {
		return out.fatal
	}
	return j.recordError(ctx, subject, message, err)
}

// recordError counts one error and writes its log entry.
func (j *harvestJob) recordError(ctx context.Context, subject, message string, err error) error {
	j.countError()
	return j.h.runLog.Error(ctx, j.runID, subject, message, err.Error())
}

func (j *harvestJob) touch(ctx context.Context, kind domain.EntityKind, refID, id int64) itemOutcome {
	now := j.h.clock.Now()
	if err := j.h.store.TouchHarvested(ctx, kind, id, now); err != nil {
		return aborted(storageErr("touch "+string(kind), err))
	}
	// A renamed repository is stored under its new key; the old record
	// must also leave the backlog.
	if refID != 0 && refID != id {
		if err := j.h.store.TouchHarvested(ctx, kind, refID, now); err != nil {
			return aborted(storageErr("touch "+string(kind), err))
		}
	}
	return succeeded()
}

// call paces and retries one API call. Retryable failures are repeated up
// to MaxRetries times with exponential backoff.
func (j *harvestJob) call(ctx context.Context, fn func(ctx context.Context) error) error {
	cfg := j.config
	backoff := cfg.RetryBackoff
	for attempt := 0; ; attempt++ {
		if err := j.pace(ctx); err != nil {
			return err
		}
		err := fn(ctx)
		if err == nil || attempt >= cfg.MaxRetries || !domain.IsRetryable(err) {
			return err
		}
		logger.Warn("retrying after %v (attempt %d of %d): %v", backoff, attempt+1, cfg.MaxRetries, err)
		if err := j.h.clock.Sleep(ctx, backoff); err != nil {
			return err
		}
		backoff *= 2
	}
}

// pace inserts the fixed delay between consecutive API calls.
func (j *harvestJob) pace(ctx context.Context) error {
	j.mu.Lock()
	first := j.calls == 0
	j.calls++
	j.mu.Unlock()
	if first {
		return nil
	}
	return j.h.clock.Sleep(ctx, j.config.RequestDelay)
}

func storageErr(op string, err error) error {
	if errors.Is(err, domain.ErrStorage) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorage, err)
}
