package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
)

// Ensure EntityStore implements the interface.
var _ driven.EntityStore = (*EntityStore)(nil)

// EntityStore is an in-memory implementation of driven.EntityStore.
// Natural keys are matched case-insensitively, like GitHub logins.
type EntityStore struct {
	mu        sync.RWMutex
	nextID    int64
	repos     map[int64]domain.Repository
	orgs      map[int64]domain.Organization
	users     map[int64]domain.User
	keys      map[domain.EntityKind]map[string]int64
	harvested map[domain.EntityKind]map[int64]time.Time
	contents  map[contentKey]domain.Content
}

type contentKey struct {
	kind     domain.EntityKind
	id       int64
	filename string
}

// NewEntityStore creates a new in-memory entity store.
func NewEntityStore() *EntityStore {
	s := &EntityStore{
		repos:     make(map[int64]domain.Repository),
		orgs:      make(map[int64]domain.Organization),
		users:     make(map[int64]domain.User),
		keys:      make(map[domain.EntityKind]map[string]int64),
		harvested: make(map[domain.EntityKind]map[int64]time.Time),
		contents:  make(map[contentKey]domain.Content),
	}
	for _, kind := range domain.HarvestOrder {
		s.keys[kind] = make(map[string]int64)
		s.harvested[kind] = make(map[int64]time.Time)
	}
	return s
}

func normaliseKey(key string) string {
	return strings.ToLower(key)
}

// idFor returns the id for key, allocating one when absent.
// Callers must hold the write lock.
func (s *EntityStore) idFor(kind domain.EntityKind, key string) (int64, bool) {
	if id, ok := s.keys[kind][normaliseKey(key)]; ok {
		return id, false
	}
	s.nextID++
	s.keys[kind][normaliseKey(key)] = s.nextID
	return s.nextID, true
}

// UpsertRepository inserts or updates a repository by full name.
func (s *EntityStore) UpsertRepository(_ context.Context, repo *domain.Repository) (int64, error) {
	if repo == nil || repo.FullName == "" {
		return 0, domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, _ := s.idFor(domain.KindRepository, repo.FullName)
	stored := *repo
	stored.ID = id
	stored.Topics = append([]string(nil), repo.Topics...)
	stored.LastHarvestedAt = time.Time{}
	s.repos[id] = stored
	return id, nil
}

// UpsertOrganization inserts or updates an organization by login.
func (s *EntityStore) UpsertOrganization(_ context.Context, org *domain.Organization) (int64, error) {
	if org == nil || org.Login == "" {
		return 0, domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, _ := s.idFor(domain.KindOrganization, org.Login)
	stored := *org
	stored.ID = id
	stored.LastHarvestedAt = time.Time{}
	s.orgs[id] = stored
	return id, nil
}

// UpsertUser inserts or updates a user by login.
func (s *EntityStore) UpsertUser(_ context.Context, user *domain.User) (int64, error) {
	if user == nil || user.Login == "" {
		return 0, domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, _ := s.idFor(domain.KindUser, user.Login)
	stored := *user
	stored.ID = id
	stored.LastHarvestedAt = time.Time{}
	s.users[id] = stored
	return id, nil
}

// FindRepository returns a repository by full name, or nil.
func (s *EntityStore) FindRepository(_ context.Context, fullName string) (*domain.Repository, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.keys[domain.KindRepository][normaliseKey(fullName)]
	if !ok {
		return nil, nil
	}
	repo := s.repos[id]
	repo.LastHarvestedAt = s.harvested[domain.KindRepository][id]
	return &repo, nil
}

// FindOrganization returns an organization by login, or nil.
func (s *EntityStore) FindOrganization(_ context.Context, login string) (*domain.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.keys[domain.KindOrganization][normaliseKey(login)]
	if !ok {
		return nil, nil
	}
	org := s.orgs[id]
	org.LastHarvestedAt = s.harvested[domain.KindOrganization][id]
	return &org, nil
}

// FindUser returns a user by login, or nil.
func (s *EntityStore) FindUser(_ context.Context, login string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.keys[domain.KindUser][normaliseKey(login)]
	if !ok {
		return nil, nil
	}
	user := s.users[id]
	user.LastHarvestedAt = s.harvested[domain.KindUser][id]
	return &user, nil
}

// ListStale returns never-harvested and stale entities of kind.
func (s *EntityStore) ListStale(
	_ context.Context,
	kind domain.EntityKind,
	cutoff time.Time,
	limit int,
) ([]domain.EntityRef, error) {
	if !kind.Valid() {
		return nil, domain.ErrUnsupportedType
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	refs := make([]domain.EntityRef, 0)
	for _, id := range s.keys[kind] {
		last := s.harvested[kind][id]
		if !last.IsZero() && last.After(cutoff) {
			continue
		}
		refs = append(refs, domain.EntityRef{
			Kind:            kind,
			ID:              id,
			Key:             s.keyOf(kind, id),
			LastHarvestedAt: last,
		})
	}

	sort.Slice(refs, func(i, j int) bool {
		a, b := refs[i], refs[j]
		if a.LastHarvestedAt.IsZero() != b.LastHarvestedAt.IsZero() {
			return a.LastHarvestedAt.IsZero()
		}
		if !a.LastHarvestedAt.Equal(b.LastHarvestedAt) {
			return a.LastHarvestedAt.Before(b.LastHarvestedAt)
		}
		return a.ID < b.ID
	})
	if limit > 0 && len(refs) > limit {
		refs = refs[:limit]
	}
	return refs, nil
}

// keyOf returns the stored natural key. Callers must hold the lock.
func (s *EntityStore) keyOf(kind domain.EntityKind, id int64) string {
	switch kind {
	case domain.KindRepository:
		return s.repos[id].FullName
	case domain.KindOrganization:
		return s.orgs[id].Login
	default:
		return s.users[id].Login
	}
}

// TouchHarvested records a harvest time; it never moves backwards.
func (s *EntityStore) TouchHarvested(_ context.Context, kind domain.EntityKind, id int64, at time.Time) error {
	if !kind.Valid() {
		return domain.ErrUnsupportedType
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keyOf(kind, id) == "" {
		return domain.ErrNotFound
	}
	if at.After(s.harvested[kind][id]) {
		s.harvested[kind][id] = at
	}
	return nil
}

// Track registers a never-harvested stub for key.
func (s *EntityStore) Track(_ context.Context, kind domain.EntityKind, key string) (bool, error) {
	if !kind.Valid() {
		return false, domain.ErrUnsupportedType
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, created := s.idFor(kind, key)
	if !created {
		return false, nil
	}
	switch kind {
	case domain.KindRepository:
		owner, name, _ := domain.SplitFullName(key)
		s.repos[id] = domain.Repository{ID: id, FullName: key, OwnerLogin: owner, Name: name}
	case domain.KindOrganization:
		s.orgs[id] = domain.Organization{ID: id, Login: key}
	case domain.KindUser:
		s.users[id] = domain.User{ID: id, Login: key}
	}
	return true, nil
}

// PutContent stores content, replacing any previous version.
func (s *EntityStore) PutContent(_ context.Context, content *domain.Content) error {
	if content == nil || content.Filename == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contents[contentKey{content.Kind, content.EntityID, content.Filename}] = *content
	return nil
}

// GetContent returns stored content, or nil.
func (s *EntityStore) GetContent(
	_ context.Context,
	kind domain.EntityKind,
	entityID int64,
	filename string,
) (*domain.Content, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.contents[contentKey{kind, entityID, filename}]
	if !ok {
		return nil, nil
	}
	return &content, nil
}

// Count returns the number of stored entities of kind.
func (s *EntityStore) Count(kind domain.EntityKind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys[kind])
}
