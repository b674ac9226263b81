package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

// EntityStore persists harvested repositories, organizations and users.
// Upserts are keyed by natural key and never modify LastHarvestedAt.
// Failures are wrapped with domain.ErrStorage.
type EntityStore interface {
	// UpsertRepository inserts or updates by FullName and returns the local id.
	UpsertRepository(ctx context.Context, repo *domain.Repository) (int64, error)

	// UpsertOrganization inserts or updates by Login and returns the local id.
	UpsertOrganization(ctx context.Context, org *domain.Organization) (int64, error)

	// UpsertUser inserts or updates by Login and returns the local id.
	UpsertUser(ctx context.Context, user *domain.User) (int64, error)

	// FindRepository returns the repository with the given full name.
	// Returns nil and no error if it does not exist.
	FindRepository(ctx context.Context, fullName string) (*domain.Repository, error)

	// FindOrganization returns the organization with the given login.
	// Returns nil and no error if it does not exist.
	FindOrganization(ctx context.Context, login string) (*domain.Organization, error)

	// FindUser returns the user with the given login.
	// Returns nil and no error if it does not exist.
	FindUser(ctx context.Context, login string) (*domain.User, error)

	// ListStale returns up to limit entities of kind never harvested or
	// last harvested at or before cutoff. Never-harvested entities come
	// first, then oldest harvest, then lowest id.
	ListStale(ctx context.Context, kind domain.EntityKind, cutoff time.Time, limit int) ([]domain.EntityRef, error)

	// TouchHarvested records a harvest. The stored timestamp never moves backwards.
	TouchHarvested(ctx context.Context, kind domain.EntityKind, id int64, at time.Time) error

	// Track registers a natural key as a never-harvested stub.
	// Returns false if the entity already exists.
	Track(ctx context.Context, kind domain.EntityKind, key string) (bool, error)

	// PutContent stores ancillary content, replacing any previous version.
	PutContent(ctx context.Context, content *domain.Content) error

	// GetContent returns stored content.
	// Returns nil and no error if it does not exist.
	GetContent(ctx context.Context, kind domain.EntityKind, entityID int64, filename string) (*domain.Content, error)
}
