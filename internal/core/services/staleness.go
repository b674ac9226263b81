package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
)

// StalenessPolicy selects which entities a run should refresh.
type StalenessPolicy struct {
	store driven.EntityStore
	clock driven.Clock
}

// NewStalenessPolicy creates a staleness policy.
func NewStalenessPolicy(store driven.EntityStore, clock driven.Clock) *StalenessPolicy {
	return &StalenessPolicy{store: store, clock: clock}
}

// Backlog returns up to limit entities of kind that were never harvested or
// were harvested at least threshold ago. Never-harvested entities come
// first, then the oldest harvest, then the lowest id.
func (p *StalenessPolicy) Backlog(
	ctx context.Context,
	kind domain.EntityKind,
	limit int,
	threshold time.Duration,
) ([]domain.EntityRef, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: entity kind %q", domain.ErrUnsupportedType, kind)
	}
	if limit <= 0 {
		return []domain.EntityRef{}, nil
	}
	cutoff := p.clock.Now().Add(-threshold)
	refs, err := p.store.ListStale(ctx, kind, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list stale %s: %w", domain.ErrStorage, kind.Plural(), err)
	}

	seen := make(map[int64]struct{}, len(refs))
	backlog := make([]domain.EntityRef, 0, len(refs))
	for _, ref := range refs {
		if ref.Kind != kind {
			continue
		}
		if !ref.LastHarvestedAt.IsZero() && ref.LastHarvestedAt.After(cutoff) {
			continue
		}
		if _, dup := seen[ref.ID]; dup {
			continue
		}
		seen[ref.ID] = struct{}{}
		backlog = append(backlog, ref)
	}

	sort.SliceStable(backlog, func(i, j int) bool {
		a, b := backlog[i], backlog[j]
		if a.LastHarvestedAt.IsZero() != b.LastHarvestedAt.IsZero() {
			return a.LastHarvestedAt.IsZero()
		}
		if !a.LastHarvestedAt.Equal(b.LastHarvestedAt) {
			return a.LastHarvestedAt.Before(b.LastHarvestedAt)
		}
		return a.ID < b.ID
	})
	if len(backlog) > limit {
		backlog = backlog[:limit]
	}
	return backlog, nil
}
