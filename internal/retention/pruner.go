// Package retention deletes old usage data on a schedule.
package retention

import (
	"context"
	"fmt"
	"time"
)

// Store is the persistence the pruner needs.
type Store interface {
	DeleteOldData(cutoff time.Time) (int64, error)
}

// Pruner removes rows older than the retention period.
type Pruner struct {
	store         Store
	now           func() time.Time
	onPrune       func(rows int64)
	RetentionDays int
}

// NewPruner creates a pruner. onPrune, when set, receives the row count of
// every successful run.
func NewPruner(store Store, retentionDays int, onPrune func(rows int64)) *Pruner {
	return &Pruner{
		store:         store,
		now:           time.Now,
		onPrune:       onPrune,
		RetentionDays: retentionDays,
	}
}

// Cutoff returns the instant before which data is pruned.
func (p *Pruner) Cutoff() time.Time {
	return p.now().AddDate(0, 0, -p.RetentionDays)
}

// Prune deletes expired rows and returns how many were removed.
// A non-positive retention period disables pruning.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	if p.RetentionDays <= 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	removed, err := p.store.DeleteOldData(p.Cutoff())
	if err != nil {
		return 0, fmt.Errorf("failed to prune data: %w", err)
	}
	if p.onPrune != nil {
		p.onPrune(removed)
	}
	return removed, nil
}
