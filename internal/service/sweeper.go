package service

import (
	"context"
	"log"
	"time"

	"github.com/grocerly/backend/internal/cache"
	"github.com/grocerly/backend/internal/model"
)

const (
	sweepStartDelay = 10 * time.Second
	sweepInterval   = time.Hour

	// Soft-deleted items are kept for 30 days before the permanent purge.
	retentionWindow = 30 * 24 * time.Hour
)

type itemDeleter interface {
	DeleteItem(ctx context.Context, id string) error
}

// RetentionSweeper periodically hard-deletes soft-deleted items that have
// aged past the retention window. It reads the item cache, not the store,
// and leaves cache reconciliation to the next listing refresh.
type RetentionSweeper struct {
	store      itemDeleter
	items      *cache.Envelope[model.Item]
	startDelay time.Duration
	interval   time.Duration
	window     time.Duration
}

func NewRetentionSweeper(store itemDeleter, items *cache.Envelope[model.Item]) *RetentionSweeper {
	return &RetentionSweeper{
		store:      store,
		items:      items,
		startDelay: sweepStartDelay,
		interval:   sweepInterval,
		window:     retentionWindow,
	}
}

// Run blocks until ctx is cancelled: one sweep after a short startup delay,
// then one per interval. The timers die with the context so they cannot keep
// the process alive past shutdown.
func (s *RetentionSweeper) Run(ctx context.Context) {
	select {
	case <-time.After(s.startDelay):
	case <-ctx.Done():
		return
	}
	s.sweep(ctx, time.Now())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep(ctx, time.Now())
		case <-ctx.Done():
			return
		}
	}
}

// sweep walks a snapshot of the cached items. A failed delete is logged and
// the rest of the run continues.
func (s *RetentionSweeper) sweep(ctx context.Context, now time.Time) {
	for _, item := range s.items.Snapshot() {
		if !item.IsDeleted || item.DeletedAt == nil {
			continue
		}
		if now.Sub(*item.DeletedAt) <= s.window {
			continue
		}

		if err := s.store.DeleteItem(ctx, item.ID); err != nil {
			log.Printf("[Sweeper] Trash removal failed for item %s | %s: %v", item.ID, item.Name, err)
			continue
		}
		log.Printf("[Sweeper] Trash removal -> deleted stale item -> %s | %s", item.ID, item.Name)
	}
}
