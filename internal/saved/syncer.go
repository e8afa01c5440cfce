package saved

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// Report summarises one syncer pass
type Report struct {
	Flushed int        `json:"flushed"`
	Failed  int        `json:"failed"`
	Pruned  int64      `json:"pruned"`
	Sync    SyncResult `json:"sync"`
}

// Pruner is implemented by backends that can drop rows outright
type Pruner interface {
	Forget(ctx context.Context, competitionIDs []string) (int64, error)
}

// Syncer periodically pushes pending operations to the backend and pulls its snapshot
type Syncer struct {
	store       *Store
	backend     Backend
	interval    time.Duration
	maxAttempts int
	newBackOff  func() backoff.BackOff
	catalogIDs  func(ctx context.Context) ([]string, error)

	// serialises passes between the ticker loop and RunOnce callers
	runMu sync.Mutex
}

// SyncerOption configures a Syncer
type SyncerOption func(*Syncer)

// WithMaxAttempts caps the delivery attempts per operation within one pass
func WithMaxAttempts(n int) SyncerOption {
	return func(s *Syncer) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithBackOff replaces the retry policy
func WithBackOff(f func() backoff.BackOff) SyncerOption {
	return func(s *Syncer) {
		s.newBackOff = f
	}
}

// WithCatalogIDs enables pruning: rows unsaved during a pass whose competition is
// no longer listed by f are deleted from a backend that implements Pruner
func WithCatalogIDs(f func(ctx context.Context) ([]string, error)) SyncerOption {
	return func(s *Syncer) {
		s.catalogIDs = f
	}
}

// NewSyncer creates a sync worker
func NewSyncer(store *Store, backend Backend, interval time.Duration, opts ...SyncerOption) *Syncer {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	s := &Syncer{
		store:       store,
		backend:     backend,
		interval:    interval,
		maxAttempts: 3,
		newBackOff: func() backoff.BackOff {
			exp := backoff.NewExponentialBackOff()
			exp.InitialInterval = 200 * time.Millisecond
			exp.Multiplier = 2
			exp.MaxInterval = 5 * time.Second
			exp.Reset()
			return exp
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins the sync worker in a goroutine
func (s *Syncer) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *Syncer) run(ctx context.Context) {
	slog.Info("saved sync worker started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on start
	s.pass(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("saved sync worker stopped")
			return
		case <-ticker.C:
			s.pass(ctx)
		}
	}
}

func (s *Syncer) pass(ctx context.Context) {
	report, err := s.RunOnce(ctx)
	if err != nil {
		slog.Error("saved sync pass failed", "error", err, "flushed", report.Flushed)
		return
	}
	if report.Flushed > 0 || len(report.Sync.Added) > 0 || len(report.Sync.Removed) > 0 {
		slog.Info("saved sync pass completed",
			"flushed", report.Flushed,
			"added", len(report.Sync.Added),
			"removed", len(report.Sync.Removed),
			"kept", len(report.Sync.Kept),
		)
	}
}

// RunOnce flushes pending operations in order, then reconciles with the backend snapshot.
// Flushing stops at the first operation that exhausts its retries so later changes to the
// same id are never delivered ahead of earlier ones. The snapshot is pulled regardless,
// since ids with pending operations keep their local state.
func (s *Syncer) RunOnce(ctx context.Context) (Report, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	var report Report

	delivered, flushErr := s.flush(ctx)
	report.Flushed = len(delivered)
	if flushErr != nil {
		report.Failed = 1
	}

	acked := make([]uuid.UUID, 0, len(delivered))
	for _, op := range delivered {
		acked = append(acked, op.ID)
	}
	if err := s.store.Ack(ctx, acked...); err != nil {
		syncRuns.WithLabelValues("error").Inc()
		return report, err
	}

	snap, err := s.backend.Snapshot(ctx)
	if err != nil {
		syncRuns.WithLabelValues("error").Inc()
		return report, fmt.Errorf("failed to fetch saved snapshot: %w", err)
	}

	result, err := s.store.Sync(ctx, snap)
	if err != nil {
		syncRuns.WithLabelValues("error").Inc()
		return report, err
	}
	report.Sync = result
	report.Pruned = s.prune(ctx, delivered)

	if flushErr != nil {
		syncRuns.WithLabelValues("partial").Inc()
		return report, flushErr
	}

	syncRuns.WithLabelValues("ok").Inc()
	return report, nil
}

func (s *Syncer) flush(ctx context.Context) ([]Op, error) {
	pending := s.store.Pending()
	delivered := make([]Op, 0, len(pending))

	for _, op := range pending {
		if err := s.deliver(ctx, op); err != nil {
			flushedOps.WithLabelValues("failed").Inc()
			return delivered, fmt.Errorf("failed to flush saved op for %s: %w", op.CompetitionID, err)
		}
		flushedOps.WithLabelValues("ok").Inc()
		delivered = append(delivered, op)
	}
	return delivered, nil
}

// prune forgets competitions that were unsaved in this pass, are not saved again
// locally and have left the catalog. Failures are logged and leave the unsaved
// rows in place.
func (s *Syncer) prune(ctx context.Context, delivered []Op) int64 {
	pruner, ok := s.backend.(Pruner)
	if !ok || s.catalogIDs == nil {
		return 0
	}

	candidates := make(map[string]struct{})
	for _, op := range delivered {
		if op.Saved {
			delete(candidates, op.CompetitionID)
			continue
		}
		candidates[op.CompetitionID] = struct{}{}
	}
	if len(candidates) == 0 {
		return 0
	}

	known, err := s.catalogIDs(ctx)
	if err != nil {
		slog.Warn("skipping saved prune", "error", err)
		return 0
	}
	for _, id := range known {
		delete(candidates, id)
	}

	ids := make([]string, 0, len(candidates))
	for id := range candidates {
		if !s.store.IsSaved(id) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return 0
	}
	sort.Strings(ids)

	n, err := pruner.Forget(ctx, ids)
	if err != nil {
		slog.Warn("failed to prune saved rows", "error", err, "ids", ids)
		return 0
	}
	slog.Info("pruned saved rows for removed competitions", "count", n)
	return n
}

func (s *Syncer) deliver(ctx context.Context, op Op) error {
	b := s.newBackOff()
	attempts := 0

	for {
		err := s.backend.Apply(ctx, op)
		if err == nil {
			return nil
		}

		attempts++
		if attempts >= s.maxAttempts {
			return err
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return err
		}

		slog.Warn("retrying saved op",
			"competition_id", op.CompetitionID,
			"attempt", attempts,
			"wait", wait,
			"error", err,
		)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
