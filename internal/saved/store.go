// Package saved keeps the user's saved competitions. Local changes are applied
// optimistically, recorded in a pending log and reconciled against the backend
// by the Syncer.
package saved

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/terra-clan/compete-engine/internal/urgency"
)

// Entry is the local membership state of one competition id.
// Saved=false entries are tombstones kept until the backend has caught up.
type Entry struct {
	Saved     bool      `json:"saved"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Op is a local change not yet acknowledged by the backend
type Op struct {
	ID            uuid.UUID `json:"id"`
	CompetitionID string    `json:"competitionId"`
	Saved         bool      `json:"saved"`
	At            time.Time `json:"at"`
}

// State is what a Sink persists
type State struct {
	Entries map[string]Entry `json:"entries"`
	Pending []Op             `json:"pending"`
}

// Snapshot is the backend's view of the saved set at instant AsOf
type Snapshot struct {
	IDs  []string  `json:"ids"`
	AsOf time.Time `json:"asOf"`
}

// SyncResult reports what a reconciliation changed locally
type SyncResult struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
	Kept    []string `json:"kept"` // local state diverges from the snapshot and was kept
}

// Store is the local saved-items cache
type Store struct {
	mu      sync.RWMutex
	entries map[string]Entry
	pending []Op
	sink    Sink
	clock   urgency.Clock
}

// NewStore restores state from sink. A nil clock uses the system clock.
func NewStore(ctx context.Context, sink Sink, clock urgency.Clock) (*Store, error) {
	if clock == nil {
		clock = urgency.SystemClock{}
	}

	state, err := sink.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load saved state: %w", err)
	}
	if state.Entries == nil {
		state.Entries = make(map[string]Entry)
	}

	s := &Store{
		entries: state.Entries,
		pending: state.Pending,
		sink:    sink,
		clock:   clock,
	}
	pendingOps.Set(float64(len(s.pending)))
	return s, nil
}

// Save marks id as saved. Saving an already saved id is a no-op.
func (s *Store) Save(ctx context.Context, id string) error {
	return s.set(ctx, id, true)
}

// Unsave removes id from the saved set. Unsaving an unsaved id is a no-op.
func (s *Store) Unsave(ctx context.Context, id string) error {
	return s.set(ctx, id, false)
}

func (s *Store) set(ctx context.Context, id string, saved bool) error {
	if id == "" {
		return fmt.Errorf("competition id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.entries[id]
	if prev.Saved == saved {
		return nil
	}

	now := s.clock.Now()
	s.entries[id] = Entry{Saved: saved, UpdatedAt: now}
	s.pending = append(s.pending, Op{
		ID:            uuid.New(),
		CompetitionID: id,
		Saved:         saved,
		At:            now,
	})

	if err := s.persistLocked(ctx); err != nil {
		// roll back so memory never runs ahead of the sink
		if existed {
			s.entries[id] = prev
		} else {
			delete(s.entries, id)
		}
		s.pending = s.pending[:len(s.pending)-1]
		return err
	}

	pendingOps.Set(float64(len(s.pending)))
	return nil
}

// IsSaved reports whether id is currently saved
func (s *Store) IsSaved(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[id].Saved
}

// IDs returns the saved ids, oldest save first
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.entries))
	for id, e := range s.entries {
		if e.Saved {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := s.entries[ids[i]], s.entries[ids[j]]
		if a.UpdatedAt.Equal(b.UpdatedAt) {
			return ids[i] < ids[j]
		}
		return a.UpdatedAt.Before(b.UpdatedAt)
	})
	return ids
}

// Pending returns a copy of the unacknowledged operations in the order they were made
func (s *Store) Pending() []Op {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Op(nil), s.pending...)
}

// Ack drops acknowledged operations from the pending log
func (s *Store) Ack(ctx context.Context, opIDs ...uuid.UUID) error {
	if len(opIDs) == 0 {
		return nil
	}

	acked := make(map[uuid.UUID]struct{}, len(opIDs))
	for _, id := range opIDs {
		acked[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.pending
	next := make([]Op, 0, len(s.pending))
	for _, op := range s.pending {
		if _, ok := acked[op.ID]; !ok {
			next = append(next, op)
		}
	}
	s.pending = next

	if err := s.persistLocked(ctx); err != nil {
		s.pending = prev
		return err
	}

	pendingOps.Set(float64(len(s.pending)))
	return nil
}

// Sync merges a backend snapshot into local state.
//
// Ids with pending operations keep their local state. Otherwise the newer side wins:
// a local change made after snap.AsOf survives, anything older adopts the snapshot.
func (s *Store) Sync(ctx context.Context, snap Snapshot) (SyncResult, error) {
	result := SyncResult{
		Added:   []string{},
		Removed: []string{},
		Kept:    []string{},
	}

	remote := make(map[string]struct{}, len(snap.IDs))
	for _, id := range snap.IDs {
		remote[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pendingIDs := make(map[string]struct{}, len(s.pending))
	for _, op := range s.pending {
		pendingIDs[op.CompetitionID] = struct{}{}
	}

	prev := make(map[string]Entry, len(s.entries))
	for id, e := range s.entries {
		prev[id] = e
	}

	candidates := make(map[string]struct{}, len(s.entries)+len(remote))
	for id := range s.entries {
		candidates[id] = struct{}{}
	}
	for id := range remote {
		candidates[id] = struct{}{}
	}

	for id := range candidates {
		local, hasLocal := s.entries[id]
		_, inRemote := remote[id]

		if local.Saved == inRemote {
			// drop settled tombstones
			if hasLocal && !local.Saved && !local.UpdatedAt.After(snap.AsOf) {
				if _, busy := pendingIDs[id]; !busy {
					delete(s.entries, id)
				}
			}
			continue
		}

		if _, busy := pendingIDs[id]; busy {
			result.Kept = append(result.Kept, id)
			continue
		}
		if hasLocal && local.UpdatedAt.After(snap.AsOf) {
			result.Kept = append(result.Kept, id)
			continue
		}

		if inRemote {
			s.entries[id] = Entry{Saved: true, UpdatedAt: snap.AsOf}
			result.Added = append(result.Added, id)
		} else {
			delete(s.entries, id)
			result.Removed = append(result.Removed, id)
		}
	}

	if err := s.persistLocked(ctx); err != nil {
		s.entries = prev
		return SyncResult{}, err
	}

	sort.Strings(result.Added)
	sort.Strings(result.Removed)
	sort.Strings(result.Kept)
	return result, nil
}

// persistLocked writes the current state to the sink. Caller holds s.mu.
func (s *Store) persistLocked(ctx context.Context) error {
	state := State{
		Entries: make(map[string]Entry, len(s.entries)),
		Pending: append([]Op(nil), s.pending...),
	}
	for id, e := range s.entries {
		state.Entries[id] = e
	}

	if err := s.sink.Store(ctx, state); err != nil {
		return fmt.Errorf("failed to persist saved state: %w", err)
	}
	return nil
}
