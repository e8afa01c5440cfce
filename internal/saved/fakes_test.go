package saved

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/terra-clan/compete-engine/internal/urgency"
)

var errBackendDown = errors.New("backend down")

// fakeBackend applies ops with the same last-writer-wins rule as the SQL upsert
type fakeBackend struct {
	mu       sync.Mutex
	rows     map[string]Entry
	applied  []Op
	failures int // remaining Apply calls that fail
	forgot   []string
	clock    urgency.Clock
}

func newFakeBackend(clock urgency.Clock) *fakeBackend {
	return &fakeBackend{rows: make(map[string]Entry), clock: clock}
}

func (f *fakeBackend) Apply(_ context.Context, op Op) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failures > 0 {
		f.failures--
		return errBackendDown
	}

	f.applied = append(f.applied, op)
	if cur, ok := f.rows[op.CompetitionID]; ok && cur.UpdatedAt.After(op.At) {
		return nil
	}
	f.rows[op.CompetitionID] = Entry{Saved: op.Saved, UpdatedAt: op.At}
	return nil
}

func (f *fakeBackend) Snapshot(_ context.Context) (Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	snap := Snapshot{IDs: []string{}, AsOf: f.clock.Now()}
	for id, e := range f.rows {
		if e.Saved {
			snap.IDs = append(snap.IDs, id)
		}
	}
	return snap, nil
}

func (f *fakeBackend) Forget(_ context.Context, ids []string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var n int64
	for _, id := range ids {
		if _, ok := f.rows[id]; ok {
			delete(f.rows, id)
			n++
		}
		f.forgot = append(f.forgot, id)
	}
	return n, nil
}

func (f *fakeBackend) set(id string, saved bool, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[id] = Entry{Saved: saved, UpdatedAt: at}
}

// failingSink rejects writes while broken is set
type failingSink struct {
	MemorySink
	broken bool
}

func (s *failingSink) Store(ctx context.Context, state State) error {
	if s.broken {
		return errors.New("disk full")
	}
	return s.MemorySink.Store(ctx, state)
}
