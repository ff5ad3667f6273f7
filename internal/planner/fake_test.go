package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sadopc/tinynotes/internal/store"
)

var errBackend = errors.New("backend unavailable")

// fakeRepo is an in-memory Repository with call counters and injectable
// failures.
type fakeRepo struct {
	mu    sync.Mutex
	base  []store.Task
	weeks map[string][]store.Task
	rows  map[string]store.Task

	fetchErr  error
	insertErr error
	deleteErr error
	updateErr map[string]error // by task id

	// gate, when set, blocks FetchWeekTasks until closed.
	gate chan struct{}

	calls   map[string]int
	updated []string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		weeks:     make(map[string][]store.Task),
		rows:      make(map[string]store.Task),
		updateErr: make(map[string]error),
		calls:     make(map[string]int),
	}
}

func (f *fakeRepo) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeRepo) totalWrites() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls["insert"] + f.calls["update"] + f.calls["delete"]
}

func (f *fakeRepo) row(id string) (store.Task, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[id]
	return t, ok
}

func (f *fakeRepo) FetchBaseTasks(ctx context.Context) ([]store.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["fetchBase"]++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return append([]store.Task(nil), f.base...), nil
}

func (f *fakeRepo) FetchWeekTasks(ctx context.Context, weekKey string) ([]store.Task, error) {
	f.mu.Lock()
	gate := f.gate
	f.calls["fetchWeek"]++
	f.calls["fetchWeek:"+weekKey]++
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return append([]store.Task(nil), f.weeks[weekKey]...), nil
}

func (f *fakeRepo) Insert(ctx context.Context, t store.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["insert"]++
	if f.insertErr != nil {
		return f.insertErr
	}
	f.rows[t.ID] = t
	return nil
}

func (f *fakeRepo) Update(ctx context.Context, id string, p store.Patch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["update"]++
	f.updated = append(f.updated, id)
	if err := f.updateErr[id]; err != nil {
		return err
	}
	t, ok := f.rows[id]
	if !ok {
		return fmt.Errorf("update %s: %w", id, store.ErrNotFound)
	}
	f.rows[id] = p.Apply(t)
	return nil
}

func (f *fakeRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["delete"]++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.rows[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

// seed places t both in the fetch results and in the row table.
func (f *fakeRepo) seed(weekKey string, ts ...store.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range ts {
		if t.Area == store.AreaWeek {
			f.weeks[weekKey] = append(f.weeks[weekKey], t)
		} else {
			f.base = append(f.base, t)
		}
		f.rows[t.ID] = t
	}
}
