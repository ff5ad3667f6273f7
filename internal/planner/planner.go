// Package planner holds the authoritative in-memory task collection. Every
// mutation is applied optimistically and persisted in the background; a
// persistence failure restores the touched tasks to their prior state.
//
// Concurrent mutations of the same task are last-writer-wins: each operation
// reads the collection under the lock at call time and a rollback restores
// only the tasks its own operation touched.
package planner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sadopc/tinynotes/internal/dates"
	"github.com/sadopc/tinynotes/internal/store"
	"github.com/sadopc/tinynotes/internal/syncstatus"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrInvalidArea  = errors.New("invalid area")
)

const defaultPersistTimeout = 15 * time.Second

// Repository is the persistence the planner depends on. *store.Store
// satisfies it.
type Repository interface {
	FetchBaseTasks(ctx context.Context) ([]store.Task, error)
	FetchWeekTasks(ctx context.Context, weekKey string) ([]store.Task, error)
	Insert(ctx context.Context, t store.Task) error
	Update(ctx context.Context, id string, p store.Patch) error
	Delete(ctx context.Context, id string) error
}

// Status is the planner's load and sync state for presentation.
type Status struct {
	Loading     bool
	WeekLoading bool
	Error       string
	Sync        syncstatus.Status
}

type Planner struct {
	repo           Repository
	log            *zap.Logger
	now            func() time.Time
	newID          func() string
	tracker        *syncstatus.Tracker
	onChange       func()
	persistTimeout time.Duration

	mu           sync.Mutex
	tasks        []store.Task
	loaded       map[string]struct{}
	loading      bool
	weekLoadings int
	err          string

	loads singleflight.Group
	wg    sync.WaitGroup
}

type Option func(*Planner)

func WithLogger(l *zap.Logger) Option {
	return func(p *Planner) { p.log = l }
}

// WithClock sets the source of "now", used for timestamps, today and the
// current week.
func WithClock(now func() time.Time) Option {
	return func(p *Planner) { p.now = now }
}

func WithIDGenerator(fn func() string) Option {
	return func(p *Planner) { p.newID = fn }
}

func WithTracker(t *syncstatus.Tracker) Option {
	return func(p *Planner) { p.tracker = t }
}

// WithOnChange registers fn to run after the collection or status changes:
// optimistic applies, commits, rollbacks and loads. It is called without the
// planner's lock held and may run on a background goroutine.
func WithOnChange(fn func()) Option {
	return func(p *Planner) { p.onChange = fn }
}

// WithPersistTimeout bounds each backend write and each week fetch.
func WithPersistTimeout(d time.Duration) Option {
	return func(p *Planner) { p.persistTimeout = d }
}

func New(repo Repository, opts ...Option) *Planner {
	p := &Planner{
		repo:           repo,
		log:            zap.NewNop(),
		now:            time.Now,
		newID:          uuid.NewString,
		persistTimeout: defaultPersistTimeout,
		loaded:         make(map[string]struct{}),
	}
	for _, o := range opts {
		o(p)
	}
	if p.tracker == nil {
		p.tracker = syncstatus.New()
	}
	return p
}

// Wait blocks until every background persistence call has finished.
func (p *Planner) Wait() {
	p.wg.Wait()
}

// Close waits for background work and stops the sync tracker's timers.
func (p *Planner) Close() {
	p.wg.Wait()
	p.tracker.Close()
}

func (p *Planner) Status() Status {
	p.mu.Lock()
	st := Status{
		Loading:     p.loading,
		WeekLoading: p.weekLoadings > 0,
		Error:       p.err,
	}
	p.mu.Unlock()
	st.Sync = p.tracker.Status()
	return st
}

// Today returns the planner's current local date.
func (p *Planner) Today() string {
	return dates.Today(p.now())
}

// WeekKey returns the key of the week offset weeks from the current one.
func (p *Planner) WeekKey(offset int) string {
	return dates.WeekKeyForOffset(p.now(), offset)
}

// Get returns a copy of the task with the given id.
func (p *Planner) Get(id string) (store.Task, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.indexLocked(id)
	if i < 0 {
		return store.Task{}, false
	}
	return p.tasks[i], true
}

// Tasks returns a copy of the whole loaded collection.
func (p *Planner) Tasks() []store.Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]store.Task, len(p.tasks))
	copy(out, p.tasks)
	return out
}

func (p *Planner) IsWeekLoaded(weekKey string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.loaded[weekKey]
	return ok
}

func (p *Planner) changed() {
	if p.onChange != nil {
		p.onChange()
	}
}

func (p *Planner) indexLocked(id string) int {
	for i := range p.tasks {
		if p.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// dateLoadedLocked reports whether date's week is in the loaded set.
func (p *Planner) dateLoadedLocked(date string) bool {
	key, err := dates.WeekKey(date)
	if err != nil {
		return false
	}
	_, ok := p.loaded[key]
	return ok
}
