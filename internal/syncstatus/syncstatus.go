// Package syncstatus tracks in-flight persistence work and exposes a
// presentation-only status: idle, syncing, synced or error. Nothing in it
// gates the operations it observes.
package syncstatus

import (
	"sync"
	"time"
)

type Status string

const (
	Idle    Status = "idle"
	Syncing Status = "syncing"
	Synced  Status = "synced"
	Error   Status = "error"
)

const (
	DefaultSyncedLinger = 3 * time.Second
	DefaultErrorLinger  = 5 * time.Second
)

// Tracker counts pending operations. While the count is positive the status
// is Syncing; when it drains the status is Synced for SyncedLinger, then
// Idle. A failure zeroes the count and shows Error for ErrorLinger.
type Tracker struct {
	mu       sync.Mutex
	pending  int
	status   Status
	timer    *time.Timer
	gen      uint64
	epoch    uint64
	closed   bool
	onChange func(Status)

	syncedLinger time.Duration
	errorLinger  time.Duration
}

type Option func(*Tracker)

func WithLinger(synced, failed time.Duration) Option {
	return func(t *Tracker) {
		t.syncedLinger = synced
		t.errorLinger = failed
	}
}

// WithOnChange registers fn to be called after every status transition. It
// runs without the tracker's lock held.
func WithOnChange(fn func(Status)) Option {
	return func(t *Tracker) { t.onChange = fn }
}

func New(opts ...Option) *Tracker {
	t := &Tracker{
		status:       Idle,
		syncedLinger: DefaultSyncedLinger,
		errorLinger:  DefaultErrorLinger,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending
}

// Ticket identifies one dispatched operation. Tickets issued before a
// failure are void: their completion no longer moves the counter.
type Ticket uint64

// Begin records a dispatched operation.
func (t *Tracker) Begin() Ticket {
	t.mu.Lock()
	t.pending++
	t.stopTimerLocked()
	changed := t.setLocked(Syncing)
	ticket := Ticket(t.epoch)
	t.mu.Unlock()
	t.notify(changed, Syncing)
	return ticket
}

// Done records a successful operation.
func (t *Tracker) Done(ticket Ticket) {
	t.mu.Lock()
	if uint64(ticket) != t.epoch {
		t.mu.Unlock()
		return
	}
	if t.pending > 0 {
		t.pending--
	}
	if t.pending > 0 {
		t.mu.Unlock()
		return
	}
	changed := t.setLocked(Synced)
	t.scheduleIdleLocked(t.syncedLinger)
	t.mu.Unlock()
	t.notify(changed, Synced)
}

// Fail records a failed operation, dropping every pending count.
func (t *Tracker) Fail() {
	t.mu.Lock()
	t.pending = 0
	t.epoch++
	changed := t.setLocked(Error)
	t.scheduleIdleLocked(t.errorLinger)
	t.mu.Unlock()
	t.notify(changed, Error)
}

// Close stops any pending revert timer. The tracker keeps counting but no
// longer reverts to Idle on its own.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.stopTimerLocked()
}

func (t *Tracker) setLocked(s Status) bool {
	if t.status == s {
		return false
	}
	t.status = s
	return true
}

func (t *Tracker) stopTimerLocked() {
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *Tracker) scheduleIdleLocked(after time.Duration) {
	t.stopTimerLocked()
	if t.closed {
		return
	}
	gen := t.gen
	t.timer = time.AfterFunc(after, func() {
		t.mu.Lock()
		if gen != t.gen || t.pending > 0 {
			t.mu.Unlock()
			return
		}
		t.timer = nil
		changed := t.setLocked(Idle)
		t.mu.Unlock()
		t.notify(changed, Idle)
	})
}

func (t *Tracker) notify(changed bool, s Status) {
	if changed && t.onChange != nil {
		t.onChange(s)
	}
}
