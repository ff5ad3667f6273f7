package syncstatus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	shortLinger = 20 * time.Millisecond
	longLinger  = 40 * time.Millisecond
)

func newTracker(t *testing.T, opts ...Option) *Tracker {
	t.Helper()
	tr := New(append([]Option{WithLinger(shortLinger, longLinger)}, opts...)...)
	t.Cleanup(tr.Close)
	return tr
}

func TestStartsIdle(t *testing.T) {
	tr := newTracker(t)
	assert.Equal(t, Idle, tr.Status())
	assert.Equal(t, 0, tr.Pending())
}

func TestSyncingWhilePending(t *testing.T) {
	tr := newTracker(t)
	a := tr.Begin()
	b := tr.Begin()
	assert.Equal(t, Syncing, tr.Status())
	assert.Equal(t, 2, tr.Pending())

	tr.Done(a)
	assert.Equal(t, Syncing, tr.Status(), "one operation still pending")

	tr.Done(b)
	assert.Equal(t, Synced, tr.Status())
	assert.Equal(t, 0, tr.Pending())
}

func TestSyncedRevertsToIdle(t *testing.T) {
	tr := newTracker(t)
	tr.Done(tr.Begin())
	require.Equal(t, Synced, tr.Status())

	require.Eventually(t, func() bool { return tr.Status() == Idle }, time.Second, 5*time.Millisecond)
}

func TestNewOperationSupersedesRevert(t *testing.T) {
	tr := newTracker(t)
	tr.Done(tr.Begin())
	tk := tr.Begin()

	time.Sleep(3 * shortLinger)
	assert.Equal(t, Syncing, tr.Status(), "revert timer must not fire while work is pending")
	tr.Done(tk)
	assert.Equal(t, Synced, tr.Status())
}

func TestFailForcesErrorAndResetsCounter(t *testing.T) {
	tr := newTracker(t)
	a := tr.Begin()
	tr.Begin()
	tr.Fail()

	assert.Equal(t, Error, tr.Status())
	assert.Equal(t, 0, tr.Pending())

	// A late success from before the failure does not touch the counter.
	tr.Done(a)
	assert.Equal(t, Error, tr.Status())
	assert.Equal(t, 0, tr.Pending())
}

func TestErrorRevertsAfterLongerLinger(t *testing.T) {
	tr := newTracker(t)
	tr.Begin()
	tr.Fail()

	time.Sleep(shortLinger + 5*time.Millisecond)
	assert.Equal(t, Error, tr.Status(), "error lingers longer than synced")

	require.Eventually(t, func() bool { return tr.Status() == Idle }, time.Second, 5*time.Millisecond)
}

func TestVoidTicketDoesNotDrainNewWork(t *testing.T) {
	tr := newTracker(t)
	old := tr.Begin()
	tr.Fail()
	fresh := tr.Begin()

	tr.Done(old)
	assert.Equal(t, Syncing, tr.Status())
	assert.Equal(t, 1, tr.Pending())

	tr.Done(fresh)
	assert.Equal(t, Synced, tr.Status())
}

func TestOnChange(t *testing.T) {
	var mu sync.Mutex
	var seen []Status
	tr := newTracker(t, WithOnChange(func(s Status) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	}))

	a := tr.Begin()
	tr.Begin() // no transition: already syncing
	tr.Done(a)
	tr.Fail()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3 && seen[2] == Idle
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Status{Syncing, Error, Idle}, seen)
}

func TestCloseStopsRevert(t *testing.T) {
	tr := New(WithLinger(shortLinger, shortLinger))
	tr.Done(tr.Begin())
	tr.Close()

	time.Sleep(3 * shortLinger)
	assert.Equal(t, Synced, tr.Status())
}

func TestConcurrentUse(t *testing.T) {
	tr := New(WithLinger(time.Minute, time.Minute))
	t.Cleanup(tr.Close)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Done(tr.Begin())
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, tr.Pending())
	assert.Equal(t, Synced, tr.Status())
}
