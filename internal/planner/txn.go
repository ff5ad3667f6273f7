package planner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sadopc/tinynotes/internal/store"
)

// Pending is the outcome of an operation's background persistence.
type Pending struct {
	done chan struct{}
	err  error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func resolved(err error) *Pending {
	p := newPending()
	p.finish(err)
	return p
}

func (p *Pending) finish(err error) {
	p.err = err
	close(p.done)
}

// Done is closed once persistence has succeeded or been rolled back.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Err returns the persistence error, or nil while still in flight.
func (p *Pending) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Wait blocks until persistence finishes or ctx ends.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// changeSet is an optimistic edit of the collection.
type changeSet struct {
	put    []store.Task
	remove []string
}

func (c changeSet) ids() []string {
	ids := make([]string, 0, len(c.put)+len(c.remove))
	for _, t := range c.put {
		ids = append(ids, t.ID)
	}
	return append(ids, c.remove...)
}

// txn is one two-phase operation: change is applied immediately, persist runs
// in the background, and on success commit (if any) is applied on top.
type txn struct {
	op      string
	change  changeSet
	persist func(ctx context.Context) error
	commit  func() changeSet
}

// preimage holds the touched tasks as they were before apply; nil means the
// task was absent.
type preimage map[string]*store.Task

func (p *Planner) captureLocked(ids []string) preimage {
	pre := make(preimage, len(ids))
	for _, id := range ids {
		if _, seen := pre[id]; seen {
			continue
		}
		if i := p.indexLocked(id); i >= 0 {
			t := p.tasks[i]
			pre[id] = &t
		} else {
			pre[id] = nil
		}
	}
	return pre
}

func (p *Planner) applyLocked(c changeSet) {
	for _, t := range c.put {
		if i := p.indexLocked(t.ID); i >= 0 {
			p.tasks[i] = t
		} else {
			p.tasks = append(p.tasks, t)
		}
	}
	for _, id := range c.remove {
		if i := p.indexLocked(id); i >= 0 {
			p.tasks = append(p.tasks[:i], p.tasks[i+1:]...)
		}
	}
}

func (p *Planner) restoreLocked(pre preimage) {
	var c changeSet
	for id, t := range pre {
		if t == nil {
			c.remove = append(c.remove, id)
		} else {
			c.put = append(c.put, *t)
		}
	}
	p.applyLocked(c)
}

// runLocked applies t optimistically and starts its persistence. It must be
// called with p.mu held and releases it.
func (p *Planner) runLocked(t txn) *Pending {
	pre := p.captureLocked(t.change.ids())
	p.applyLocked(t.change)
	p.mu.Unlock()
	p.changed()

	ticket := p.tracker.Begin()
	pending := newPending()
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), p.persistTimeout)
		defer cancel()

		if err := t.persist(ctx); err != nil {
			p.mu.Lock()
			p.restoreLocked(pre)
			p.mu.Unlock()
			p.tracker.Fail()
			p.log.Warn("rolled back optimistic change",
				zap.String("op", t.op),
				zap.Strings("ids", t.change.ids()),
				zap.Error(err))
			p.changed()
			pending.finish(fmt.Errorf("%s: %w", t.op, err))
			return
		}

		if t.commit != nil {
			p.mu.Lock()
			p.applyLocked(t.commit())
			p.mu.Unlock()
			p.changed()
		}
		p.tracker.Done(ticket)
		pending.finish(nil)
	}()
	return pending
}
