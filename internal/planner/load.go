package planner

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sadopc/tinynotes/internal/dates"
	"github.com/sadopc/tinynotes/internal/store"
)

// LoadInitial replaces the collection with every inbox and someday task plus
// the current week's tasks, and resets the loaded-week set to the current
// week. On failure the collection is left empty and the error is recorded in
// Status.
func (p *Planner) LoadInitial(ctx context.Context) error {
	week := p.WeekKey(0)

	p.mu.Lock()
	p.loading = true
	p.err = ""
	p.mu.Unlock()
	p.changed()

	var base, current []store.Task
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		base, err = p.repo.FetchBaseTasks(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		current, err = p.repo.FetchWeekTasks(gctx, week)
		return err
	})
	err := g.Wait()

	p.mu.Lock()
	p.loading = false
	if err != nil {
		p.tasks = nil
		p.loaded = make(map[string]struct{})
		p.err = err.Error()
	} else {
		p.tasks = append(base, current...)
		p.loaded = map[string]struct{}{week: {}}
	}
	p.mu.Unlock()
	p.changed()

	if err != nil {
		p.log.Error("initial load failed", zap.Error(err))
		return fmt.Errorf("load tasks: %w", err)
	}
	p.log.Debug("initial load", zap.Int("tasks", len(base)+len(current)), zap.String("week", week))
	return nil
}

// LoadWeek fetches the week offset weeks from the current one and merges it
// into the collection. Already loaded weeks are not fetched again and
// concurrent calls for the same week share one fetch. A failed fetch records
// the error and leaves the loaded set unchanged.
//
// The shared fetch is detached from ctx: a caller that gives up returns
// ctx.Err() while the others keep waiting on the same fetch.
func (p *Planner) LoadWeek(ctx context.Context, offset int) error {
	week := p.WeekKey(offset)
	if p.IsWeekLoaded(week) {
		return nil
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := p.loads.DoChan(week, func() (any, error) {
		if p.IsWeekLoaded(week) {
			return nil, nil
		}

		p.mu.Lock()
		p.weekLoadings++
		p.mu.Unlock()
		p.changed()

		fctx, cancel := context.WithTimeout(fetchCtx, p.persistTimeout)
		fetched, err := p.repo.FetchWeekTasks(fctx, week)
		cancel()

		p.mu.Lock()
		p.weekLoadings--
		if err != nil {
			p.err = err.Error()
		} else {
			p.mergeLocked(fetched)
			p.loaded[week] = struct{}{}
			p.err = ""
		}
		p.mu.Unlock()
		p.changed()

		if err != nil {
			p.log.Warn("week load failed", zap.String("week", week), zap.Error(err))
			return nil, err
		}
		p.log.Debug("week loaded", zap.String("week", week), zap.Int("tasks", len(fetched)))
		return nil, nil
	})

	select {
	case <-ctx.Done():
		return fmt.Errorf("load week %s: %w", week, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return fmt.Errorf("load week %s: %w", week, res.Err)
		}
		return nil
	}
}

// LoadDate loads the week containing date. Tasks appended to a day are
// ordered after what is in memory, so callers load a destination week
// before creating or moving tasks into it.
func (p *Planner) LoadDate(ctx context.Context, date string) error {
	offset, err := dates.WeekOffset(p.now(), date)
	if err != nil {
		return err
	}
	return p.LoadWeek(ctx, offset)
}

// IsDateLoaded reports whether the week containing date is loaded.
func (p *Planner) IsDateLoaded(date string) bool {
	key, err := dates.WeekKey(date)
	return err == nil && p.IsWeekLoaded(key)
}

// mergeLocked adds fetched tasks not already present. An id already in the
// collection keeps its in-memory version, which may carry newer optimistic
// state.
func (p *Planner) mergeLocked(fetched []store.Task) {
	for _, t := range fetched {
		if p.indexLocked(t.ID) >= 0 {
			continue
		}
		p.tasks = append(p.tasks, t)
	}
}
