package planner

import (
	"context"
	"fmt"
	"slices"

	"github.com/sadopc/tinynotes/internal/dates"
	"github.com/sadopc/tinynotes/internal/store"
)

// CreateOptions holds the optional fields of a new task. Date is only used
// for week tasks and defaults to today.
type CreateOptions struct {
	Description string
	Date        string
	Time        string
	EndTime     string
	Color       store.Color
}

// CreateTask appends a new task to its partition and returns it immediately.
func (p *Planner) CreateTask(title string, area store.Area, opts CreateOptions) (store.Task, *Pending, error) {
	if !area.Valid() {
		return store.Task{}, nil, fmt.Errorf("create task: %w: %q", ErrInvalidArea, area)
	}
	if err := validateFields(opts.Date, opts.Time, opts.EndTime, opts.Color); err != nil {
		return store.Task{}, nil, fmt.Errorf("create task: %w", err)
	}

	now := p.now()
	t := store.Task{
		ID:          p.newID(),
		Title:       title,
		Description: opts.Description,
		Area:        area,
		Date:        opts.Date,
		Time:        opts.Time,
		EndTime:     opts.EndTime,
		Color:       opts.Color,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	t = normalize(t, dates.Today(now))

	p.mu.Lock()
	t.Order = p.nextOrderLocked(t.Partition(), "")
	pending := p.runLocked(txn{
		op:     "create task",
		change: changeSet{put: []store.Task{t}},
		persist: func(ctx context.Context) error {
			return p.repo.Insert(ctx, t)
		},
	})
	return t, pending, nil
}

// UpdateTask merges patch into the task and refreshes UpdatedAt. A date
// change into a week that is not loaded removes the task from the collection.
func (p *Planner) UpdateTask(id string, patch store.Patch) (*Pending, error) {
	if patch.Area != nil && !patch.Area.Valid() {
		return nil, fmt.Errorf("update task: %w: %q", ErrInvalidArea, *patch.Area)
	}
	var date, start, end string
	var color store.Color
	if patch.Date != nil {
		date = *patch.Date
	}
	if patch.Time != nil {
		start = *patch.Time
	}
	if patch.EndTime != nil {
		end = *patch.EndTime
	}
	if patch.Color != nil {
		color = *patch.Color
	}
	if err := validateFields(date, start, end, color); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return p.edit("update task", id, func(t store.Task) store.Task {
		return patch.Apply(t)
	})
}

// ToggleComplete flips the task's completed flag.
func (p *Planner) ToggleComplete(id string) (*Pending, error) {
	return p.edit("toggle complete", id, func(t store.Task) store.Task {
		t.Completed = !t.Completed
		return t
	})
}

func (p *Planner) DeleteTask(id string) (*Pending, error) {
	p.mu.Lock()
	if p.indexLocked(id) < 0 {
		p.mu.Unlock()
		return nil, fmt.Errorf("delete task %s: %w", id, ErrTaskNotFound)
	}
	return p.runLocked(txn{
		op:     "delete task",
		change: changeSet{remove: []string{id}},
		persist: func(ctx context.Context) error {
			return p.repo.Delete(ctx, id)
		},
	}), nil
}

// MoveTask relocates a task to (area, date). Without targetOrder it is
// appended to the destination partition. With targetOrder it is inserted at
// that position and the destination partition is renumbered densely.
func (p *Planner) MoveTask(id string, area store.Area, date string, targetOrder *int) (*Pending, error) {
	if !area.Valid() {
		return nil, fmt.Errorf("move task: %w: %q", ErrInvalidArea, area)
	}
	if area == store.AreaWeek && date != "" && !dates.Valid(date) {
		return nil, fmt.Errorf("move task: %w: %q", dates.ErrInvalidDate, date)
	}
	p.mu.Lock()
	return p.moveLocked("move task", id, area, date, targetOrder)
}

// MoveToTomorrow moves the task to the day after its current date, or after
// today when it has none.
func (p *Planner) MoveToTomorrow(id string) (*Pending, error) {
	return p.MoveByDays(id, 1)
}

// MoveByDays shifts the task n days from its current date, or from today
// when it has none. The task always ends up in the week area.
func (p *Planner) MoveByDays(id string, n int) (*Pending, error) {
	p.mu.Lock()
	i := p.indexLocked(id)
	if i < 0 {
		p.mu.Unlock()
		return nil, fmt.Errorf("move task %s: %w", id, ErrTaskNotFound)
	}
	from := p.tasks[i].Date
	if from == "" {
		from = dates.Today(p.now())
	}
	to, err := dates.AddDays(from, n)
	if err != nil {
		p.mu.Unlock()
		return nil, fmt.Errorf("move task: %w", err)
	}
	return p.moveLocked("move task", id, store.AreaWeek, to, nil)
}

// ReorderTasks assigns order = index to each id and moves them all into
// (area, date). Unknown ids fail the whole call before anything changes; a
// failed row rolls back the whole batch.
func (p *Planner) ReorderTasks(orderedIDs []string, area store.Area, date string) (*Pending, error) {
	if !area.Valid() {
		return nil, fmt.Errorf("reorder tasks: %w: %q", ErrInvalidArea, area)
	}
	if area == store.AreaWeek && !dates.Valid(date) {
		return nil, fmt.Errorf("reorder tasks: %w: %q", dates.ErrInvalidDate, date)
	}
	if area != store.AreaWeek {
		date = ""
	}
	if len(orderedIDs) == 0 {
		return resolved(nil), nil
	}

	p.mu.Lock()
	now := p.now()
	seen := make(map[string]bool, len(orderedIDs))
	olds := make([]store.Task, 0, len(orderedIDs))
	puts := make([]store.Task, 0, len(orderedIDs))
	for j, id := range orderedIDs {
		if seen[id] {
			p.mu.Unlock()
			return nil, fmt.Errorf("reorder tasks: duplicate id %s", id)
		}
		seen[id] = true
		i := p.indexLocked(id)
		if i < 0 {
			p.mu.Unlock()
			return nil, fmt.Errorf("reorder tasks %s: %w", id, ErrTaskNotFound)
		}
		old := p.tasks[i]
		next := old
		next.Area = area
		next.Date = date
		next.Order = j
		next.UpdatedAt = now
		olds = append(olds, old)
		puts = append(puts, next)
	}
	return p.runLocked(txn{
		op:      "reorder tasks",
		change:  changeSet{put: puts},
		persist: p.updateAll(olds, puts),
	}), nil
}

// FinishDay rolls every incomplete week task on date over to the next day,
// after the tasks already there. When the next day's week is not loaded the
// moved tasks leave the collection once persisted.
func (p *Planner) FinishDay(date string) (*Pending, error) {
	if !dates.Valid(date) {
		return nil, fmt.Errorf("finish day: %w: %q", dates.ErrInvalidDate, date)
	}
	tomorrow, err := dates.AddDays(date, 1)
	if err != nil {
		return nil, fmt.Errorf("finish day: %w", err)
	}

	p.mu.Lock()
	open := p.selectLocked(func(t store.Task) bool {
		return t.Area == store.AreaWeek && t.Date == date && !t.Completed
	})
	if len(open) == 0 {
		p.mu.Unlock()
		return resolved(nil), nil
	}
	sortByOrder(open)

	base := p.nextOrderLocked(store.Partition{Area: store.AreaWeek, Date: tomorrow}, "")
	now := p.now()
	puts := make([]store.Task, len(open))
	ids := make([]string, len(open))
	for j, t := range open {
		t.Date = tomorrow
		t.Order = base + j
		t.UpdatedAt = now
		puts[j] = t
		ids[j] = t.ID
	}
	return p.runLocked(txn{
		op:      "finish day",
		change:  changeSet{put: puts},
		persist: p.updateAll(open, puts),
		commit: func() changeSet {
			if p.dateLoadedLocked(tomorrow) {
				return changeSet{}
			}
			return changeSet{remove: ids}
		},
	}), nil
}

// edit applies fn to a single task and persists the resulting diff.
func (p *Planner) edit(op, id string, fn func(store.Task) store.Task) (*Pending, error) {
	p.mu.Lock()
	i := p.indexLocked(id)
	if i < 0 {
		p.mu.Unlock()
		return nil, fmt.Errorf("%s %s: %w", op, id, ErrTaskNotFound)
	}
	now := p.now()
	old := p.tasks[i]
	next := normalize(fn(old), dates.Today(now))
	next.UpdatedAt = now

	return p.runLocked(txn{
		op:      op,
		change:  p.suppressLocked(old, next),
		persist: p.updateAll([]store.Task{old}, []store.Task{next}),
	}), nil
}

// moveLocked must be called with p.mu held; it releases it.
func (p *Planner) moveLocked(op, id string, area store.Area, date string, targetOrder *int) (*Pending, error) {
	i := p.indexLocked(id)
	if i < 0 {
		p.mu.Unlock()
		return nil, fmt.Errorf("%s %s: %w", op, id, ErrTaskNotFound)
	}
	now := p.now()
	old := p.tasks[i]
	next := old
	next.Area = area
	next.Date = date
	next = normalize(next, dates.Today(now))
	next.UpdatedAt = now

	if targetOrder == nil {
		next.Order = p.nextOrderLocked(next.Partition(), id)
		return p.runLocked(txn{
			op:      op,
			change:  p.suppressLocked(old, next),
			persist: p.updateAll([]store.Task{old}, []store.Task{next}),
		}), nil
	}

	rest := p.partitionLocked(next.Partition(), id)
	pos := min(max(*targetOrder, 0), len(rest))
	ordered := slices.Insert(rest, pos, next)

	var olds, puts []store.Task
	for j, t := range ordered {
		if t.ID == id {
			t.Order = j
			next = t
			olds = append(olds, old)
			puts = append(puts, t)
			continue
		}
		if t.Order == j {
			continue
		}
		renumbered := t
		renumbered.Order = j
		renumbered.UpdatedAt = now
		olds = append(olds, t)
		puts = append(puts, renumbered)
	}

	change := changeSet{put: puts}
	if s := p.suppressLocked(old, next); len(s.remove) > 0 {
		others := slices.DeleteFunc(slices.Clone(puts), func(t store.Task) bool { return t.ID == id })
		change = changeSet{put: others, remove: s.remove}
	}
	return p.runLocked(txn{
		op:      op,
		change:  change,
		persist: p.updateAll(olds, puts),
	}), nil
}

// suppressLocked returns the optimistic change for old becoming next: a
// replacement, or a removal when next lands in a week that is not loaded.
func (p *Planner) suppressLocked(old, next store.Task) changeSet {
	if next.Area == store.AreaWeek && next.Date != old.Date && !p.dateLoadedLocked(next.Date) {
		return changeSet{remove: []string{next.ID}}
	}
	return changeSet{put: []store.Task{next}}
}

// updateAll persists each olds[i] -> news[i] diff in turn, stopping at the
// first failure.
func (p *Planner) updateAll(olds, news []store.Task) func(context.Context) error {
	patches := make([]store.Patch, len(news))
	for i := range news {
		patches[i] = store.Diff(olds[i], news[i])
	}
	return func(ctx context.Context) error {
		for i, t := range news {
			if err := p.repo.Update(ctx, t.ID, patches[i]); err != nil {
				return fmt.Errorf("task %s: %w", t.ID, err)
			}
		}
		return nil
	}
}

// normalize keeps date set exactly when the task is in the week area.
func normalize(t store.Task, today string) store.Task {
	if t.Area != store.AreaWeek {
		t.Date = ""
	} else if t.Date == "" {
		t.Date = today
	}
	return t
}

func validateFields(date, start, end string, color store.Color) error {
	if date != "" && !dates.Valid(date) {
		return fmt.Errorf("%w: %q", dates.ErrInvalidDate, date)
	}
	for _, c := range []string{start, end} {
		if c == "" {
			continue
		}
		if _, err := dates.ParseClock(c); err != nil {
			return err
		}
	}
	if !color.Valid() {
		return fmt.Errorf("invalid color %q", color)
	}
	return nil
}
