package planner

import (
	"cmp"
	"slices"

	"github.com/sadopc/tinynotes/internal/store"
)

// GetTasksByArea returns the tasks in area sorted by order.
func (p *Planner) GetTasksByArea(area store.Area) []store.Task {
	p.mu.Lock()
	out := p.selectLocked(func(t store.Task) bool { return t.Area == area })
	p.mu.Unlock()
	sortByOrder(out)
	return out
}

// GetTasksByDate returns the week tasks on date, incomplete tasks first and
// each group sorted by order.
func (p *Planner) GetTasksByDate(date string) []store.Task {
	p.mu.Lock()
	out := p.selectLocked(func(t store.Task) bool {
		return t.Area == store.AreaWeek && t.Date == date
	})
	p.mu.Unlock()
	slices.SortStableFunc(out, func(a, b store.Task) int {
		if a.Completed != b.Completed {
			if a.Completed {
				return 1
			}
			return -1
		}
		return cmp.Compare(a.Order, b.Order)
	})
	return out
}

func (p *Planner) selectLocked(keep func(store.Task) bool) []store.Task {
	var out []store.Task
	for _, t := range p.tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

// partitionLocked returns the tasks in part sorted by order, leaving out
// the task with id skip.
func (p *Planner) partitionLocked(part store.Partition, skip string) []store.Task {
	out := p.selectLocked(func(t store.Task) bool {
		return t.ID != skip && t.Partition() == part
	})
	sortByOrder(out)
	return out
}

// nextOrderLocked is the order for a task appended to part: 0 when the
// partition is empty, otherwise one past its largest order.
func (p *Planner) nextOrderLocked(part store.Partition, skip string) int {
	next := 0
	for _, t := range p.tasks {
		if t.ID == skip || t.Partition() != part {
			continue
		}
		if t.Order+1 > next {
			next = t.Order + 1
		}
	}
	return next
}

func sortByOrder(ts []store.Task) {
	slices.SortStableFunc(ts, func(a, b store.Task) int {
		return cmp.Compare(a.Order, b.Order)
	})
}
