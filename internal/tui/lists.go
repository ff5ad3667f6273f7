package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/tinynotes/internal/config"
	"github.com/sadopc/tinynotes/internal/planner"
	"github.com/sadopc/tinynotes/internal/store"
)

var listAreas = []store.Area{store.AreaInbox, store.AreaSomeday}

type listsModel struct {
	planner *planner.Planner
	sched   config.ScheduleConfig
	width   int
	height  int

	col    int
	cursor int
	form   *taskForm
}

func newListsModel(p *planner.Planner, sched config.ScheduleConfig) listsModel {
	return listsModel{planner: p, sched: sched}
}

func (l *listsModel) setSize(w, h int) {
	l.width = w
	l.height = h
}

func (l listsModel) area() store.Area {
	return listAreas[l.col]
}

func (l listsModel) tasks() []store.Task {
	return l.planner.GetTasksByArea(l.area())
}

func (l listsModel) selected() (store.Task, bool) {
	tasks := l.tasks()
	if len(tasks) == 0 {
		return store.Task{}, false
	}
	return tasks[clamp(l.cursor, 0, len(tasks)-1)], true
}

func (l listsModel) update(msg tea.Msg) (listsModel, tea.Cmd) {
	if l.form != nil {
		cmd, done, submitted := l.form.update(msg)
		if !done {
			return l, cmd
		}
		f := l.form
		l.form = nil
		if submitted {
			return l, f.submit(l.planner, l.sched)
		}
		return l, nil
	}

	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return l, nil
	}
	switch {
	case key.Matches(km, keys.Up):
		l.cursor = max(0, l.cursor-1)
		return l, nil
	case key.Matches(km, keys.Down):
		l.cursor = clamp(l.cursor+1, 0, len(l.tasks())-1)
		return l, nil
	case key.Matches(km, keys.Left):
		l.col, l.cursor = 0, 0
		return l, nil
	case key.Matches(km, keys.Right):
		l.col, l.cursor = 1, 0
		return l, nil
	case key.Matches(km, keys.New):
		l.form = newTaskForm(store.Task{Area: l.area()}, false, l.sched)
		return l, l.form.form.Init()
	}

	t, ok := l.selected()
	if !ok {
		return l, nil
	}
	switch {
	case key.Matches(km, keys.Edit):
		l.form = newTaskForm(t, true, l.sched)
		return l, l.form.form.Init()
	case key.Matches(km, keys.Toggle):
		pending, err := l.planner.ToggleComplete(t.ID)
		return l, mutation("Updated "+t.Title, pending, err)
	case key.Matches(km, keys.Delete):
		pending, err := l.planner.DeleteTask(t.ID)
		return l, mutation("Deleted "+t.Title, pending, err)
	case key.Matches(km, keys.ToWeek):
		pending, err := l.planner.MoveTask(t.ID, store.AreaWeek, l.planner.Today(), nil)
		return l, mutation("Scheduled "+t.Title+" for today", pending, err)
	case key.Matches(km, keys.ShiftLeft), key.Matches(km, keys.ShiftRight):
		other := listAreas[1-l.col]
		pending, err := l.planner.MoveTask(t.ID, other, "", nil)
		return l, mutation(fmt.Sprintf("Moved %s to %s", t.Title, other), pending, err)
	case key.Matches(km, keys.MoveUp):
		return l.reorder(-1)
	case key.Matches(km, keys.MoveDown):
		return l.reorder(1)
	}
	return l, nil
}

func (l listsModel) reorder(delta int) (listsModel, tea.Cmd) {
	tasks := l.tasks()
	i := clamp(l.cursor, 0, len(tasks)-1)
	j := i + delta
	if j < 0 || j >= len(tasks) {
		return l, nil
	}
	ids := make([]string, len(tasks))
	for k, t := range tasks {
		ids[k] = t.ID
	}
	ids[i], ids[j] = ids[j], ids[i]
	pending, err := l.planner.ReorderTasks(ids, l.area(), "")
	if err == nil {
		l.cursor = j
	}
	return l, mutation("Reordered", pending, err)
}

func (l listsModel) view() string {
	if l.form != nil {
		return l.form.view(l.width - 4)
	}

	colWidth := max(20, (l.width-4)/len(listAreas)-2)
	var cols []string
	for i, area := range listAreas {
		cols = append(cols, l.renderList(i, area, colWidth))
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, cols...),
		"",
		mutedStyle.Render("  n: new  x: done  w: schedule today  H/L: other list  J/K: reorder  d: delete"),
	)
}

func (l listsModel) renderList(i int, area store.Area, width int) string {
	tasks := l.planner.GetTasksByArea(area)
	name := strings.ToUpper(string(area[:1])) + string(area[1:])
	rows := []string{titleStyle.Render(fmt.Sprintf("%s (%d)", name, len(tasks))), ""}

	if len(tasks) == 0 {
		rows = append(rows, mutedStyle.Render("Nothing here. Press n to add."))
	}
	for j, t := range tasks {
		selected := i == l.col && j == clamp(l.cursor, 0, len(tasks)-1)
		rows = append(rows, renderTaskLine(t, selected, width-4))
	}

	style := panelStyle
	if i == l.col {
		style = activePanelStyle
	}
	return style.Width(width).Render(strings.Join(rows, "\n"))
}
