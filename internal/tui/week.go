package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/tinynotes/internal/config"
	"github.com/sadopc/tinynotes/internal/dates"
	"github.com/sadopc/tinynotes/internal/planner"
	"github.com/sadopc/tinynotes/internal/store"
)

const daysPerWeek = 7

type weekModel struct {
	planner *planner.Planner
	sched   config.ScheduleConfig
	width   int
	height  int

	offset int // weeks from the current one
	day    int // 0 = Monday
	cursor int

	form       *taskForm
	showDetail bool
}

func newWeekModel(p *planner.Planner, sched config.ScheduleConfig) weekModel {
	w := weekModel{planner: p, sched: sched}
	w.day = w.todayIndex()
	return w
}

func (w *weekModel) setSize(width, height int) {
	w.width = width
	w.height = height
}

func (w weekModel) weekKey() string {
	return w.planner.WeekKey(w.offset)
}

func (w weekModel) days() []string {
	days, _ := dates.WeekDates(w.weekKey())
	return days
}

func (w weekModel) selectedDate() string {
	days := w.days()
	if w.day < 0 || w.day >= len(days) {
		return ""
	}
	return days[w.day]
}

func (w weekModel) todayIndex() int {
	days, _ := dates.WeekDates(w.planner.WeekKey(0))
	return max(0, slices.Index(days, w.planner.Today()))
}

func (w weekModel) dayTasks() []store.Task {
	return w.planner.GetTasksByDate(w.selectedDate())
}

func (w weekModel) selected() (store.Task, bool) {
	tasks := w.dayTasks()
	if len(tasks) == 0 {
		return store.Task{}, false
	}
	return tasks[clamp(w.cursor, 0, len(tasks)-1)], true
}

func (w weekModel) update(msg tea.Msg) (weekModel, tea.Cmd) {
	if w.form != nil {
		cmd, done, submitted := w.form.update(msg)
		if !done {
			return w, cmd
		}
		f := w.form
		w.form = nil
		if submitted {
			return w, f.submit(w.planner, w.sched)
		}
		return w, nil
	}

	if km, ok := msg.(tea.KeyMsg); ok {
		return w.updateKeys(km)
	}
	return w, nil
}

func (w weekModel) updateKeys(msg tea.KeyMsg) (weekModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		w.cursor = max(0, w.cursor-1)
	case key.Matches(msg, keys.Down):
		w.cursor = clamp(w.cursor+1, 0, len(w.dayTasks())-1)
	case key.Matches(msg, keys.Left):
		return w.stepDay(-1)
	case key.Matches(msg, keys.Right):
		return w.stepDay(1)
	case key.Matches(msg, keys.PrevWeek):
		return w.jumpWeek(w.offset - 1)
	case key.Matches(msg, keys.NextWeek):
		return w.jumpWeek(w.offset + 1)
	case key.Matches(msg, keys.Today):
		w.offset, w.day, w.cursor = 0, w.todayIndex(), 0
	case key.Matches(msg, keys.Detail):
		w.showDetail = !w.showDetail
	case key.Matches(msg, keys.New):
		t := store.Task{Area: store.AreaWeek, Date: w.selectedDate()}
		w.form = newTaskForm(t, false, w.sched)
		return w, w.form.form.Init()
	case key.Matches(msg, keys.FinishDay):
		day := w.selectedDate()
		next, _ := dates.AddDays(day, 1)
		return w, mutateOn(w.planner, next, "Finished "+day, func() (*planner.Pending, error) {
			return w.planner.FinishDay(day)
		})
	}

	t, ok := w.selected()
	if !ok {
		return w, nil
	}
	switch {
	case key.Matches(msg, keys.Edit):
		w.form = newTaskForm(t, true, w.sched)
		return w, w.form.form.Init()
	case key.Matches(msg, keys.Toggle):
		pending, err := w.planner.ToggleComplete(t.ID)
		return w, mutation("Updated "+t.Title, pending, err)
	case key.Matches(msg, keys.Delete):
		pending, err := w.planner.DeleteTask(t.ID)
		return w, mutation("Deleted "+t.Title, pending, err)
	case key.Matches(msg, keys.Tomorrow):
		next, _ := dates.AddDays(t.Date, 1)
		return w, mutateOn(w.planner, next, "Moved "+t.Title+" to tomorrow", func() (*planner.Pending, error) {
			return w.planner.MoveToTomorrow(t.ID)
		})
	case key.Matches(msg, keys.ShiftLeft):
		return w.shiftTask(t, -1)
	case key.Matches(msg, keys.ShiftRight):
		return w.shiftTask(t, 1)
	case key.Matches(msg, keys.MoveUp):
		return w.reorder(-1)
	case key.Matches(msg, keys.MoveDown):
		return w.reorder(1)
	}
	return w, nil
}

// stepDay moves the selection one day, crossing into the neighbouring week
// at the edges.
func (w weekModel) stepDay(delta int) (weekModel, tea.Cmd) {
	w.cursor = 0
	w.day += delta
	switch {
	case w.day < 0:
		w.day = daysPerWeek - 1
		w.offset--
	case w.day >= daysPerWeek:
		w.day = 0
		w.offset++
	default:
		return w, nil
	}
	return w, loadWeekCmd(w.planner, w.offset)
}

func (w weekModel) jumpWeek(offset int) (weekModel, tea.Cmd) {
	w.offset = offset
	w.cursor = 0
	return w, loadWeekCmd(w.planner, offset)
}

// shiftTask moves t by delta days and keeps it selected.
func (w weekModel) shiftTask(t store.Task, delta int) (weekModel, tea.Cmd) {
	dest, _ := dates.AddDays(t.Date, delta)
	cmd := mutateOn(w.planner, dest, "Moved "+t.Title, func() (*planner.Pending, error) {
		return w.planner.MoveByDays(t.ID, delta)
	})
	next, load := w.stepDay(delta)
	if moved, ok := w.planner.Get(t.ID); ok {
		next.cursor = max(0, slices.IndexFunc(next.dayTasks(), func(x store.Task) bool { return x.ID == moved.ID }))
	}
	return next, tea.Batch(cmd, load)
}

// reorder swaps the selected task with its neighbour and renumbers the day.
func (w weekModel) reorder(delta int) (weekModel, tea.Cmd) {
	tasks := w.dayTasks()
	i := clamp(w.cursor, 0, len(tasks)-1)
	j := i + delta
	if j < 0 || j >= len(tasks) {
		return w, nil
	}
	ids := make([]string, len(tasks))
	for k, t := range tasks {
		ids[k] = t.ID
	}
	ids[i], ids[j] = ids[j], ids[i]
	pending, err := w.planner.ReorderTasks(ids, store.AreaWeek, w.selectedDate())
	if err == nil {
		w.cursor = j
	}
	return w, mutation("Reordered", pending, err)
}

func (w weekModel) view() string {
	if w.form != nil {
		return w.form.view(w.width - 4)
	}

	wk := w.weekKey()
	title := titleStyle.Render("Week of " + wk)
	if w.offset == 0 {
		title += mutedStyle.Render("  (this week)")
	} else if !w.planner.IsWeekLoaded(wk) {
		title += mutedStyle.Render("  loading…")
	}

	colWidth := max(12, (w.width-2)/daysPerWeek-2)
	var cols []string
	for i, day := range w.days() {
		cols = append(cols, w.renderDay(i, day, colWidth))
	}
	grid := lipgloss.JoinHorizontal(lipgloss.Top, cols...)

	parts := []string{title, "", grid}
	if w.showDetail {
		parts = append(parts, "", w.renderDetail())
	}
	parts = append(parts, "", mutedStyle.Render("  n: new  x: done  m: tomorrow  F: finish day  H/L: shift  J/K: reorder  [/]: week  v: details"))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (w weekModel) renderDay(i int, day string, width int) string {
	d, _ := dates.Parse(day)
	heading := d.Format("Mon 02")
	if day == w.planner.Today() {
		heading = todayStyle.Render(heading)
	} else {
		heading = subtitleStyle.Render(heading)
	}

	tasks := w.planner.GetTasksByDate(day)
	rows := []string{heading, ""}
	open, spent := 0, 0
	for j, t := range tasks {
		selected := i == w.day && j == clamp(w.cursor, 0, len(tasks)-1)
		rows = append(rows, renderTaskLine(t, selected, width-2))
		if !t.Completed {
			open++
		}
		if t.Time != "" && t.EndTime != "" {
			if mins, err := dates.Duration(t.Time, t.EndTime); err == nil {
				spent += mins
			}
		}
	}
	if len(tasks) == 0 {
		rows = append(rows, mutedStyle.Render("·"))
	}
	footer := fmt.Sprintf("%d open", open)
	if spent > 0 {
		footer += " " + formatMinutes(spent)
	}
	rows = append(rows, "", mutedStyle.Render(footer))

	style := dayStyle
	if i == w.day {
		style = selectedDayStyle
	}
	return style.Width(width).Render(strings.Join(rows, "\n"))
}

// renderTaskLine draws a task as "● 09:00 title" within width cells.
func renderTaskLine(t store.Task, selected bool, width int) string {
	text := t.Title
	if t.Time != "" {
		text = t.Time + " " + text
	}
	text = truncate(text, width-4)

	cursor := "  "
	style := normalItemStyle
	switch {
	case selected:
		cursor = "> "
		style = selectedItemStyle
	case t.Completed:
		style = doneStyle
	}
	return cursor + tagDot(t.Color) + " " + style.Render(text)
}

func (w weekModel) renderDetail() string {
	t, ok := w.selected()
	if !ok {
		return panelStyle.Width(w.width - 4).Render(mutedStyle.Render("No task selected"))
	}

	head := titleStyle.Render(t.Title)
	meta := t.Date
	if t.Time != "" {
		meta += "  " + t.Time
		if t.EndTime != "" {
			meta += "–" + t.EndTime
		}
	}
	if t.Completed {
		meta += "  " + successStyle.Render("done")
	}

	body := mutedStyle.Render("No notes")
	if t.Description != "" {
		body = renderMarkdown(t.Description, w.width-10)
	}
	return panelStyle.Width(w.width - 4).Render(
		lipgloss.JoinVertical(lipgloss.Left, head, mutedStyle.Render(meta), "", body),
	)
}

// renderMarkdown renders a task's notes, falling back to the raw text when
// glamour cannot.
func renderMarkdown(md string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(max(20, width)),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimSpace(out)
}
