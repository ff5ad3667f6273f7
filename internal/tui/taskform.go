package tui

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/sadopc/tinynotes/internal/config"
	"github.com/sadopc/tinynotes/internal/dates"
	"github.com/sadopc/tinynotes/internal/planner"
	"github.com/sadopc/tinynotes/internal/store"
)

// taskForm edits either a new task or an existing one. Field values live
// behind pointers so they survive model copies.
type taskForm struct {
	form *huh.Form
	orig store.Task
	edit bool

	title *string
	desc  *string
	area  *string
	date  *string
	start *string
	end   *string
	color *string
}

func newTaskForm(t store.Task, edit bool, sched config.ScheduleConfig) *taskForm {
	title, desc, area := t.Title, t.Description, string(t.Area)
	date, start, end, color := t.Date, t.Time, t.EndTime, string(t.Color)
	f := &taskForm{
		orig:  t,
		edit:  edit,
		title: &title,
		desc:  &desc,
		area:  &area,
		date:  &date,
		start: &start,
		end:   &end,
		color: &color,
	}

	areaOptions := make([]huh.Option[string], len(store.Areas))
	for i, a := range store.Areas {
		areaOptions[i] = huh.NewOption(string(a), string(a))
	}
	colorOptions := []huh.Option[string]{huh.NewOption("none", "")}
	for _, c := range store.Colors {
		colorOptions = append(colorOptions, huh.NewOption(tagDot(c)+" "+string(c), string(c)))
	}

	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Title").Value(f.title).Validate(validateTitle),
			huh.NewText().Title("Notes (markdown)").Value(f.desc),
			huh.NewSelect[string]().Title("Area").Options(areaOptions...).Value(f.area),
			huh.NewSelect[string]().Title("Color").Options(colorOptions...).Value(f.color),
		),
		huh.NewGroup(
			huh.NewInput().Title("Date (YYYY-MM-DD)").Value(f.date).Validate(validateDate),
			huh.NewInput().Title("Start (HH:mm)").
				Placeholder(dates.FormatClock(sched.DayStartHour*60)).
				Value(f.start).Validate(validateClock),
			huh.NewInput().Title("End (HH:mm)").Value(f.end).Validate(validateClock),
		).Title("Schedule").WithHideFunc(func() bool { return *f.area != string(store.AreaWeek) }),
	).WithShowHelp(true).WithShowErrors(true)

	return f
}

func validateTitle(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("title is required")
	}
	return nil
}

func validateDate(s string) error {
	if s == "" || dates.Valid(s) {
		return nil
	}
	return dates.ErrInvalidDate
}

func validateClock(s string) error {
	if s == "" {
		return nil
	}
	_, err := dates.ParseClock(s)
	return err
}

// update feeds msg to the form. done reports that the form was submitted or
// cancelled; the caller reads the result only when submitted is true.
func (f *taskForm) update(msg tea.Msg) (cmd tea.Cmd, done, submitted bool) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		return nil, true, false
	}
	form, cmd := f.form.Update(msg)
	if ff, ok := form.(*huh.Form); ok {
		f.form = ff
	}
	switch f.form.State {
	case huh.StateCompleted:
		return cmd, true, true
	case huh.StateAborted:
		return cmd, true, false
	}
	return cmd, false, false
}

// result is the task described by the form. Times snap to the schedule grid
// and the slot is stretched to the minimum duration.
func (f *taskForm) result(sched config.ScheduleConfig) (store.Task, error) {
	t := f.orig
	t.Title = strings.TrimSpace(*f.title)
	t.Description = strings.TrimSpace(*f.desc)
	t.Area = store.Area(*f.area)
	t.Color = store.Color(*f.color)
	t.Date, t.Time, t.EndTime = "", "", ""
	if t.Area != store.AreaWeek {
		return t, nil
	}

	t.Date = *f.date
	if *f.start == "" {
		return t, nil
	}
	start, err := dates.Snap(*f.start, sched.SnapMinutes)
	if err != nil {
		return t, err
	}
	end, minDur := *f.end, sched.MinDurationMinutes
	if end == "" {
		minDur = sched.DefaultDurationMinutes
	} else if end, err = dates.Snap(end, sched.SnapMinutes); err != nil {
		return t, err
	}
	if end, err = dates.EnsureMinDuration(start, end, minDur); err != nil {
		return t, err
	}
	t.Time, t.EndTime = start, end
	return t, nil
}

// submit creates or updates the task through the planner.
func (f *taskForm) submit(p *planner.Planner, sched config.ScheduleConfig) tea.Cmd {
	t, err := f.result(sched)
	if err != nil {
		return errorCmd(err)
	}
	if !f.edit {
		return mutateOn(p, t.Date, "Created "+t.Title, func() (*planner.Pending, error) {
			_, pending, err := p.CreateTask(t.Title, t.Area, planner.CreateOptions{
				Description: t.Description,
				Date:        t.Date,
				Time:        t.Time,
				EndTime:     t.EndTime,
				Color:       t.Color,
			})
			return pending, err
		})
	}

	patch := store.Diff(f.orig, t)
	if patch.Empty() {
		return nil
	}
	return mutateOn(p, t.Date, "Saved "+t.Title, func() (*planner.Pending, error) {
		return p.UpdateTask(t.ID, patch)
	})
}

func (f *taskForm) view(width int) string {
	title := "New Task"
	if f.edit {
		title = "Edit Task"
	}
	return panelStyle.Width(width).Render(titleStyle.Render(title) + "\n\n" + f.form.View())
}
