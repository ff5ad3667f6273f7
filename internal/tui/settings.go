package tui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/tinynotes/internal/config"
	"github.com/sadopc/tinynotes/internal/store"
)

type settingsModel struct {
	store  *store.Store
	base   config.ScheduleConfig
	width  int
	height int

	settings   []store.Setting
	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	snapMinutes *string
	minDuration *string
	dayStart    *string
}

func newSettingsModel(s *store.Store, base config.ScheduleConfig) settingsModel {
	snap, dur, start := "", "", ""
	return settingsModel{
		store:       s,
		base:        base,
		snapMinutes: &snap,
		minDuration: &dur,
		dayStart:    &start,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type settingsDataMsg struct {
	settings []store.Setting
}

// scheduleMsg carries the schedule after a settings change.
type scheduleMsg struct {
	sched config.ScheduleConfig
}

func (s settingsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		settings, _ := s.store.GetAllSettings()
		return settingsDataMsg{settings: settings}
	}
}

func (s settingsModel) schedule() config.ScheduleConfig {
	return s.base.WithSettings(s.store.GetIntSetting)
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case settingsDataMsg:
		s.settings = msg.settings
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.New):
			return s.showForm()
		}
	}
	return s, nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	sched := s.schedule()
	*s.snapMinutes = strconv.Itoa(sched.SnapMinutes)
	*s.minDuration = strconv.Itoa(sched.MinDurationMinutes)
	*s.dayStart = strconv.Itoa(sched.DayStartHour)

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Snap times to (min)").Value(s.snapMinutes).Validate(intBetween(1, 24*60)),
			huh.NewInput().Title("Minimum slot length (min)").Value(s.minDuration).Validate(intBetween(1, 24*60)),
			huh.NewInput().Title("Day starts at (hour)").Value(s.dayStart).Validate(intBetween(0, 23)),
		).Title("Schedule"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func intBetween(lo, hi int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%q is not a number", v)
		}
		if n < lo || n > hi {
			return fmt.Errorf("must be between %d and %d", lo, hi)
		}
		return nil
	}
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		if err := s.saveSettings(); err != nil {
			return s, errorCmd(err)
		}
		sched := s.schedule()
		return s, tea.Batch(s.refresh(), func() tea.Msg { return scheduleMsg{sched: sched} })
	}

	return s, cmd
}

func (s settingsModel) saveSettings() error {
	values := map[string]string{
		config.SettingSnapMinutes:        *s.snapMinutes,
		config.SettingMinDurationMinutes: *s.minDuration,
		config.SettingDayStartHour:       *s.dayStart,
	}
	for k, v := range values {
		if err := s.store.SetSetting(k, v); err != nil {
			return fmt.Errorf("save %s: %w", k, err)
		}
	}
	return nil
}

func (s settingsModel) view() string {
	w := s.width - 4

	if s.formActive && s.form != nil {
		title := titleStyle.Render("Settings")
		formView := s.form.View()
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", formView),
		)
	}

	title := titleStyle.Render("Settings")
	hint := mutedStyle.Render("Press enter to edit settings")

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")

	for _, setting := range s.settings {
		label := lipgloss.NewStyle().Width(24).Render(setting.Key)
		value := highlightStyle.Render(formatSettingValue(setting.Key, setting.Value))
		rows = append(rows, fmt.Sprintf("  %s %s", label, value))
	}

	rows = append(rows, "")
	rows = append(rows, hint)

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func formatSettingValue(k, v string) string {
	switch k {
	case config.SettingSnapMinutes, config.SettingMinDurationMinutes:
		if mins, err := strconv.Atoi(v); err == nil {
			return fmt.Sprintf("%d min", mins)
		}
	case config.SettingDayStartHour:
		if h, err := strconv.Atoi(v); err == nil {
			return fmt.Sprintf("%02d:00", h)
		}
	}
	return v
}
