// Package tui is the interactive week planner.
package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/sadopc/tinynotes/internal/config"
	"github.com/sadopc/tinynotes/internal/export"
	"github.com/sadopc/tinynotes/internal/planner"
	"github.com/sadopc/tinynotes/internal/store"
	"github.com/sadopc/tinynotes/internal/syncstatus"
)

// Options configures an App.
type Options struct {
	Schedule config.ScheduleConfig
	// Changes receives a signal whenever the planner's collection changes,
	// typically fed by Notify.
	Changes   <-chan struct{}
	Logger    *zap.Logger
	ExportDir string
}

// App is the root Bubble Tea model.
type App struct {
	planner *planner.Planner
	store   *store.Store
	opts    Options
	log     *zap.Logger
	width   int
	height  int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	week     weekModel
	lists    listsModel
	stats    statsModel
	settings settingsModel

	help    help.Model
	spinner spinner.Model
	status  string
	isError bool
}

func NewApp(p *planner.Planner, s *store.Store, opts Options) App {
	h := help.New()
	h.ShowAll = false

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorPrimary)

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.ExportDir == "" {
		opts.ExportDir, _ = os.UserHomeDir()
	}

	sched := settingsSchedule(s, opts.Schedule)
	return App{
		planner:    p,
		store:      s,
		opts:       opts,
		log:        log,
		activeView: viewWeek,
		week:       newWeekModel(p, sched),
		lists:      newListsModel(p, sched),
		stats:      newStatsModel(p),
		settings:   newSettingsModel(s, opts.Schedule),
		help:       h,
		spinner:    sp,
	}
}

func settingsSchedule(s *store.Store, base config.ScheduleConfig) config.ScheduleConfig {
	if s == nil {
		return base
	}
	return base.WithSettings(s.GetIntSetting)
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		loadInitialCmd(a.planner),
		waitForChange(a.opts.Changes),
		a.spinner.Tick,
		tickCmd(),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.week.setSize(a.width, contentHeight)
		a.lists.setSize(a.width, contentHeight)
		a.stats.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// A child view capturing input (e.g. form) gets keys first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			a.activeView = viewWeek
			return a, nil
		case key.Matches(msg, keys.Tab2):
			a.activeView = viewLists
			return a, nil
		case key.Matches(msg, keys.Tab3):
			return a.showStats()
		case key.Matches(msg, keys.Tab4):
			a.activeView = viewSettings
			return a, a.settings.refresh()
		case key.Matches(msg, keys.Tab):
			next := (a.activeView + 1) % viewState(len(viewNames))
			switch next {
			case viewStats:
				return a.showStats()
			case viewSettings:
				a.activeView = next
				return a, a.settings.refresh()
			}
			a.activeView = next
			return a, nil
		}

	case tickMsg:
		return a, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case changedMsg:
		return a, waitForChange(a.opts.Changes)

	case loadedMsg:
		if msg.err != nil {
			a.log.Error("initial load failed", zap.Error(msg.err))
			a.setStatus("Load failed: "+msg.err.Error(), true)
		}
		return a, nil

	case weekLoadedMsg:
		if msg.err != nil {
			a.log.Warn("week load failed", zap.Int("offset", msg.offset), zap.Error(msg.err))
			a.setStatus("Load failed: "+msg.err.Error(), true)
		}
		return a, nil

	case persistedMsg:
		if msg.err != nil {
			a.setStatus("Not saved: "+msg.err.Error(), true)
		} else {
			a.setStatus(msg.op, false)
		}
		return a, nil

	case scheduleMsg:
		a.week.sched = msg.sched
		a.lists.sched = msg.sched
		a.setStatus("Settings saved", false)
		return a, nil

	case statusMsg:
		a.setStatus(msg.text, msg.isError)
		return a, nil

	case exportDoneMsg:
		a.setStatus("Exported to "+msg.path, false)
		a.exportPicking = false
		return a, nil
	}

	return a.updateActiveView(msg)
}

func (a *App) setStatus(text string, isError bool) {
	a.status = text
	a.isError = isError
}

func (a App) showStats() (tea.Model, tea.Cmd) {
	a.activeView = viewStats
	a.stats.offset = a.week.offset
	return a, loadWeekCmd(a.planner, a.stats.offset)
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewWeek:
		a.week, cmd = a.week.update(msg)
	case viewLists:
		a.lists, cmd = a.lists.update(msg)
	case viewStats:
		a.stats, cmd = a.stats.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewWeek:
		return a.week.form != nil
	case viewLists:
		return a.lists.form != nil
	case viewSettings:
		return a.settings.formActive
	}
	return false
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewWeek:
		content = a.week.view()
	case viewLists:
		content = a.lists.view()
	case viewStats:
		content = a.stats.view()
	case viewSettings:
		content = a.settings.view()
	}

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := max(1, a.height-headerHeight-footerHeight)

	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("tinynotes")
	gap := max(1, a.width-lipgloss.Width(title)-lipgloss.Width(tabRow)-4)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		style := mutedStyle
		if a.isError {
			style = errorStyle
		}
		status = style.Render(" " + a.status)
	}

	left := footerStyle.Render(helpView)
	right := a.renderSync() + status

	gap := max(1, a.width-lipgloss.Width(left)-lipgloss.Width(right)-2)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

// renderSync shows loading and persistence state.
func (a App) renderSync() string {
	st := a.planner.Status()
	switch {
	case st.Loading || st.WeekLoading:
		return a.spinner.View() + mutedStyle.Render(" loading")
	case st.Sync == syncstatus.Syncing:
		return a.spinner.View() + mutedStyle.Render(" saving")
	case st.Sync == syncstatus.Synced:
		return successStyle.Render(" ✓ saved")
	case st.Sync == syncstatus.Error:
		return errorStyle.Render(" ✗ save failed")
	case st.Error != "":
		return warningStyle.Render(" ! " + st.Error)
	}
	return ""
}

func (a App) renderExportPicker() string {
	title := titleStyle.Render("Export Format")
	formats := []string{"CSV", "JSON"}
	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	for i, f := range formats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	w := a.width - 4
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < 1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

// doExport writes every stored task, not only the loaded weeks.
func (a App) doExport(format int) tea.Cmd {
	return func() tea.Msg {
		tasks, err := a.store.ListTasks(context.Background())
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}

		dateStr := a.planner.Today()
		var path string
		if format == 0 {
			path = filepath.Join(a.opts.ExportDir, fmt.Sprintf("tinynotes-export-%s.csv", dateStr))
			if err := export.ToCSV(tasks, path); err != nil {
				return statusMsg{text: fmt.Sprintf("CSV error: %v", err), isError: true}
			}
		} else {
			path = filepath.Join(a.opts.ExportDir, fmt.Sprintf("tinynotes-export-%s.json", dateStr))
			if err := export.ToJSON(tasks, path); err != nil {
				return statusMsg{text: fmt.Sprintf("JSON error: %v", err), isError: true}
			}
		}

		a.log.Info("exported tasks", zap.String("path", path), zap.Int("count", len(tasks)))
		return exportDoneMsg{path: path}
	}
}
