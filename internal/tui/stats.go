package tui

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/tinynotes/internal/dates"
	"github.com/sadopc/tinynotes/internal/planner"
	"github.com/sadopc/tinynotes/internal/store"
)

type statsModel struct {
	planner *planner.Planner
	width   int
	height  int

	offset int
}

func newStatsModel(p *planner.Planner) statsModel {
	return statsModel{planner: p}
}

func (s *statsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

// dayStats counts a day's tasks and scheduled minutes.
type dayStats struct {
	date      string
	open      int
	done      int
	scheduled int
}

func (s statsModel) collect() []dayStats {
	days, _ := dates.WeekDates(s.planner.WeekKey(s.offset))
	out := make([]dayStats, len(days))
	for i, day := range days {
		st := dayStats{date: day}
		for _, t := range s.planner.GetTasksByDate(day) {
			if t.Completed {
				st.done++
			} else {
				st.open++
			}
			if t.Time != "" && t.EndTime != "" {
				if mins, err := dates.Duration(t.Time, t.EndTime); err == nil {
					st.scheduled += mins
				}
			}
		}
		out[i] = st
	}
	return out
}

func (s statsModel) update(msg tea.Msg) (statsModel, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, nil
	}
	switch {
	case key.Matches(km, keys.Left), key.Matches(km, keys.PrevWeek):
		s.offset--
		return s, loadWeekCmd(s.planner, s.offset)
	case key.Matches(km, keys.Right), key.Matches(km, keys.NextWeek):
		s.offset++
		return s, loadWeekCmd(s.planner, s.offset)
	case key.Matches(km, keys.Today):
		s.offset = 0
	}
	return s, nil
}

func (s statsModel) chart(stats []dayStats) string {
	chartWidth := max(20, s.width-8)
	chartHeight := 12
	if s.height > 30 {
		chartHeight = 16
	}
	chart := barchart.New(chartWidth, chartHeight)

	openBar := lipgloss.NewStyle().Foreground(colorWarning)
	doneBar := lipgloss.NewStyle().Foreground(colorSuccess)
	var bars []barchart.BarData
	for _, st := range stats {
		d, _ := dates.Parse(st.date)
		bars = append(bars, barchart.BarData{
			Label: d.Format("Mon 02"),
			Values: []barchart.BarValue{
				{Name: "done", Value: float64(st.done), Style: doneBar},
				{Name: "open", Value: float64(st.open), Style: openBar},
			},
		})
	}
	chart.PushAll(bars)
	chart.Draw()
	return chart.View()
}

func (s statsModel) view() string {
	w := s.width - 4
	stats := s.collect()

	wk := s.planner.WeekKey(s.offset)
	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Stats"), "  ", mutedStyle.Render("week of "+wk),
	)
	legend := "  " + successStyle.Render("● done") + "  " + warningStyle.Render("● open")

	var rows []string
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-12s %6s %6s %10s", "Day", "Open", "Done", "Scheduled")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 38))))
	totalOpen, totalDone, totalMins := 0, 0, 0
	for _, st := range stats {
		rows = append(rows, fmt.Sprintf("  %-12s %6d %6d %10s", st.date, st.open, st.done, formatMinutes(st.scheduled)))
		totalOpen += st.open
		totalDone += st.done
		totalMins += st.scheduled
	}
	rows = append(rows, highlightStyle.Render(fmt.Sprintf("  %-12s %6d %6d %10s", "Total", totalOpen, totalDone, formatMinutes(totalMins))))

	lists := mutedStyle.Render(fmt.Sprintf("  inbox: %d  someday: %d",
		len(s.planner.GetTasksByArea(store.AreaInbox)),
		len(s.planner.GetTasksByArea(store.AreaSomeday)),
	))
	nav := mutedStyle.Render("  ←/→: week  t: this week")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", s.chart(stats), "", legend, "", strings.Join(rows, "\n"), "", lists, "", nav,
		),
	)
}
