package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/tinynotes/internal/planner"
)

// viewState represents the currently active view.
type viewState int

const (
	viewWeek viewState = iota
	viewLists
	viewStats
	viewSettings
)

var viewNames = []string{"Week", "Lists", "Stats", "Settings"}

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

type exportDoneMsg struct {
	path string
}

// changedMsg reports that the planner's collection changed outside Update.
type changedMsg struct{}

type loadedMsg struct {
	err error
}

type weekLoadedMsg struct {
	offset int
	err    error
}

type persistedMsg struct {
	op  string
	err error
}

// --- Commands ---

// Notify returns a planner change hook that signals ch without blocking.
// A full buffer already means a redraw is queued.
func Notify(ch chan<- struct{}) func() {
	return func() {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return changedMsg{}
	}
}

func loadInitialCmd(p *planner.Planner) tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{err: p.LoadInitial(context.Background())}
	}
}

func loadWeekCmd(p *planner.Planner, offset int) tea.Cmd {
	if p.IsWeekLoaded(p.WeekKey(offset)) {
		return nil
	}
	return func() tea.Msg {
		return weekLoadedMsg{offset: offset, err: p.LoadWeek(context.Background(), offset)}
	}
}

// awaitCmd reports when a mutation has been persisted or rolled back.
func awaitCmd(op string, pending *planner.Pending) tea.Cmd {
	return func() tea.Msg {
		return persistedMsg{op: op, err: pending.Wait(context.Background())}
	}
}

// mutation turns the result of a planner call into a command.
func mutation(op string, pending *planner.Pending, err error) tea.Cmd {
	if err != nil {
		return errorCmd(err)
	}
	return awaitCmd(op, pending)
}

// mutateOn runs fn against the week holding date. If that week is not
// loaded yet, the command loads it first so tasks appended to the day are
// ordered after the stored ones.
func mutateOn(p *planner.Planner, date, op string, fn func() (*planner.Pending, error)) tea.Cmd {
	if date == "" || p.IsDateLoaded(date) {
		pending, err := fn()
		return mutation(op, pending, err)
	}
	return func() tea.Msg {
		ctx := context.Background()
		if err := p.LoadDate(ctx, date); err != nil {
			return statusMsg{text: err.Error(), isError: true}
		}
		pending, err := fn()
		if err != nil {
			return statusMsg{text: err.Error(), isError: true}
		}
		return persistedMsg{op: op, err: pending.Wait(ctx)}
	}
}

func errorCmd(err error) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: err.Error(), isError: true}
	}
}

// --- Helpers ---

func formatMinutes(mins int) string {
	return fmt.Sprintf("%dh%02dm", mins/60, mins%60)
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 {
		return ""
	}
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return max(lo, min(v, hi))
}
