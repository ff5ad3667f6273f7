package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/tinynotes/internal/dates"
	"github.com/sadopc/tinynotes/internal/planner"
	"github.com/sadopc/tinynotes/internal/store"
)

const shortIDLen = 8

func newAddCmd(o *rootOptions) *cobra.Command {
	var area, date, start, end, color, desc string

	cmd := &cobra.Command{
		Use:   "add TITLE...",
		Short: "Add a task",
		Long: `Adds a task. Without --area it goes to the inbox, or to the week when
--date is given. Dates accept YYYY-MM-DD, today, tomorrow, yesterday or +N/-N days.`,
		Example: `  tinynotes add Buy milk
  tinynotes add --date tomorrow --time 09:00 Standup`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOf(cmd)
			now := o.now()

			day, err := parseDate(now, date)
			if err != nil {
				return err
			}
			target := store.Area(area)
			if area == "" {
				target = store.AreaInbox
				if day != "" {
					target = store.AreaWeek
				}
			}

			sess, err := o.openLoaded(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			if target == store.AreaWeek && day != "" {
				if err := sess.planner.LoadDate(ctx, day); err != nil {
					return err
				}
			}

			if start != "" {
				sched := o.cfg.Schedule.WithSettings(sess.store.GetIntSetting)
				minDur := sched.MinDurationMinutes
				if end == "" {
					minDur = sched.DefaultDurationMinutes
				}
				if end, err = dates.EnsureMinDuration(start, end, minDur); err != nil {
					return err
				}
			}

			t, pending, err := sess.planner.CreateTask(strings.Join(args, " "), target, planner.CreateOptions{
				Description: desc,
				Date:        day,
				Time:        start,
				EndTime:     end,
				Color:       store.Color(color),
			})
			if err != nil {
				return err
			}
			if err := pending.Wait(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s %s\n", shortID(t.ID), t.Title)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&area, "area", "a", "", "inbox, week or someday")
	f.StringVarP(&date, "date", "d", "", "day for week tasks")
	f.StringVar(&start, "time", "", "start time HH:mm")
	f.StringVar(&end, "end", "", "end time HH:mm")
	f.StringVarP(&color, "color", "c", "", "orange, terracotta, gray-blue, green or lavender")
	f.StringVar(&desc, "desc", "", "description (markdown)")
	return cmd
}

func newListCmd(o *rootOptions) *cobra.Command {
	var area string
	var week int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks by area, with the week grouped by day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOf(cmd)
			sess, err := o.openLoaded(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			if week != 0 {
				if err := sess.planner.LoadWeek(ctx, week); err != nil {
					return err
				}
			}

			w := cmd.OutOrStdout()
			show := func(a store.Area) bool { return area == "" || area == string(a) }
			if show(store.AreaInbox) {
				printSection(w, "Inbox", sess.planner.GetTasksByArea(store.AreaInbox))
			}
			if show(store.AreaWeek) {
				if err := printWeek(w, sess.planner, sess.planner.WeekKey(week)); err != nil {
					return err
				}
			}
			if show(store.AreaSomeday) {
				printSection(w, "Someday", sess.planner.GetTasksByArea(store.AreaSomeday))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&area, "area", "a", "", "only this area")
	cmd.Flags().IntVarP(&week, "week", "w", 0, "week offset from the current week")
	return cmd
}

func newDoneCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "done ID",
		Short: "Toggle a task's completed state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.mutate(cmd, args[0], func(ctx context.Context, sess *session, t store.Task) (*planner.Pending, error) {
				return sess.planner.ToggleComplete(t.ID)
			})
		},
	}
}

func newRemoveCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.mutate(cmd, args[0], func(ctx context.Context, sess *session, t store.Task) (*planner.Pending, error) {
				return sess.planner.DeleteTask(t.ID)
			})
		},
	}
}

func newMoveCmd(o *rootOptions) *cobra.Command {
	var area, date string
	var days, position int

	cmd := &cobra.Command{
		Use:   "move ID",
		Short: "Move a task to another area, day or position",
		Example: `  tinynotes move 1a2b --days 1
  tinynotes move 1a2b --date 2024-05-03 --position 0
  tinynotes move 1a2b --to someday`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			day, err := parseDate(o.now(), date)
			if err != nil {
				return err
			}
			var target *int
			if flags.Changed("position") {
				target = &position
			}

			return o.mutate(cmd, args[0], func(ctx context.Context, sess *session, t store.Task) (*planner.Pending, error) {
				if flags.Changed("days") {
					from := t.Date
					if from == "" {
						from = dates.Today(o.now())
					}
					dest, err := dates.AddDays(from, days)
					if err != nil {
						return nil, err
					}
					if err := sess.planner.LoadDate(ctx, dest); err != nil {
						return nil, err
					}
					return sess.planner.MoveByDays(t.ID, days)
				}
				to := store.Area(area)
				switch {
				case area == "" && day != "":
					to = store.AreaWeek
				case area == "":
					to = t.Area
					day = t.Date
				}
				if to == store.AreaWeek && day != "" {
					if err := sess.planner.LoadDate(ctx, day); err != nil {
						return nil, err
					}
				}
				return sess.planner.MoveTask(t.ID, to, day, target)
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&area, "to", "", "destination area")
	f.StringVarP(&date, "date", "d", "", "destination day")
	f.IntVar(&days, "days", 0, "shift by N days")
	f.IntVar(&position, "position", 0, "insert at this position instead of appending")
	return cmd
}

func newReorderCmd(o *rootOptions) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "reorder AREA ID...",
		Short: "Set the order of a list or day",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOf(cmd)
			day, err := parseDate(o.now(), date)
			if err != nil {
				return err
			}
			sess, err := o.openLoaded(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			ids := make([]string, 0, len(args)-1)
			for _, ref := range args[1:] {
				t, err := sess.resolve(ctx, ref)
				if err != nil {
					return err
				}
				ids = append(ids, t.ID)
			}
			pending, err := sess.planner.ReorderTasks(ids, store.Area(args[0]), day)
			if err != nil {
				return err
			}
			return pending.Wait(ctx)
		},
	}
	cmd.Flags().StringVarP(&date, "date", "d", "", "day, for the week area")
	return cmd
}

func newFinishDayCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "finish-day [DATE]",
		Short: "Roll a day's open tasks over to the next day",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOf(cmd)
			now := o.now()
			day := dates.Today(now)
			if len(args) == 1 {
				var err error
				if day, err = parseDate(now, args[0]); err != nil {
					return err
				}
			}

			sess, err := o.openLoaded(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			next, err := dates.AddDays(day, 1)
			if err != nil {
				return err
			}
			for _, d := range []string{day, next} {
				if err := sess.planner.LoadDate(ctx, d); err != nil {
					return err
				}
			}

			open := 0
			for _, t := range sess.planner.GetTasksByDate(day) {
				if !t.Completed {
					open++
				}
			}
			pending, err := sess.planner.FinishDay(day)
			if err != nil {
				return err
			}
			if err := pending.Wait(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "moved %d task(s) from %s to %s\n", open, day, next)
			return nil
		},
	}
}

// mutate resolves ref to a task, runs fn and waits for it to persist.
func (o *rootOptions) mutate(cmd *cobra.Command, ref string, fn func(context.Context, *session, store.Task) (*planner.Pending, error)) error {
	ctx := contextOf(cmd)
	sess, err := o.openLoaded(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	t, err := sess.resolve(ctx, ref)
	if err != nil {
		return err
	}
	pending, err := fn(ctx, sess, t)
	if err != nil {
		return err
	}
	if err := pending.Wait(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "ok %s %s\n", shortID(t.ID), t.Title)
	return nil
}

var errAmbiguous = errors.New("ambiguous task id")

// resolve finds the task whose id starts with ref. Tasks outside the loaded
// weeks are looked up in the store and their week is loaded.
func (s *session) resolve(ctx context.Context, ref string) (store.Task, error) {
	matches := matchPrefix(s.planner.Tasks(), ref)
	if len(matches) == 0 {
		var err error
		if matches, err = s.lookup(ctx, ref); err != nil {
			return store.Task{}, err
		}
		if len(matches) == 1 && matches[0].Area == store.AreaWeek {
			if err := s.planner.LoadDate(ctx, matches[0].Date); err != nil {
				return store.Task{}, err
			}
		}
	}

	switch len(matches) {
	case 0:
		return store.Task{}, fmt.Errorf("task %s: %w", ref, planner.ErrTaskNotFound)
	case 1:
		return matches[0], nil
	}
	return store.Task{}, fmt.Errorf("%w: %s matches %d tasks", errAmbiguous, ref, len(matches))
}

// lookup searches the store for ref, as a full id first and then as a
// prefix.
func (s *session) lookup(ctx context.Context, ref string) ([]store.Task, error) {
	t, err := s.store.GetTask(ctx, ref)
	switch {
	case err == nil:
		return []store.Task{*t}, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}
	all, err := s.store.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	return matchPrefix(all, ref), nil
}

func matchPrefix(ts []store.Task, ref string) []store.Task {
	var out []store.Task
	for _, t := range ts {
		if strings.HasPrefix(t.ID, ref) {
			out = append(out, t)
		}
	}
	return out
}

// parseDate accepts YYYY-MM-DD, today, tomorrow, yesterday or a signed day
// offset like +3.
func parseDate(now time.Time, s string) (string, error) {
	today := dates.Today(now)
	switch strings.ToLower(s) {
	case "":
		return "", nil
	case "today":
		return today, nil
	case "tomorrow":
		return dates.AddDays(today, 1)
	case "yesterday":
		return dates.SubDays(today, 1)
	}
	if s[0] == '+' || s[0] == '-' {
		n, err := strconv.Atoi(s)
		if err != nil {
			return "", fmt.Errorf("%w %q", dates.ErrInvalidDate, s)
		}
		return dates.AddDays(today, n)
	}
	if !dates.Valid(s) {
		return "", fmt.Errorf("%w %q", dates.ErrInvalidDate, s)
	}
	return s, nil
}

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}

func printSection(w io.Writer, title string, tasks []store.Task) {
	fmt.Fprintf(w, "%s (%d)\n", title, len(tasks))
	for _, t := range tasks {
		printTask(w, t)
	}
	fmt.Fprintln(w)
}

func printWeek(w io.Writer, p *planner.Planner, weekKey string) error {
	days, err := dates.WeekDates(weekKey)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Week of %s\n", weekKey)
	for _, day := range days {
		tasks := p.GetTasksByDate(day)
		if len(tasks) == 0 {
			continue
		}
		d, _ := dates.Parse(day)
		fmt.Fprintf(w, "  %s\n", d.Format("Mon 02 Jan"))
		for _, t := range tasks {
			printTask(w, t)
		}
	}
	fmt.Fprintln(w)
	return nil
}

func printTask(w io.Writer, t store.Task) {
	check := "[ ]"
	if t.Completed {
		check = "[x]"
	}
	slot := ""
	if t.Time != "" {
		slot = t.Time
		if t.EndTime != "" {
			slot += "-" + t.EndTime
		}
		slot += " "
	}
	color := ""
	if t.Color != store.ColorNone {
		color = " (" + string(t.Color) + ")"
	}
	fmt.Fprintf(w, "    %s %s  %s%s%s\n", check, shortID(t.ID), slot, t.Title, color)
}
