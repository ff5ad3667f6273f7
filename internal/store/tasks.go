package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sadopc/tinynotes/internal/dates"
)

func (s *Store) Insert(ctx context.Context, t Task) error {
	row := taskToRow(t)
	query := `INSERT INTO tasks (` + taskColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, s.dialect.rebind(query), row.args()...); err != nil {
		return fmt.Errorf("insert task %s: %w", t.ID, err)
	}
	return nil
}

// Update writes the fields p touches to the row with the given id.
func (s *Store) Update(ctx context.Context, id string, p Patch) error {
	cols, args := patchColumns(p)
	if len(cols) == 0 {
		return nil
	}
	args = append(args, id)
	query := `UPDATE tasks SET ` + strings.Join(cols, ", ") + ` WHERE id = ?`
	res, err := s.db.ExecContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return fmt.Errorf("update task %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update task %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.dialect.rebind(`DELETE FROM tasks WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete task %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`), id)
	r, err := scanTaskRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	t, err := rowToTask(r)
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return &t, nil
}

// QueryRange returns the tasks matching f in ascending order.
func (s *Store) QueryRange(ctx context.Context, f Filter) ([]Task, error) {
	var where string
	var args []any
	switch {
	case f.From != "" || f.To != "":
		where = `area = ? AND date >= ? AND date <= ?`
		args = []any{string(AreaWeek), f.From, f.To}
	case len(f.Areas) > 0:
		marks := make([]string, len(f.Areas))
		for i, a := range f.Areas {
			marks[i] = "?"
			args = append(args, string(a))
		}
		where = `area IN (` + strings.Join(marks, ", ") + `)`
	default:
		where = `1 = 1`
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` + where + ` ORDER BY "order", created_at`
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		r, err := scanTaskRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t, err := rowToTask(r)
		if err != nil {
			return nil, fmt.Errorf("query tasks: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// FetchBaseTasks returns every inbox and someday task.
func (s *Store) FetchBaseTasks(ctx context.Context) ([]Task, error) {
	return s.QueryRange(ctx, Filter{Areas: []Area{AreaInbox, AreaSomeday}})
}

// FetchWeekTasks returns the week-area tasks dated inside weekKey's
// Monday-to-Sunday span.
func (s *Store) FetchWeekTasks(ctx context.Context, weekKey string) ([]Task, error) {
	from, to, err := dates.WeekRange(weekKey)
	if err != nil {
		return nil, err
	}
	return s.QueryRange(ctx, Filter{From: from, To: to})
}

// ListTasks returns every stored task.
func (s *Store) ListTasks(ctx context.Context) ([]Task, error) {
	return s.QueryRange(ctx, Filter{})
}
