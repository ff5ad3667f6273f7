package store

import (
	"database/sql"
	"fmt"
	"time"
)

const taskColumns = `id, title, description, area, date, time, end_time, "order", completed, color, created_at, updated_at`

// taskRow mirrors the storage row: snake_case columns, NULL for absent
// optional fields, integer booleans, RFC3339 text timestamps.
type taskRow struct {
	ID          string
	Title       string
	Description sql.NullString
	Area        string
	Date        sql.NullString
	Time        sql.NullString
	EndTime     sql.NullString
	Order       int
	Completed   int
	Color       sql.NullString
	CreatedAt   string
	UpdatedAt   string
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTaskRow(sc scanner) (taskRow, error) {
	var r taskRow
	err := sc.Scan(&r.ID, &r.Title, &r.Description, &r.Area, &r.Date, &r.Time, &r.EndTime,
		&r.Order, &r.Completed, &r.Color, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (r taskRow) args() []any {
	return []any{r.ID, r.Title, r.Description, r.Area, r.Date, r.Time, r.EndTime,
		r.Order, r.Completed, r.Color, r.CreatedAt, r.UpdatedAt}
}

func rowToTask(r taskRow) (Task, error) {
	t := Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description.String,
		Area:        Area(r.Area),
		Date:        r.Date.String,
		Time:        r.Time.String,
		EndTime:     r.EndTime.String,
		Order:       r.Order,
		Completed:   r.Completed == 1,
		Color:       Color(r.Color.String),
	}
	var err error
	if t.CreatedAt, err = time.Parse(time.RFC3339Nano, r.CreatedAt); err != nil {
		return Task{}, fmt.Errorf("task %s: created_at: %w", r.ID, err)
	}
	if t.UpdatedAt, err = time.Parse(time.RFC3339Nano, r.UpdatedAt); err != nil {
		return Task{}, fmt.Errorf("task %s: updated_at: %w", r.ID, err)
	}
	return t, nil
}

func taskToRow(t Task) taskRow {
	return taskRow{
		ID:          t.ID,
		Title:       t.Title,
		Description: nullString(t.Description),
		Area:        string(t.Area),
		Date:        nullString(t.Date),
		Time:        nullString(t.Time),
		EndTime:     nullString(t.EndTime),
		Order:       t.Order,
		Completed:   boolInt(t.Completed),
		Color:       nullString(string(t.Color)),
		CreatedAt:   formatTime(t.CreatedAt),
		UpdatedAt:   formatTime(t.UpdatedAt),
	}
}

// patchColumns lists the SET assignments for the fields p touches.
func patchColumns(p Patch) ([]string, []any) {
	var cols []string
	var args []any
	add := func(col string, v any) {
		cols = append(cols, col+" = ?")
		args = append(args, v)
	}
	if p.Title != nil {
		add("title", *p.Title)
	}
	if p.Description != nil {
		add("description", nullString(*p.Description))
	}
	if p.Area != nil {
		add("area", string(*p.Area))
	}
	if p.Date != nil {
		add("date", nullString(*p.Date))
	}
	if p.Time != nil {
		add("time", nullString(*p.Time))
	}
	if p.EndTime != nil {
		add("end_time", nullString(*p.EndTime))
	}
	if p.Order != nil {
		add(`"order"`, *p.Order)
	}
	if p.Completed != nil {
		add("completed", boolInt(*p.Completed))
	}
	if p.Color != nil {
		add("color", nullString(string(*p.Color)))
	}
	if p.UpdatedAt != nil {
		add("updated_at", formatTime(*p.UpdatedAt))
	}
	return cols, args
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
