// Package dates converts between calendar dates, week keys and HH:mm clock
// values. Dates travel as canonical YYYY-MM-DD strings everywhere outside
// this package.
package dates

import (
	"errors"
	"fmt"
	"time"
)

// Layout is the canonical wire and storage format for calendar dates.
const Layout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid date")

// Parse reads a canonical date string as midnight UTC.
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q", ErrInvalidDate, s)
	}
	return t, nil
}

// Format renders the calendar day of t, ignoring its clock and zone offset.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// Valid reports whether s is a canonical date string.
func Valid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// Today returns the local calendar date of now.
func Today(now time.Time) string {
	return Format(now.Local())
}

func AddDays(date string, n int) (string, error) {
	t, err := Parse(date)
	if err != nil {
		return "", err
	}
	return Format(t.AddDate(0, 0, n)), nil
}

func SubDays(date string, n int) (string, error) {
	return AddDays(date, -n)
}

// WeekStart returns the Monday on or before t.
func WeekStart(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	weekday := day.Weekday()
	if weekday == time.Sunday {
		weekday = 7
	}
	return day.AddDate(0, 0, -int(weekday-time.Monday))
}

// WeekKey returns the canonical date of the Monday starting date's week.
func WeekKey(date string) (string, error) {
	t, err := Parse(date)
	if err != nil {
		return "", err
	}
	return Format(WeekStart(t)), nil
}

// WeekKeyForOffset returns the week key offset weeks away from the week
// containing now.
func WeekKeyForOffset(now time.Time, offset int) string {
	local := now.Local()
	start := WeekStart(time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC))
	return Format(start.AddDate(0, 0, 7*offset))
}

// WeekDates lists the seven dates Monday through Sunday of the week starting
// at weekKey.
func WeekDates(weekKey string) ([]string, error) {
	start, err := Parse(weekKey)
	if err != nil {
		return nil, err
	}
	out := make([]string, 7)
	for i := range out {
		out[i] = Format(start.AddDate(0, 0, i))
	}
	return out, nil
}

// WeekRange returns the inclusive first and last date of weekKey's week.
func WeekRange(weekKey string) (string, string, error) {
	start, err := Parse(weekKey)
	if err != nil {
		return "", "", err
	}
	return Format(start), Format(start.AddDate(0, 0, 6)), nil
}

// WeekOffset returns how many weeks date's week lies from the week
// containing now; the inverse of WeekKeyForOffset.
func WeekOffset(now time.Time, date string) (int, error) {
	t, err := Parse(date)
	if err != nil {
		return 0, err
	}
	current, _ := Parse(WeekKeyForOffset(now, 0))
	days := int(WeekStart(t).Sub(current).Hours()) / 24
	return days / 7, nil
}
