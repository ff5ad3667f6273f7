package dates

import (
	"errors"
	"fmt"
)

const minutesPerDay = 24 * 60

var ErrInvalidClock = errors.New("invalid clock time")

// ParseClock converts an HH:mm string into minutes since midnight.
func ParseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("%w %q", ErrInvalidClock, s)
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("%w %q", ErrInvalidClock, s)
		}
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	if h > 23 || m > 59 {
		return 0, fmt.Errorf("%w %q", ErrInvalidClock, s)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes since midnight as HH:mm, wrapping at 24:00.
func FormatClock(minutes int) string {
	minutes = ((minutes % minutesPerDay) + minutesPerDay) % minutesPerDay
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func AddMinutes(clock string, delta int) (string, error) {
	m, err := ParseClock(clock)
	if err != nil {
		return "", err
	}
	return FormatClock(m + delta), nil
}

// Duration returns the minutes from start to end. An end earlier than start
// is taken to be on the following day.
func Duration(start, end string) (int, error) {
	s, err := ParseClock(start)
	if err != nil {
		return 0, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return 0, err
	}
	if e < s {
		e += minutesPerDay
	}
	return e - s, nil
}

// Snap rounds clock to the nearest multiple of interval minutes, half-up.
func Snap(clock string, interval int) (string, error) {
	m, err := ParseClock(clock)
	if err != nil {
		return "", err
	}
	if interval <= 0 {
		return FormatClock(m), nil
	}
	return FormatClock((m + interval/2) / interval * interval), nil
}

// EnsureMinDuration returns an end time at least min minutes after start.
// An empty or too-close end becomes start+min.
func EnsureMinDuration(start, end string, min int) (string, error) {
	if end == "" {
		return AddMinutes(start, min)
	}
	d, err := Duration(start, end)
	if err != nil {
		return "", err
	}
	if d < min {
		return AddMinutes(start, min)
	}
	return end, nil
}
