package export

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/sadopc/tinynotes/internal/dates"
	"github.com/sadopc/tinynotes/internal/store"
)

var areaRank = map[store.Area]int{
	store.AreaInbox:   0,
	store.AreaWeek:    1,
	store.AreaSomeday: 2,
}

func sorted(tasks []store.Task) []store.Task {
	out := slices.Clone(tasks)
	slices.SortStableFunc(out, func(a, b store.Task) int {
		return cmp.Or(
			cmp.Compare(areaRank[a.Area], areaRank[b.Area]),
			cmp.Compare(a.Date, b.Date),
			cmp.Compare(a.Order, b.Order),
		)
	})
	return out
}

// slotDuration is the scheduled length of t as HH:MM, or "" when unscheduled.
func slotDuration(t store.Task) string {
	if t.Time == "" || t.EndTime == "" {
		return ""
	}
	mins, err := dates.Duration(t.Time, t.EndTime)
	if err != nil {
		return ""
	}
	return formatDuration(mins)
}

func formatDuration(mins int) string {
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}
