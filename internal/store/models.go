package store

import "time"

// Area is the mutually exclusive bucket a task lives in.
type Area string

const (
	AreaInbox   Area = "inbox"
	AreaWeek    Area = "week"
	AreaSomeday Area = "someday"
)

var Areas = []Area{AreaInbox, AreaWeek, AreaSomeday}

func (a Area) Valid() bool {
	switch a {
	case AreaInbox, AreaWeek, AreaSomeday:
		return true
	}
	return false
}

// Color is a presentational tag from a fixed palette. The zero value means
// no color.
type Color string

const (
	ColorNone       Color = ""
	ColorOrange     Color = "orange"
	ColorTerracotta Color = "terracotta"
	ColorGrayBlue   Color = "gray-blue"
	ColorGreen      Color = "green"
	ColorLavender   Color = "lavender"
)

var Colors = []Color{ColorOrange, ColorTerracotta, ColorGrayBlue, ColorGreen, ColorLavender}

func (c Color) Valid() bool {
	if c == ColorNone {
		return true
	}
	for _, v := range Colors {
		if c == v {
			return true
		}
	}
	return false
}

// Task is the in-memory task record. Optional text fields use the empty
// string for "absent"; the row translation turns that into NULL.
type Task struct {
	ID          string
	Title       string
	Description string
	Area        Area
	Date        string // YYYY-MM-DD, set iff Area == AreaWeek
	Time        string // HH:mm
	EndTime     string // HH:mm, only meaningful with Time
	Order       int
	Completed   bool
	Color       Color
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Partition is the (area, date) key over which Order is unique.
type Partition struct {
	Area Area
	Date string
}

func (t Task) Partition() Partition {
	if t.Area != AreaWeek {
		return Partition{Area: t.Area}
	}
	return Partition{Area: t.Area, Date: t.Date}
}

// Patch lists the fields an update touches. A nil pointer leaves the field
// alone; for the optional text fields an empty string clears the value.
type Patch struct {
	Title       *string
	Description *string
	Area        *Area
	Date        *string
	Time        *string
	EndTime     *string
	Order       *int
	Completed   *bool
	Color       *Color
	UpdatedAt   *time.Time
}

// Apply returns t with the patch's fields merged in.
func (p Patch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Area != nil {
		t.Area = *p.Area
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Time != nil {
		t.Time = *p.Time
	}
	if p.EndTime != nil {
		t.EndTime = *p.EndTime
	}
	if p.Order != nil {
		t.Order = *p.Order
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Color != nil {
		t.Color = *p.Color
	}
	if p.UpdatedAt != nil {
		t.UpdatedAt = *p.UpdatedAt
	}
	return t
}

// Diff returns the patch that turns from into to. CreatedAt and ID are not
// patchable and are ignored.
func Diff(from, to Task) Patch {
	var p Patch
	if from.Title != to.Title {
		p.Title = &to.Title
	}
	if from.Description != to.Description {
		p.Description = &to.Description
	}
	if from.Area != to.Area {
		p.Area = &to.Area
	}
	if from.Date != to.Date {
		p.Date = &to.Date
	}
	if from.Time != to.Time {
		p.Time = &to.Time
	}
	if from.EndTime != to.EndTime {
		p.EndTime = &to.EndTime
	}
	if from.Order != to.Order {
		p.Order = &to.Order
	}
	if from.Completed != to.Completed {
		p.Completed = &to.Completed
	}
	if from.Color != to.Color {
		p.Color = &to.Color
	}
	if !from.UpdatedAt.Equal(to.UpdatedAt) {
		p.UpdatedAt = &to.UpdatedAt
	}
	return p
}

// Empty reports whether the patch touches no field.
func (p Patch) Empty() bool {
	return p == Patch{}
}

// Filter selects tasks for QueryRange. With From and To set it matches
// week-area tasks dated within [From, To]; otherwise it matches Areas.
type Filter struct {
	Areas []Area
	From  string
	To    string
}

type Setting struct {
	Key   string
	Value string
}
