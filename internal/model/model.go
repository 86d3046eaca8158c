package model

import (
	"strings"
	"time"
)

// CourseRow is one schedule entry as read from the exported workbook.
type CourseRow struct {
	Course     string // "Course Listing"
	Pattern    string // "Meeting Patterns", free text
	Format     string // "Instructional Format", e.g. Lecture / Laboratory
	Section    string
	Instructor string

	// HasPattern is false when the meeting-pattern cell was absent, as
	// opposed to present but empty.
	HasPattern bool
}

// IsLab reports whether the row's instructional format is a laboratory.
func (r CourseRow) IsLab() bool {
	return strings.EqualFold(strings.TrimSpace(r.Format), "laboratory")
}

// Meeting is a single weekly meeting slot parsed from a pattern block.
// Dates are "YYYY/MM/DD", times "HH:MM"; all fields are kept verbatim.
type Meeting struct {
	StartDate string
	EndDate   string
	Day       string // three-letter abbreviation, e.g. "Mon"
	StartTime string
	EndTime   string
	Location  string
}

// Occurrence represents a single concrete instance of a generated
// recurring event, in the display timezone.
type Occurrence struct {
	UID string

	// InstanceKey uniquely identifies a single occurrence of a recurring
	// event, derived from the local start time.
	InstanceKey string

	Summary     string
	Description string
	Location    string

	Start time.Time
	End   time.Time
}

var weekdays = map[string]time.Weekday{
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
}

// ParseWeekday maps a day token to a school weekday (Monday-Friday).
// Weekend and unknown tokens report false.
func ParseWeekday(day string) (time.Weekday, bool) {
	wd, ok := weekdays[strings.ToLower(strings.TrimSpace(day))]
	return wd, ok
}

// SchoolDays lists the weekdays shown in the grid, in display order.
var SchoolDays = []time.Weekday{
	time.Monday,
	time.Tuesday,
	time.Wednesday,
	time.Thursday,
	time.Friday,
}
