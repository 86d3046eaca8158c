package ics

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // the fixed zone must resolve on hosts without a zoneinfo database

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	appLog "coursecal/internal/log"
	"coursecal/internal/model"
	"coursecal/internal/schedule"
)

const (
	DefaultTimezone  = "America/Vancouver"
	DefaultProductID = "-//Course Schedule Calendar//coursecal//EN"
	DefaultName      = "Course Schedule"

	icalLocalLayout = "20060102T150405"
	clockLayout     = "15:04"
)

// uidNamespace scopes the name-based UUIDs used as VEVENT UIDs.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://coursecal.local/events"))

var byDay = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
}

// Options controls a single Generate call.
type Options struct {
	// Location is the civil time zone of every meeting. Nil means DefaultTimezone.
	Location  *time.Location
	ProductID string
	Name      string
	// Now stamps DTSTAMP. Nil means time.Now.
	Now func() time.Time
}

// Stats summarizes one Generate call.
type Stats struct {
	Events      int
	Duplicates  int
	Skipped     int
	Occurrences int
}

// Generate builds the weekly-recurring calendar for the rows that fall in
// window and returns it serialized as iCalendar bytes.
func Generate(rows []model.CourseRow, window schedule.Window, opts Options) ([]byte, error) {
	cal, _, err := BuildCalendar(rows, window, opts)
	if err != nil {
		return nil, err
	}
	return []byte(cal.Serialize(ical.WithNewLineWindows)), nil
}

// GenerateForTerm resolves term and generates its calendar. termStart and
// termEnd only feed the calendar description; filtering always uses the
// resolved term window.
func GenerateForTerm(rows []model.CourseRow, termStart, termEnd, term string, opts Options) ([]byte, error) {
	window, err := schedule.Resolve(term)
	if err != nil {
		return nil, err
	}
	cal, _, err := BuildCalendar(rows, window, opts)
	if err != nil {
		return nil, err
	}
	if termStart != "" && termEnd != "" {
		cal.SetXWRCalDesc(fmt.Sprintf("%s %s-%s", window.Term, termStart, termEnd))
	}
	return []byte(cal.Serialize(ical.WithNewLineWindows)), nil
}

// BuildCalendar is Generate without serialization.
func BuildCalendar(rows []model.CourseRow, window schedule.Window, opts Options) (*ical.Calendar, Stats, error) {
	var stats Stats

	loc := opts.Location
	if loc == nil {
		var err error
		loc, err = time.LoadLocation(DefaultTimezone)
		if err != nil {
			return nil, stats, fmt.Errorf("ics: load timezone %s: %w", DefaultTimezone, err)
		}
	}
	if opts.ProductID == "" {
		opts.ProductID = DefaultProductID
	}
	if opts.Name == "" {
		opts.Name = DefaultName
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	stamp := now()

	cal := ical.NewCalendar()
	cal.SetProductId(opts.ProductID)
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(ical.MethodPublish)
	cal.SetXWRCalName(opts.Name)
	cal.SetXWRTimezone(loc.String())
	cal.SetXWRCalDesc(window.Label())

	emitted := make(map[string]bool)

	for i, row := range rows {
		if !row.HasPattern {
			continue
		}
		for _, m := range schedule.ParsePattern(row.Pattern) {
			if !window.ContainsString(m.StartDate) {
				continue
			}

			wd, ok := model.ParseWeekday(m.Day)
			if !ok {
				appLog.Debug("ics: meeting skipped, not a school weekday", "row", i, "course", row.Course, "day", m.Day)
				stats.Skipped++
				continue
			}

			key := eventKey(row.Course, wd, m)
			if emitted[key] {
				stats.Duplicates++
				continue
			}

			ev, err := newEvent(row, m, wd, loc)
			if err != nil {
				appLog.Error("ics: meeting skipped", err, "row", i, "course", row.Course, "day", m.Day)
				stats.Skipped++
				continue
			}

			ve := cal.AddEvent(uuid.NewSHA1(uidNamespace, []byte(key)).String() + "@coursecal")
			ev.apply(ve, loc, stamp)
			emitted[key] = true

			stats.Events++
			stats.Occurrences += ev.occurrences
			appLog.Debug("ics event added",
				"course", row.Course,
				"format", row.Format,
				"day", m.Day,
				"occurrences", ev.occurrences,
			)
		}
	}

	appLog.Info("ics calendar generated",
		"term", window.Term,
		"events", stats.Events,
		"duplicates", stats.Duplicates,
		"skipped", stats.Skipped,
		"occurrences", stats.Occurrences,
	)
	return cal, stats, nil
}

// eventKey identifies a unique recurring event within one calendar. The
// day is the resolved weekday, so "Mon" and "MON" collapse.
func eventKey(course string, wd time.Weekday, m model.Meeting) string {
	return strings.Join([]string{course, wd.String(), m.StartTime, m.Location}, "\x1f")
}

type courseEvent struct {
	summary     string
	description string
	location    string
	start, end  time.Time
	rule        rrule.ROption
	occurrences int
}

func newEvent(row model.CourseRow, m model.Meeting, wd time.Weekday, loc *time.Location) (courseEvent, error) {
	startDate, err := schedule.ParseDate(m.StartDate)
	if err != nil {
		return courseEvent{}, fmt.Errorf("start date: %w", err)
	}
	endDate, err := schedule.ParseDate(m.EndDate)
	if err != nil {
		return courseEvent{}, fmt.Errorf("end date: %w", err)
	}
	startClock, err := time.Parse(clockLayout, strings.TrimSpace(m.StartTime))
	if err != nil {
		return courseEvent{}, fmt.Errorf("start time: %w", err)
	}
	endClock, err := time.Parse(clockLayout, strings.TrimSpace(m.EndTime))
	if err != nil {
		return courseEvent{}, fmt.Errorf("end time: %w", err)
	}

	first := firstWeekday(startDate, wd)
	ev := courseEvent{
		summary:     summary(row),
		description: description(row, m),
		location:    m.Location,
		start:       combine(first, startClock, loc),
		end:         combine(first, endClock, loc),
	}
	ev.rule = rrule.ROption{
		Freq:      rrule.WEEKLY,
		Dtstart:   ev.start,
		Until:     combine(endDate, endClock, loc),
		Byweekday: []rrule.Weekday{byDay[wd]},
	}

	r, err := rrule.NewRRule(ev.rule)
	if err != nil {
		return courseEvent{}, fmt.Errorf("rrule: %w", err)
	}
	ev.occurrences = len(r.All())
	return ev, nil
}

func (ev courseEvent) apply(ve *ical.VEvent, loc *time.Location, stamp time.Time) {
	tzid := loc.String()
	ve.SetDtStampTime(stamp)
	ve.SetSummary(ev.summary)
	ve.SetDescription(ev.description)
	ve.SetLocation(ev.location)
	ve.SetProperty(ical.ComponentPropertyDtStart, ev.start.Format(icalLocalLayout), ical.WithTZID(tzid))
	ve.SetProperty(ical.ComponentPropertyDtEnd, ev.end.Format(icalLocalLayout), ical.WithTZID(tzid))
	ve.AddRrule(ev.rule.RRuleString())
}

func summary(row model.CourseRow) string {
	if row.IsLab() {
		return row.Course + " (Lab)"
	}
	return row.Course
}

func description(row model.CourseRow, m model.Meeting) string {
	return fmt.Sprintf("Course: %s\nType: %s\nSection: %s\nLocation: %s\nInstructor: %s",
		row.Course, row.Format, row.Section, m.Location, row.Instructor)
}

// firstWeekday returns the first date on or after d that falls on wd.
func firstWeekday(d time.Time, wd time.Weekday) time.Time {
	for d.Weekday() != wd {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// combine joins a calendar date and a clock time in loc.
func combine(date, clock time.Time, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
}
