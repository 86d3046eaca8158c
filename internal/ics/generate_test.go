package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursecal/internal/model"
	"coursecal/internal/schedule"
)

var fixedNow = func() time.Time { return time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC) }

func row(course, pattern, format string) model.CourseRow {
	return model.CourseRow{
		Course:     course,
		Pattern:    pattern,
		Format:     format,
		Section:    "001",
		Instructor: "Dr. Smith",
		HasPattern: true,
	}
}

func term1(t *testing.T) schedule.Window {
	t.Helper()
	w, err := schedule.Resolve("term1")
	require.NoError(t, err)
	return w
}

func generate(t *testing.T, rows []model.CourseRow) string {
	t.Helper()
	out, err := Generate(rows, term1(t), Options{Now: fixedNow})
	require.NoError(t, err)
	return string(out)
}

func TestGenerate_WeeklyEvents(t *testing.T) {
	t.Parallel()

	body := generate(t, []model.CourseRow{
		row("CS 101", "2024/09/03-2024/12/06|Mon Wed|09:00-10:00|Room A", "Lecture"),
	})

	assert.Equal(t, 2, strings.Count(body, "BEGIN:VEVENT"))
	assert.Contains(t, body, "DTSTART;TZID=America/Vancouver:20240909T090000")
	assert.Contains(t, body, "DTEND;TZID=America/Vancouver:20240909T100000")
	assert.Contains(t, body, "DTSTART;TZID=America/Vancouver:20240904T090000")
	assert.Contains(t, body, "RRULE:FREQ=WEEKLY;UNTIL=20241206T180000Z;BYDAY=MO")
	assert.Contains(t, body, "RRULE:FREQ=WEEKLY;UNTIL=20241206T180000Z;BYDAY=WE")
	assert.Contains(t, body, "SUMMARY:CS 101\r\n")
	assert.Contains(t, body, "LOCATION:Room A")
	assert.Contains(t, body, "X-WR-TIMEZONE:America/Vancouver")
	assert.Contains(t, body, "PRODID:"+DefaultProductID)
	assert.Contains(t, body, "DTSTAMP:20240801T120000Z")
	assert.True(t, strings.HasPrefix(body, "BEGIN:VCALENDAR\r\n"))
}

func TestGenerate_Dedup(t *testing.T) {
	t.Parallel()

	pattern := "2024/09/03-2024/12/06|Mon|09:00-10:00|Room A"
	body := generate(t, []model.CourseRow{
		row("CS 101", pattern, "Lecture"),
		row("CS 101", pattern, "Lecture"),
		row("MATH 200", pattern, "Lecture"),
	})

	assert.Equal(t, 2, strings.Count(body, "BEGIN:VEVENT"))
}

func TestGenerate_DayTokenCase(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		days   []string
		events int
		byDay  string
	}{
		{name: "mixed case collapses", days: []string{"Mon", "MON", "mon"}, events: 1, byDay: "BYDAY=MO"},
		{name: "lowercase", days: []string{"wed"}, events: 1, byDay: "BYDAY=WE"},
		{name: "weekend dropped", days: []string{"Sat", "SAT"}, events: 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var rows []model.CourseRow
			for _, d := range tt.days {
				rows = append(rows, row("CS 101", "2024/09/03-2024/12/06|"+d+"|09:00-10:00|Room A", "Lecture"))
			}
			body := generate(t, rows)

			assert.Equal(t, tt.events, strings.Count(body, "BEGIN:VEVENT"))
			if tt.byDay != "" {
				assert.Equal(t, 1, strings.Count(body, tt.byDay))
			}
		})
	}
}

func TestGenerate_LocationDistinguishesEvents(t *testing.T) {
	t.Parallel()

	body := generate(t, []model.CourseRow{
		row("CS 101", "2024/09/03-2024/12/06|Mon|09:00-10:00|Room A", "Lecture"),
		row("CS 101", "2024/09/03-2024/12/06|Mon|09:00-10:00|Room B", "Lecture"),
	})

	assert.Equal(t, 2, strings.Count(body, "BEGIN:VEVENT"))
}

func TestGenerate_LabSummary(t *testing.T) {
	t.Parallel()

	body := generate(t, []model.CourseRow{
		row("CHEM 110", "2024/09/03-2024/12/06|Thu|13:00-16:00|Lab 2", "laboratory"),
	})

	assert.Contains(t, body, "SUMMARY:CHEM 110 (Lab)")
	assert.Contains(t, body, "BYDAY=TH")
}

func TestGenerate_SkipsBadMeetings(t *testing.T) {
	t.Parallel()

	body := generate(t, []model.CourseRow{
		row("CS 101", "2024/09/03-2024/12/06|Mon|9am-10am|Room A", "Lecture"),
		row("CS 102", "2024/09/03-2024/12/06|Sat|09:00-10:00|Room A", "Lecture"),
		row("CS 103", "2025/01/06-2025/04/06|Tue|09:00-10:00|Room A", "Lecture"),
		{Course: "CS 104"},
		row("CS 105", "2024/09/03-2024/12/06|Fri|11:00-12:00", "Seminar"),
	})

	assert.Equal(t, 1, strings.Count(body, "BEGIN:VEVENT"))
	assert.Contains(t, body, "SUMMARY:CS 105")
	assert.Contains(t, body, "BYDAY=FR")
}

func TestGenerate_EmptyCalendar(t *testing.T) {
	t.Parallel()

	body := generate(t, nil)
	assert.Contains(t, body, "BEGIN:VCALENDAR")
	assert.Contains(t, body, "END:VCALENDAR")
	assert.NotContains(t, body, "BEGIN:VEVENT")
}

func TestGenerate_StableUIDs(t *testing.T) {
	t.Parallel()

	rows := []model.CourseRow{row("CS 101", "2024/09/03-2024/12/06|Mon|09:00-10:00|Room A", "Lecture")}
	a := generate(t, rows)
	b := generate(t, rows)
	assert.Equal(t, a, b)
}

func TestGenerateForTerm(t *testing.T) {
	t.Parallel()

	rows := []model.CourseRow{
		row("CS 101", "2024/09/03-2024/12/06|Mon|09:00-10:00|Room A", "Lecture"),
		row("CS 201", "2025/01/06-2025/04/06|Tue|09:00-10:00|Room A", "Lecture"),
	}
	start, end, err := schedule.TermDates("term2")
	require.NoError(t, err)

	out, err := GenerateForTerm(rows, start, end, "term2", Options{Now: fixedNow})
	require.NoError(t, err)
	body := string(out)

	assert.Equal(t, 1, strings.Count(body, "BEGIN:VEVENT"))
	assert.Contains(t, body, "SUMMARY:CS 201")
	assert.Contains(t, body, "DTSTART;TZID=America/Vancouver:20250107T090000")
	// 10:00 PDT on the last day.
	assert.Contains(t, body, "UNTIL=20250406T170000Z")

	_, err = GenerateForTerm(rows, start, end, "term3", Options{})
	assert.ErrorIs(t, err, schedule.ErrUnknownTerm)
}

func TestBuildCalendar_Stats(t *testing.T) {
	t.Parallel()

	pattern := "2024/09/03-2024/12/06|Mon Wed|09:00-10:00|Room A"
	_, stats, err := BuildCalendar([]model.CourseRow{
		row("CS 101", pattern, "Lecture"),
		row("CS 101", pattern, "Lecture"),
		row("CS 102", "2024/09/03-2024/12/06|Tue|xx-10:00", "Lecture"),
	}, term1(t), Options{Now: fixedNow})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Events)
	assert.Equal(t, 2, stats.Duplicates)
	assert.Equal(t, 1, stats.Skipped)
	// 13 Mondays from Sep 9 and 14 Wednesdays from Sep 4.
	assert.Equal(t, 27, stats.Occurrences)
}

func TestFirstWeekday(t *testing.T) {
	t.Parallel()

	tue := time.Date(2024, 9, 3, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, tue, firstWeekday(tue, time.Tuesday))
	assert.Equal(t, 9, firstWeekday(tue, time.Monday).Day())
	assert.Equal(t, 6, firstWeekday(tue, time.Friday).Day())
}
