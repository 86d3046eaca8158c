package grid

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"sort"
	"strconv"
	"strings"
	"time"

	appLog "coursecal/internal/log"
	"coursecal/internal/model"
	"coursecal/internal/schedule"
)

const (
	DefaultHourHeight = 100
	DefaultTitle      = "Course Schedule"

	// Axis shown when no meeting survives the term filter.
	emptyStartHour = 8
	emptyEndHour   = 18
)

//go:embed templates/grid.html.tmpl
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/grid.html.tmpl"))

// Options controls a single Render call.
type Options struct {
	// HourHeight is the pixel height of one hour row. Zero means DefaultHourHeight.
	HourHeight int
	Title      string
	// Palette assigns course colors. Nil means a fresh clock-seeded palette.
	Palette *Palette
}

// Entry is a meeting placed on the grid.
type Entry struct {
	model.Meeting

	Course string
	Format string
	Color  string

	StartMin int // minutes since midnight
	EndMin   int
}

// IsLab reports whether the entry gets the laboratory marker.
func (e Entry) IsLab() bool {
	return strings.EqualFold(strings.TrimSpace(e.Format), "laboratory")
}

// Layout is the computed grid before it is turned into HTML.
type Layout struct {
	StartHour int
	EndHour   int
	// Days holds the entries of Monday..Friday, each sorted by start time.
	Days [5][]Entry
}

// Build parses, filters and lays out the rows for one term.
func Build(rows []model.CourseRow, term string, palette *Palette) (Layout, error) {
	window, err := schedule.Resolve(term)
	if err != nil {
		return Layout{}, err
	}
	if palette == nil {
		palette = NewPalette(nil)
	}

	type slotKey struct {
		day           time.Weekday
		times, course string
	}
	seen := make(map[slotKey]bool)

	var layout Layout
	earliest, latest := 24*60, 0
	kept := 0

	for i, row := range rows {
		if !row.HasPattern {
			continue
		}
		color := palette.ColorFor(row.Course)

		for _, m := range schedule.ParsePattern(row.Pattern) {
			if !window.ContainsString(m.StartDate) {
				continue
			}
			wd, ok := model.ParseWeekday(m.Day)
			if !ok {
				continue
			}
			startMin, err := minuteOfDay(m.StartTime)
			if err != nil {
				appLog.Error("grid: bad start time, meeting skipped", err, "row", i, "course", row.Course)
				continue
			}
			endMin, err := minuteOfDay(m.EndTime)
			if err != nil {
				appLog.Error("grid: bad end time, meeting skipped", err, "row", i, "course", row.Course)
				continue
			}

			earliest = min(earliest, startMin)
			latest = max(latest, endMin)
			kept++

			key := slotKey{day: wd, times: m.StartTime + "-" + m.EndTime, course: row.Course}
			if seen[key] {
				continue
			}
			seen[key] = true

			idx := int(wd - time.Monday)
			layout.Days[idx] = append(layout.Days[idx], Entry{
				Meeting:  m,
				Course:   row.Course,
				Format:   row.Format,
				Color:    color,
				StartMin: startMin,
				EndMin:   endMin,
			})
		}
	}

	if kept == 0 {
		layout.StartHour, layout.EndHour = emptyStartHour, emptyEndHour
	} else {
		layout.StartHour = max(0, earliest/60-1)
		layout.EndHour = min(24, latest/60+1)
	}

	for i := range layout.Days {
		day := layout.Days[i]
		sort.SliceStable(day, func(a, b int) bool { return day[a].StartMin < day[b].StartMin })
	}

	appLog.Debug("grid layout built",
		"term", window.Term,
		"meetings", kept,
		"start_hour", layout.StartHour,
		"end_hour", layout.EndHour,
	)
	return layout, nil
}

// Render produces the self-contained HTML week grid for the given term.
func Render(rows []model.CourseRow, term string, opts Options) (string, error) {
	if opts.HourHeight <= 0 {
		opts.HourHeight = DefaultHourHeight
	}
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}

	layout, err := Build(rows, term, opts.Palette)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, newPageData(layout, opts)); err != nil {
		return "", fmt.Errorf("grid: render template: %w", err)
	}
	return buf.String(), nil
}

type pageData struct {
	Title      string
	HourHeight int
	Hours      []string
	Columns    []dayColumn
}

type dayColumn struct {
	Name   string
	Blocks []block
}

type block struct {
	Lab      bool
	Style    template.CSS
	Format   string
	Start    string
	End      string
	Course   string
	Location string
}

func newPageData(layout Layout, opts Options) pageData {
	data := pageData{
		Title:      opts.Title,
		HourHeight: opts.HourHeight,
	}
	for h := layout.StartHour; h <= layout.EndHour; h++ {
		data.Hours = append(data.Hours, fmt.Sprintf("%02d:00", h))
	}

	for i, wd := range model.SchoolDays {
		col := dayColumn{Name: wd.String()}
		for _, e := range layout.Days[i] {
			top := float64((e.StartMin-layout.StartHour*60)*opts.HourHeight) / 60
			height := float64((e.EndMin-e.StartMin)*opts.HourHeight) / 60
			col.Blocks = append(col.Blocks, block{
				Lab: e.IsLab(),
				// Color is a generated hex value and the offsets are numbers.
				Style: template.CSS(fmt.Sprintf("top: %spx; height: %spx; background-color: %s;",
					formatPx(top), formatPx(height), e.Color)),
				Format:   e.Format,
				Start:    e.StartTime,
				End:      e.EndTime,
				Course:   e.Course,
				Location: e.Location,
			})
		}
		data.Columns = append(data.Columns, col)
	}
	return data
}

func formatPx(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// minuteOfDay converts "HH:MM" to minutes since midnight.
func minuteOfDay(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("time %q: missing ':'", s)
	}
	h, err := strconv.Atoi(strings.TrimSpace(hh))
	if err != nil {
		return 0, fmt.Errorf("time %q: %w", s, err)
	}
	m, err := strconv.Atoi(strings.TrimSpace(mm))
	if err != nil {
		return 0, fmt.Errorf("time %q: %w", s, err)
	}
	return h*60 + m, nil
}
