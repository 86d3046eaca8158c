package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"

	appLog "coursecal/internal/log"
)

// DateLayout is the date format used in meeting patterns and term windows.
const DateLayout = "2006/01/02"

// ErrUnknownTerm is returned for any term identifier other than term1/term2.
var ErrUnknownTerm = errors.New("unknown term")

// Window is the inclusive date range of one academic term.
type Window struct {
	Term  string
	Start time.Time
	End   time.Time
}

var windows = map[string]Window{
	"term1": {
		Term:  "term1",
		Start: time.Date(2024, time.September, 3, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, time.December, 6, 0, 0, 0, 0, time.UTC),
	},
	"term2": {
		Term:  "term2",
		Start: time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, time.April, 6, 0, 0, 0, 0, time.UTC),
	},
}

// Resolve returns the window for a term identifier (case-insensitive).
func Resolve(term string) (Window, error) {
	w, ok := windows[strings.ToLower(strings.TrimSpace(term))]
	if !ok {
		return Window{}, fmt.Errorf("%w: %q", ErrUnknownTerm, term)
	}
	return w, nil
}

// TermDates returns the start and end date strings ("YYYY/MM/DD") of a term.
func TermDates(term string) (string, string, error) {
	w, err := Resolve(term)
	if err != nil {
		return "", "", err
	}
	return w.StartString(), w.EndString(), nil
}

// IsInTerm reports whether date ("YYYY/MM/DD") falls inside the term window,
// both ends inclusive. Unparseable dates and unknown terms are logged and
// report false.
func IsInTerm(date, term string) bool {
	w, err := Resolve(term)
	if err != nil {
		appLog.Error("term check failed", err, "date", date)
		return false
	}
	return w.ContainsString(date)
}

// ParseDate parses a "YYYY/MM/DD" string as a UTC calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// Contains reports whether the calendar date of t lies within the window.
func (w Window) Contains(t time.Time) bool {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return !d.Before(w.Start) && !d.After(w.End)
}

// ContainsString is Contains for a "YYYY/MM/DD" string; parse failures are
// logged and report false.
func (w Window) ContainsString(date string) bool {
	d, err := ParseDate(date)
	if err != nil {
		appLog.Error("term check: bad date", err, "date", date, "term", w.Term)
		return false
	}
	return w.Contains(d)
}

func (w Window) StartString() string { return w.Start.Format(DateLayout) }
func (w Window) EndString() string   { return w.End.Format(DateLayout) }

// Label is a human-readable name such as "Term 1 (2024/09/03-2024/12/06)".
func (w Window) Label() string {
	return fmt.Sprintf("Term %s (%s-%s)", strings.TrimPrefix(w.Term, "term"), w.StartString(), w.EndString())
}
