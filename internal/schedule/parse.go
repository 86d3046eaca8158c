package schedule

import (
	"strings"

	appLog "coursecal/internal/log"
	"coursecal/internal/model"
)

// Rejection records a pattern block that did not produce meetings.
type Rejection struct {
	Block  string
	Reason string
}

const (
	reasonTooFewFields = "fewer than 3 fields"
	reasonDateRange    = "date range is not two dates"
	reasonTimeRange    = "time range is not two times"
)

// ParsePattern turns one meeting-pattern cell into meetings. Malformed
// blocks are logged and skipped; it never fails.
func ParsePattern(text string) []model.Meeting {
	meetings, rejected := ParsePatternDetailed(text)
	for _, r := range rejected {
		appLog.Debug("pattern block skipped", "reason", r.Reason, "block", r.Block)
	}
	return meetings
}

// ParsePatternDetailed is ParsePattern that also returns why each skipped
// block was rejected.
//
// Cell format, one block per blank-line separated paragraph:
//
//	2024/09/03-2024/12/06 | Mon Wed | 09:00-10:00 | Room A
//
// Day tokens are not validated here; the renderers decide which ones map
// to a school weekday.
func ParsePatternDetailed(text string) ([]model.Meeting, []Rejection) {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var (
		meetings []model.Meeting
		rejected []Rejection
	)
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		ms, reason := parseBlock(block)
		if reason != "" {
			rejected = append(rejected, Rejection{Block: block, Reason: reason})
			continue
		}
		meetings = append(meetings, ms...)
	}
	return meetings, rejected
}

func parseBlock(block string) ([]model.Meeting, string) {
	fields := make([]string, 0, 4)
	for _, f := range strings.Split(block, "|") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	if len(fields) < 3 {
		return nil, reasonTooFewFields
	}

	startDate, endDate, ok := splitRange(fields[0])
	if !ok {
		return nil, reasonDateRange
	}
	startTime, endTime, ok := splitRange(fields[2])
	if !ok {
		return nil, reasonTimeRange
	}
	location := ""
	if len(fields) > 3 {
		location = fields[3]
	}

	days := strings.Fields(fields[1])
	out := make([]model.Meeting, 0, len(days))
	for _, day := range days {
		out = append(out, model.Meeting{
			StartDate: startDate,
			EndDate:   endDate,
			Day:       day,
			StartTime: startTime,
			EndTime:   endTime,
			Location:  location,
		})
	}
	return out, ""
}

// splitRange splits "a-b" into exactly two trimmed parts.
func splitRange(s string) (string, string, bool) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return "", "", false
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
}
