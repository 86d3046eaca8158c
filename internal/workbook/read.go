package workbook

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	appLog "coursecal/internal/log"
	"coursecal/internal/model"
)

var (
	ErrMissingColumn = errors.New("workbook: required column missing")
	ErrNoSheet       = errors.New("workbook: sheet not found")
)

// DefaultHeaderRow is where the registration export puts its header; the
// rows above it carry a report title and filters.
const DefaultHeaderRow = 3

// Columns names the header cells the reader looks for.
type Columns struct {
	Course     string `yaml:"course"`
	Pattern    string `yaml:"pattern"`
	Format     string `yaml:"format"`
	Section    string `yaml:"section"`
	Instructor string `yaml:"instructor"`
}

// DefaultColumns returns the header names used by the registration export.
func DefaultColumns() Columns {
	return Columns{
		Course:     "Course Listing",
		Pattern:    "Meeting Patterns",
		Format:     "Instructional Format",
		Section:    "Section",
		Instructor: "Instructor",
	}
}

// ReadOptions selects where the table lives in the workbook.
type ReadOptions struct {
	// Sheet is the sheet name. Empty means the first sheet.
	Sheet string
	// HeaderRow is the 1-based header row. Zero means DefaultHeaderRow.
	HeaderRow int
	Columns   Columns
}

func (o *ReadOptions) normalize() {
	if o.HeaderRow <= 0 {
		o.HeaderRow = DefaultHeaderRow
	}
	def := DefaultColumns()
	if o.Columns.Course == "" {
		o.Columns.Course = def.Course
	}
	if o.Columns.Pattern == "" {
		o.Columns.Pattern = def.Pattern
	}
	if o.Columns.Format == "" {
		o.Columns.Format = def.Format
	}
	if o.Columns.Section == "" {
		o.Columns.Section = def.Section
	}
	if o.Columns.Instructor == "" {
		o.Columns.Instructor = def.Instructor
	}
}

// Read opens the xlsx file at path and returns its course rows.
func Read(path string, opts ReadOptions) ([]model.CourseRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("workbook: open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := readFile(f, opts)
	if err != nil {
		return nil, err
	}
	appLog.Info("workbook read", "path", path, "rows", len(rows))
	return rows, nil
}

// ReadFrom is Read for an in-memory or streamed workbook.
func ReadFrom(r io.Reader, opts ReadOptions) ([]model.CourseRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("workbook: open: %w", err)
	}
	defer f.Close()

	return readFile(f, opts)
}

func readFile(f *excelize.File, opts ReadOptions) ([]model.CourseRow, error) {
	opts.normalize()

	sheets := f.GetSheetList()
	sheet := opts.Sheet
	if sheet == "" {
		if len(sheets) == 0 {
			return nil, ErrNoSheet
		}
		sheet = sheets[0]
	} else if !slices.Contains(sheets, sheet) {
		return nil, fmt.Errorf("%w: %q", ErrNoSheet, sheet)
	}

	grid, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("workbook: read sheet %q: %w", sheet, err)
	}
	if len(grid) < opts.HeaderRow {
		return nil, fmt.Errorf("%w: sheet %q has no header row %d", ErrMissingColumn, sheet, opts.HeaderRow)
	}

	idx := headerIndex(grid[opts.HeaderRow-1])
	course, ok := idx[normalizeHeader(opts.Columns.Course)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, opts.Columns.Course)
	}
	pattern, ok := idx[normalizeHeader(opts.Columns.Pattern)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, opts.Columns.Pattern)
	}
	format := optionalIndex(idx, opts.Columns.Format)
	section := optionalIndex(idx, opts.Columns.Section)
	instructor := optionalIndex(idx, opts.Columns.Instructor)

	out := make([]model.CourseRow, 0, len(grid)-opts.HeaderRow)
	for _, cells := range grid[opts.HeaderRow:] {
		if blank(cells) {
			continue
		}
		p := cell(cells, pattern)
		out = append(out, model.CourseRow{
			Course:     strings.TrimSpace(cell(cells, course)),
			Pattern:    p,
			Format:     strings.TrimSpace(cell(cells, format)),
			Section:    strings.TrimSpace(cell(cells, section)),
			Instructor: strings.TrimSpace(cell(cells, instructor)),
			HasPattern: strings.TrimSpace(p) != "",
		})
	}

	appLog.Debug("workbook sheet parsed", "sheet", sheet, "header_row", opts.HeaderRow, "rows", len(out))
	return out, nil
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if key == "" {
			continue
		}
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func optionalIndex(idx map[string]int, name string) int {
	if i, ok := idx[normalizeHeader(name)]; ok {
		return i
	}
	return -1
}

// cell tolerates short rows; GetRows trims trailing empty cells.
func cell(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return cells[i]
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
