// Package export turns course rows into the published artifacts: the HTML
// week grid and the recurring-event calendar.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"coursecal/internal/grid"
	"coursecal/internal/ics"
	appLog "coursecal/internal/log"
	"coursecal/internal/model"
	"coursecal/internal/schedule"
)

const (
	DefaultHTMLName = "course_calendar.html"
	DefaultICSName  = "course_calendar.ics"
	DefaultPNGName  = "course_calendar.png"
)

// Options carries per-artifact settings.
type Options struct {
	Grid     grid.Options
	Calendar ics.Options
}

// Result holds one generation's artifacts.
type Result struct {
	Window schedule.Window
	HTML   string
	ICS    []byte
	// PNG is filled in by callers that capture the grid.
	PNG []byte
}

// Names are the output file names inside the output directory.
type Names struct {
	HTML string
	ICS  string
	PNG  string
}

func (n *Names) normalize() {
	if n.HTML == "" {
		n.HTML = DefaultHTMLName
	}
	if n.ICS == "" {
		n.ICS = DefaultICSName
	}
	if n.PNG == "" {
		n.PNG = DefaultPNGName
	}
}

// Build renders both artifacts for term. An unknown term fails the call
// before anything is rendered.
func Build(rows []model.CourseRow, term string, opts Options) (Result, error) {
	window, err := schedule.Resolve(term)
	if err != nil {
		return Result{}, err
	}

	html, err := grid.Render(rows, window.Term, opts.Grid)
	if err != nil {
		return Result{}, fmt.Errorf("export: grid: %w", err)
	}
	cal, err := ics.Generate(rows, window, opts.Calendar)
	if err != nil {
		return Result{}, fmt.Errorf("export: calendar: %w", err)
	}

	appLog.Info("export built", "term", window.Term, "rows", len(rows), "html_bytes", len(html), "ics_bytes", len(cal))
	return Result{Window: window, HTML: html, ICS: cal}, nil
}

// WriteFiles writes the artifacts into dir, creating it if needed, and
// returns the written paths. The PNG is written only when present.
func WriteFiles(dir string, names Names, res Result) ([]string, error) {
	if dir == "" {
		dir = "."
	}
	if res.HTML == "" && len(res.ICS) == 0 {
		return nil, errors.New("export: nothing to write")
	}
	names.normalize()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("export: create %s: %w", dir, err)
	}

	files := []struct {
		name string
		data []byte
	}{
		{names.HTML, []byte(res.HTML)},
		{names.ICS, res.ICS},
	}
	if len(res.PNG) > 0 {
		files = append(files, struct {
			name string
			data []byte
		}{names.PNG, res.PNG})
	}

	written := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, f.data, 0o644); err != nil {
			return written, fmt.Errorf("export: write %s: %w", path, err)
		}
		written = append(written, path)
		appLog.Debug("export file written", "path", path, "bytes", len(f.data))
	}
	return written, nil
}
