package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"coursecal/internal/capture"
	"coursecal/internal/config"
	"coursecal/internal/export"
	"coursecal/internal/grid"
	"coursecal/internal/ics"
	appLog "coursecal/internal/log"
	"coursecal/internal/workbook"
)

var errNoInput = errors.New("no input workbook: pass --input or set workbook.source in the config")

// sourceFlags are the input flags shared by generate, events and serve.
type sourceFlags struct {
	input     string
	term      string
	sheet     string
	headerRow int
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "workbook path or http(s) URL")
	cmd.Flags().StringVarP(&f.term, "term", "t", "", "term to build: term1 or term2")
	cmd.Flags().StringVar(&f.sheet, "sheet", "", "sheet name (default: first sheet)")
	cmd.Flags().IntVar(&f.headerRow, "header-row", 0, "1-based header row (default 3)")
}

// apply copies set flags over the loaded config.
func (f *sourceFlags) apply(c *config.Config) error {
	if f.input != "" {
		c.Workbook.Source = f.input
	}
	if f.term != "" {
		c.Term = f.term
	}
	if f.sheet != "" {
		c.Workbook.Sheet = f.sheet
	}
	if f.headerRow > 0 {
		c.Workbook.HeaderRow = f.headerRow
	}
	c.Normalize()
	if c.Workbook.Source == "" {
		return errNoInput
	}
	return nil
}

func readOptions(c *config.Config) workbook.ReadOptions {
	return workbook.ReadOptions{
		Sheet:     c.Workbook.Sheet,
		HeaderRow: c.Workbook.HeaderRow,
		Columns:   c.Workbook.Columns,
	}
}

func loadLocation(c *config.Config) (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func exportOptions(c *config.Config, loc *time.Location) export.Options {
	return export.Options{
		Grid: grid.Options{
			HourHeight: c.Grid.HourHeight,
			Title:      c.Grid.Title,
		},
		Calendar: ics.Options{
			Location: loc,
			Name:     c.Grid.Title,
		},
	}
}

// buildArtifacts runs the whole pipeline once: read the workbook, render the
// grid and calendar, and capture the grid when withPNG is set.
func buildArtifacts(ctx context.Context, c *config.Config, withPNG bool) (export.Result, error) {
	loc, err := loadLocation(c)
	if err != nil {
		return export.Result{}, err
	}

	rows, err := workbook.NewFetcher(c.CacheDir).Load(ctx, c.Workbook.Source, readOptions(c))
	if err != nil {
		return export.Result{}, err
	}

	res, err := export.Build(rows, c.Term, exportOptions(c, loc))
	if err != nil {
		return export.Result{}, err
	}

	if withPNG {
		png, err := capture.CaptureHTMLPNG(ctx, capture.Options{
			HTML:    res.HTML,
			Width:   c.Capture.Width,
			Height:  c.Capture.Height,
			Timeout: time.Duration(c.Capture.TimeoutSec) * time.Second,
		})
		if err != nil {
			return export.Result{}, err
		}
		res.PNG = png
	}

	appLog.Debug("pipeline done", "term", res.Window.Term, "rows", len(rows), "png", withPNG)
	return res, nil
}
