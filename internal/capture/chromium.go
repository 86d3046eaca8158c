package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"

	appLog "coursecal/internal/log"
)

// Defaults fit a five-day grid at the default hour height.
const (
	DefaultWidth      = 1280
	DefaultHeight     = 1024
	DefaultTimeoutSec = 30

	readySelector = `[data-ready="true"]`
)

// ErrNoInput is returned when neither HTML nor URL is set.
var ErrNoInput = errors.New("capture: HTML or URL is required")

// Options defines one headless Chromium screenshot.
type Options struct {
	// HTML is a complete document to render. It takes precedence over URL.
	HTML string
	// URL is a page to capture, e.g. "http://127.0.0.1:8080/schedule.html".
	URL string

	// Width and Height are the viewport in pixels. Zero means the defaults.
	Width  int
	Height int

	// Timeout bounds the whole capture. Zero means DefaultTimeoutSec.
	Timeout time.Duration
}

// CaptureHTMLPNG renders the grid document in headless Chromium, waits for
// its root to report data-ready="true" and returns a full-page PNG.
func CaptureHTMLPNG(parentCtx context.Context, opts Options) ([]byte, error) {
	if opts.HTML == "" && opts.URL == "" {
		return nil, ErrNoInput
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}

	target := opts.URL
	if opts.HTML != "" {
		dir, err := os.MkdirTemp("", "coursecal-capture-*")
		if err != nil {
			return nil, fmt.Errorf("capture: temp dir: %w", err)
		}
		defer os.RemoveAll(dir)

		page := filepath.Join(dir, "schedule.html")
		if err := os.WriteFile(page, []byte(opts.HTML), 0o600); err != nil {
			return nil, fmt.Errorf("capture: write page: %w", err)
		}
		target = "file://" + filepath.ToSlash(page)
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(target),
		chromedp.WaitVisible(readySelector, chromedp.ByQuery),
		// Let hover transitions and fonts settle.
		chromedp.Sleep(300 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}

	start := time.Now()
	if err := chromedp.Run(ctx, tasks); err != nil {
		return nil, fmt.Errorf("capture: chromedp run failed: %w", err)
	}
	appLog.Debug("capture done", "bytes", len(png), "elapsed", time.Since(start).String())
	return png, nil
}
