package web

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	appLog "coursecal/internal/log"
)

const watchDebounce = 500 * time.Millisecond

// RunOptions selects the regeneration triggers for Run.
type RunOptions struct {
	// WatchPath, if set, is a local workbook whose changes trigger a refresh.
	WatchPath string
}

// Run generates the artifacts once, starts the cron and file-change
// triggers, and serves HTTP until ctx is cancelled. A failed first
// generation is logged; the server answers 503 until a refresh succeeds.
func (s *Server) Run(ctx context.Context, opts RunOptions) error {
	if err := s.Refresh(ctx); err != nil {
		appLog.Error("initial generation failed", err)
	}

	stopCron, err := s.StartCron(ctx)
	if err != nil {
		return err
	}
	defer stopCron()

	if opts.WatchPath != "" {
		stopWatch, err := s.Watch(ctx, opts.WatchPath)
		if err != nil {
			return err
		}
		defer stopWatch()
	}

	return s.ListenAndServe(ctx)
}

// StartCron schedules Refresh on cfg.RefreshCron in the configured zone.
// The returned func stops the scheduler and waits for a running refresh.
func (s *Server) StartCron(ctx context.Context) (func(), error) {
	c := cron.New(cron.WithLocation(s.loc))
	_, err := c.AddFunc(s.cfg.RefreshCron, func() {
		appLog.Debug("cron refresh triggered", "schedule", s.cfg.RefreshCron)
		_ = s.Refresh(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("web: refresh schedule %q: %w", s.cfg.RefreshCron, err)
	}
	c.Start()
	appLog.Info("refresh schedule started", "schedule", s.cfg.RefreshCron, "timezone", s.loc.String())

	return func() { <-c.Stop().Done() }, nil
}

// Watch refreshes whenever the file at path is written, created or renamed
// into place. The parent directory is watched so save-by-rename is seen;
// bursts of events collapse into one refresh.
func (s *Server) Watch(ctx context.Context, path string) (func(), error) {
	target, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("web: watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(target)); err != nil {
		w.Close()
		return nil, fmt.Errorf("web: watch %s: %w", filepath.Dir(target), err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !isWorkbookChange(ev, target) {
					continue
				}
				appLog.Debug("workbook change detected", "path", ev.Name, "op", ev.Op.String())
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(watchDebounce, func() { _ = s.Refresh(ctx) })
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				appLog.Error("workbook watcher error", err, "path", target)
			}
		}
	}()

	appLog.Info("watching workbook", "path", target)
	return func() {
		w.Close()
		<-done
	}, nil
}

func isWorkbookChange(ev fsnotify.Event, target string) bool {
	name, err := filepath.Abs(ev.Name)
	if err != nil || name != target {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}
