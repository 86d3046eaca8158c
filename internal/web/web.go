package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"coursecal/internal/config"
	"coursecal/internal/export"
	"coursecal/internal/ics"
	appLog "coursecal/internal/log"
)

// ErrNotReady is reported while no generation has succeeded yet.
var ErrNotReady = errors.New("web: artifacts not generated yet")

// Generator produces a fresh set of artifacts, e.g. by re-reading the
// workbook and rebuilding the grid and calendar.
type Generator func(ctx context.Context) (export.Result, error)

// Server publishes the generated grid and calendar over HTTP.
type Server struct {
	cfg      *config.Config
	loc      *time.Location
	mux      *http.ServeMux
	generate Generator
	now      func() time.Time

	// refreshMu serializes regenerations triggered by cron, file changes
	// and startup.
	refreshMu sync.Mutex

	mu          sync.RWMutex
	current     *export.Result
	generatedAt time.Time
	lastErr     error

	eventsMu    sync.RWMutex
	eventsCache map[eventsKey]eventsCacheEntry
}

// NewServer constructs a Server. Nothing is generated until Refresh runs.
func NewServer(cfg *config.Config, gen Generator) *Server {
	s := &Server{
		cfg:         cfg,
		loc:         resolveLocationOrLocal(cfg.Timezone),
		mux:         http.NewServeMux(),
		generate:    gen,
		now:         time.Now,
		eventsCache: make(map[eventsKey]eventsCacheEntry),
	}
	s.registerRoutes()
	return s
}

// Handler returns the HTTP handler, wrapped with basic auth when configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Refresh regenerates the artifacts. On failure the previous artifacts stay
// published and the error is returned.
func (s *Server) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	start := s.now()
	res, err := s.generate(ctx)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err
		kept := s.current != nil
		s.mu.Unlock()
		appLog.Error("regeneration failed", err, "kept_previous", kept)
		return err
	}

	s.mu.Lock()
	s.current = &res
	s.generatedAt = s.now()
	s.lastErr = nil
	s.mu.Unlock()

	s.eventsMu.Lock()
	s.eventsCache = make(map[eventsKey]eventsCacheEntry)
	s.eventsMu.Unlock()

	appLog.Info("artifacts regenerated",
		"term", res.Window.Term,
		"html_bytes", len(res.HTML),
		"ics_bytes", len(res.ICS),
		"png", len(res.PNG) > 0,
		"elapsed", time.Since(start).String(),
	)
	return nil
}

// Current returns the published artifacts.
func (s *Server) Current() (export.Result, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return export.Result{}, time.Time{}, ErrNotReady
	}
	return *s.current, s.generatedAt, nil
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web: shutdown: %w", err)
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="coursecal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/schedule.html", s.handleSchedule)
	s.mux.HandleFunc("/calendar.ics", s.handleCalendar)
	s.mux.HandleFunc("/preview.png", s.handlePreview)
	s.mux.HandleFunc("/api/events", s.handleEvents)
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/", s.handleIndex)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, "/schedule.html", http.StatusFound)
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	res, at, ok := s.currentOrUnavailable(w)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Last-Modified", at.UTC().Format(http.TimeFormat))
	_, _ = w.Write([]byte(res.HTML))
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	res, at, ok := s.currentOrUnavailable(w)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="`+s.cfg.Output.ICS+`"`)
	w.Header().Set("Last-Modified", at.UTC().Format(http.TimeFormat))
	_, _ = w.Write(res.ICS)
}

// handlePreview serves the last captured PNG of the grid.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	res, _, ok := s.currentOrUnavailable(w)
	if !ok {
		return
	}
	if len(res.PNG) == 0 {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(res.PNG)
}

type statusResponse struct {
	Ready       bool      `json:"ready"`
	Term        string    `json:"term,omitempty"`
	GeneratedAt time.Time `json:"generated_at,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	resp := statusResponse{Ready: s.current != nil, GeneratedAt: s.generatedAt}
	if s.current != nil {
		resp.Term = s.current.Window.Term
	}
	if s.lastErr != nil {
		resp.LastError = s.lastErr.Error()
	}
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) currentOrUnavailable(w http.ResponseWriter) (export.Result, time.Time, bool) {
	res, at, err := s.Current()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return export.Result{}, time.Time{}, false
	}
	return res, at, true
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Occurrences     []occurrenceDTO `json:"occurrences"`
	TruncatedUIDs   []string        `json:"truncated_uids,omitempty"`
	RangeStart      time.Time       `json:"range_start"`
	RangeEnd        time.Time       `json:"range_end"`
	DisplayTimeZone string          `json:"display_timezone"`
	Term            string          `json:"term"`
}

type eventsKey struct {
	days, backfill int
}

type eventsCacheEntry struct {
	resp      eventsResponse
	updatedAt time.Time
}

type occurrenceDTO struct {
	UID         string    `json:"uid"`
	InstanceKey string    `json:"instance_key"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

// handleEvents expands the published calendar around now.
//
// GET /api/events?days=7&backfill=1
//   - days:     days ahead to include (default 7)
//   - backfill: days back to include (default 1)
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	days := parseIntDefault(q.Get("days"), 7)
	if days <= 0 {
		days = 7
	}
	backfill := parseIntDefault(q.Get("backfill"), 1)
	if backfill < 0 {
		backfill = 0
	}

	res, _, ok := s.currentOrUnavailable(w)
	if !ok {
		return
	}

	const eventsCacheTTL = 30 * time.Second
	key := eventsKey{days: days, backfill: backfill}
	cacheNow := s.now()

	s.eventsMu.RLock()
	ec, hit := s.eventsCache[key]
	s.eventsMu.RUnlock()
	if hit && cacheNow.Sub(ec.updatedAt) < eventsCacheTTL {
		writeJSON(w, http.StatusOK, ec.resp)
		return
	}

	now := cacheNow.In(s.loc)
	resp, err := buildEvents(res, s.loc, now.AddDate(0, 0, -backfill), now.AddDate(0, 0, days))
	if err != nil {
		appLog.Error("api events: expand failed", err)
		writeError(w, http.StatusInternalServerError, "failed to expand events")
		return
	}

	appLog.Debug("api events request",
		"days", days,
		"backfill", backfill,
		"occurrences", len(resp.Occurrences),
	)

	s.eventsMu.Lock()
	s.eventsCache[key] = eventsCacheEntry{resp: resp, updatedAt: cacheNow}
	s.eventsMu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func buildEvents(res export.Result, loc *time.Location, rangeStart, rangeEnd time.Time) (eventsResponse, error) {
	parsed, err := ics.ParseICS(ics.Source{ID: res.Window.Term}, res.ICS)
	if err != nil {
		return eventsResponse{}, err
	}
	expanded, err := ics.ExpandOccurrences(parsed, ics.ExpandConfig{
		DisplayLocation: loc,
		RangeStart:      rangeStart,
		RangeEnd:        rangeEnd,
	})
	if err != nil {
		return eventsResponse{}, err
	}

	dtos := make([]occurrenceDTO, 0, len(expanded.Occurrences))
	for _, occ := range expanded.Occurrences {
		dtos = append(dtos, occurrenceDTO{
			UID:         occ.UID,
			InstanceKey: occ.InstanceKey,
			Summary:     occ.Summary,
			Description: occ.Description,
			Location:    occ.Location,
			Start:       occ.Start,
			End:         occ.End,
		})
	}
	return eventsResponse{
		Occurrences:     dtos,
		TruncatedUIDs:   expanded.TruncatedEvents,
		RangeStart:      rangeStart,
		RangeEnd:        rangeEnd,
		DisplayTimeZone: loc.String(),
		Term:            res.Window.Term,
	}, nil
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
