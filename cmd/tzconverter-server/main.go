// Package main implements the tzconverter web server: a server-rendered
// htmx UI for finding viable meeting times across timezones.
package main

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/maypok86/otter/v2"

	"github.com/erikdrouhard/tzconverter/pkg/catalog"
	"github.com/erikdrouhard/tzconverter/pkg/session"
	"github.com/erikdrouhard/tzconverter/pkg/tzlocal"
	"github.com/erikdrouhard/tzconverter/pkg/viability"
)

//go:embed templates/*.html
var templateFiles embed.FS

var (
	port    = flag.String("port", "8080", "Port for web server (or set PORT)")
	verbose = flag.Bool("verbose", false, "Enable verbose logging")
	version = flag.Bool("version", false, "Show version")
)

const sessionCookie = "tz_session"

type rateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{
		requests: make(map[string][]time.Time),
	}
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-time.Minute)

	var valid []time.Time
	for _, t := range rl.requests[ip] {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}

	// Rate limit: 120 requests per minute per IP. The hour inputs fire
	// a request on every change, so interactive use is chatty.
	if len(valid) >= 120 {
		rl.requests[ip] = valid
		return false
	}

	rl.requests[ip] = append(valid, now)
	return true
}

func main() {
	flag.Parse()

	if *version {
		fmt.Println("tzconverter Server v1.2.0")
		return
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if env := os.Getenv("PORT"); env != "" && *port == "8080" {
		*port = env
	}

	tmpl, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		logger.Error("Template parsing failed", "error", err)
		os.Exit(1)
	}

	// Rendered-fragment cache. Only session-independent fragments (the
	// home page shell) land here; grids depend on mutable session state.
	pages := otter.Must(&otter.Options[string, []byte]{
		MaximumSize: 100,
	})

	server := &server{
		registry: session.NewRegistry(),
		tmpl:     tmpl,
		pages:    pages,
		limiter:  newRateLimiter(),
		logger:   logger,
	}

	srv := &http.Server{
		Addr:              ":" + *port,
		Handler:           server.handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", *port)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Shutdown failed", "error", err)
	}
	logger.Info("Server stopped")
}

type server struct {
	registry *session.Registry
	tmpl     *template.Template
	pages    *otter.Cache[string, []byte]
	limiter  *rateLimiter
	logger   *slog.Logger
}

func (s *server) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /timezone-list", s.handleTimezoneList)
	mux.HandleFunc("POST /add-timezone", s.handleAddTimezone)
	mux.HandleFunc("DELETE /remove-timezone/{id}", s.handleRemoveTimezone)
	mux.HandleFunc("POST /update-hours/{id}", s.handleUpdateHours)
	mux.HandleFunc("GET /grid", s.handleGrid)
	mux.HandleFunc("GET /grid-detail", s.handleGridDetail)
	mux.HandleFunc("GET /grid-detail-close", s.handleGridDetailClose)
	mux.HandleFunc("GET /converter", s.handleConverter)
	mux.HandleFunc("GET /api/v1/grid", s.handleAPIGrid)
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	antiCSRF := http.NewCrossOriginProtection()
	return s.wrap(antiCSRF.Handler(mux))
}

func (s *server) wrap(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := fmt.Sprintf("%d-%d", time.Now().Unix(), time.Now().Nanosecond())
		w.Header().Set("X-Request-ID", requestID)

		defer func() {
			if err := recover(); err != nil {
				const size = 64 << 10
				buf := make([]byte, size)
				buf = buf[:runtime.Stack(buf, false)]

				s.logger.Error("PANIC: Request handler crashed",
					"error", err,
					"path", r.URL.Path,
					"method", r.Method,
					"request_id", requestID,
					"client_ip", clientIP(r),
					"stack", string(buf))
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()

		ip := clientIP(r)
		if !s.limiter.allow(ip) {
			s.logger.Error("Rate limit exceeded",
				"request_id", requestID,
				"client_ip", ip,
				"path", r.URL.Path)
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy",
			"default-src 'self'; "+
				"script-src 'self' 'unsafe-inline' https://unpkg.com https://cdn.jsdelivr.net; "+
				"style-src 'self' 'unsafe-inline' https://cdn.jsdelivr.net; "+
				"img-src 'self' data:; "+
				"connect-src 'self'")

		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
		}

		handler.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	ip := r.RemoteAddr
	if i := strings.LastIndex(ip, ":"); i != -1 {
		ip = ip[:i]
	}
	return ip
}

// store returns the request's session store, minting the session cookie
// on first contact. The cookie carries only an opaque id; all state
// stays server-side in the registry.
func (s *server) store(w http.ResponseWriter, r *http.Request) *session.Store {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return s.registry.Store(c.Value)
	}

	id := session.NewSessionID()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return s.registry.Store(id)
}

func (s *server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("Template execution failed",
			"request_id", w.Header().Get("X-Request-ID"),
			"template", name,
			"path", r.URL.Path,
			"error", err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.Debug("Failed to write response", "error", err)
	}
}

type homeData struct {
	Catalog []catalog.Entry
}

func (s *server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.store(w, r) // mint the session cookie on first visit

	if data, ok := s.pages.GetIfPresent("home"); ok {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if _, err := w.Write(data); err != nil {
			s.logger.Debug("Failed to write cached page", "error", err)
		}
		return
	}

	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, "home.html", homeData{Catalog: catalog.List()}); err != nil {
		s.logger.Error("Template execution failed", "template", "home.html", "error", err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	s.pages.Set("home", buf.Bytes())

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.Debug("Failed to write response", "error", err)
	}
}

// card is one selected-timezone card: the entry plus its current local
// time, preformatted for display.
type card struct {
	Entry    session.Entry
	TimeStr  string
	DateStr  string
	StartStr string
	EndStr   string
}

func (s *server) renderTimezoneList(w http.ResponseWriter, r *http.Request, st *session.Store) {
	entries := st.List()
	cards := make([]card, 0, len(entries))
	for _, e := range entries {
		now, err := tzlocal.Now(e.TZ)
		if err != nil {
			s.logger.Error("Timezone resolution failed",
				"request_id", w.Header().Get("X-Request-ID"),
				"timezone", e.TZ,
				"error", err)
			http.Error(w, "Unknown timezone", http.StatusInternalServerError)
			return
		}
		cards = append(cards, card{
			Entry:    e,
			TimeStr:  now.Format("3:04 PM"),
			DateStr:  now.Format("Monday, January 2, 2006"),
			StartStr: clock12(e.Start),
			EndStr:   clock12(e.End),
		})
	}
	s.render(w, r, "cards.html", cards)
}

func (s *server) handleTimezoneList(w http.ResponseWriter, r *http.Request) {
	s.renderTimezoneList(w, r, s.store(w, r))
}

func (s *server) handleAddTimezone(w http.ResponseWriter, r *http.Request) {
	st := s.store(w, r)

	tzID := strings.TrimSpace(r.FormValue("timezone"))
	if tzID != "" {
		// Only catalog timezones are addable through the form; anything
		// else is a hand-crafted request and gets rejected.
		if !inCatalog(tzID) {
			s.logger.Error("Rejected non-catalog timezone",
				"request_id", w.Header().Get("X-Request-ID"),
				"timezone", tzID,
				"client_ip", clientIP(r))
			http.Error(w, "Unknown timezone", http.StatusBadRequest)
			return
		}
		st.Add(tzID)
		s.logger.Info("Timezone added",
			"request_id", w.Header().Get("X-Request-ID"),
			"timezone", tzID)
	}

	s.renderTimezoneList(w, r, st)
}

func inCatalog(tzID string) bool {
	for _, e := range catalog.List() {
		if e.ID == tzID {
			return true
		}
	}
	return false
}

func (s *server) handleRemoveTimezone(w http.ResponseWriter, r *http.Request) {
	st := s.store(w, r)
	st.Remove(r.PathValue("id"))
	s.renderTimezoneList(w, r, st)
}

func (s *server) handleUpdateHours(w http.ResponseWriter, r *http.Request) {
	st := s.store(w, r)

	start, err1 := strconv.Atoi(r.FormValue("start"))
	end, err2 := strconv.Atoi(r.FormValue("end"))
	if err1 != nil || err2 != nil {
		http.Error(w, "Invalid hours", http.StatusBadRequest)
		return
	}

	st.UpdateHours(r.PathValue("id"), start, end)
	s.renderTimezoneList(w, r, st)
}

// slot is one hour column in the grid view.
type slot struct {
	Hour    int
	Label   string
	Percent int
	Tier    viability.Tier
}

type gridData struct {
	Slots []slot
}

func (s *server) handleGrid(w http.ResponseWriter, r *http.Request) {
	st := s.store(w, r)

	zones := st.Zones()
	if len(zones) == 0 {
		s.render(w, r, "grid-empty.html", nil)
		return
	}

	slots, err := s.scoreSlots(time.Now(), zones)
	if err != nil {
		s.logger.Error("Grid scoring failed",
			"request_id", w.Header().Get("X-Request-ID"),
			"error", err)
		http.Error(w, "Unknown timezone", http.StatusInternalServerError)
		return
	}
	s.render(w, r, "grid.html", gridData{Slots: slots})
}

func (s *server) scoreSlots(ref time.Time, zones []viability.Zone) ([]slot, error) {
	instants := viability.Slots(ref)
	slots := make([]slot, 0, len(instants))
	for _, t := range instants {
		result, err := viability.Score(t, zones)
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot{
			Hour:    t.Hour(),
			Label:   hourLabel(t.Hour()),
			Percent: int(result.Score * 100),
			Tier:    result.Tier,
		})
	}
	return slots, nil
}

// detailRow is one participant's local view of the chosen slot.
type detailRow struct {
	Label    string
	TimeStr  string
	DateStr  string
	InWindow bool
}

type detailData struct {
	Header string
	Rows   []detailRow
}

func (s *server) handleGridDetail(w http.ResponseWriter, r *http.Request) {
	st := s.store(w, r)

	hour, err := strconv.Atoi(r.URL.Query().Get("hour"))
	if err != nil || hour < 0 || hour > 23 {
		http.Error(w, "Invalid hour", http.StatusBadRequest)
		return
	}

	// Snapshot once so rows and zones stay index-aligned even if the
	// session mutates mid-request.
	entries := st.List()
	if len(entries) == 0 {
		s.render(w, r, "grid-empty.html", nil)
		return
	}
	zones := make([]viability.Zone, 0, len(entries))
	for _, e := range entries {
		zones = append(zones, viability.Zone{TZ: e.TZ, Start: e.Start, End: e.End})
	}

	slots := viability.Slots(time.Now())
	details, err := viability.Detail(slots[hour], zones)
	if err != nil {
		s.logger.Error("Detail computation failed",
			"request_id", w.Header().Get("X-Request-ID"),
			"hour", hour,
			"error", err)
		http.Error(w, "Unknown timezone", http.StatusInternalServerError)
		return
	}

	rows := make([]detailRow, 0, len(details))
	for i, d := range details {
		rows = append(rows, detailRow{
			Label:    entries[i].Label,
			TimeStr:  clock12(d.Local.Hour()),
			DateStr:  d.Local.Format("Mon, Jan 2"),
			InWindow: d.InWindow,
		})
	}
	s.render(w, r, "detail.html", detailData{
		Header: clock12(hour) + " UTC",
		Rows:   rows,
	})
}

func (s *server) handleGridDetailClose(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "detail-placeholder.html", nil)
}

func (s *server) handleConverter(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "converter.html", nil)
}

type apiSlot struct {
	Hour  int            `json:"hour"`
	Label string         `json:"label"`
	Score float64        `json:"score"`
	Tier  viability.Tier `json:"tier"`
}

type apiEntry struct {
	ID    string `json:"id"`
	TZ    string `json:"timezone"`
	Label string `json:"label"`
	Start int    `json:"preferred_start"`
	End   int    `json:"preferred_end"`
}

type apiGrid struct {
	GeneratedAt time.Time  `json:"generated_at"`
	Slots       []apiSlot  `json:"slots"`
	Entries     []apiEntry `json:"entries"`
}

// handleAPIGrid exposes the same computation as /grid for programmatic
// consumers: 24 slots with raw scores instead of rendered markup.
func (s *server) handleAPIGrid(w http.ResponseWriter, r *http.Request) {
	st := s.store(w, r)

	entries := st.List()
	zones := st.Zones()

	resp := apiGrid{
		GeneratedAt: time.Now().UTC(),
		Slots:       make([]apiSlot, 0, 24),
		Entries:     make([]apiEntry, 0, len(entries)),
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, apiEntry{
			ID: e.ID, TZ: e.TZ, Label: e.Label, Start: e.Start, End: e.End,
		})
	}

	for _, t := range viability.Slots(time.Now()) {
		result, err := viability.Score(t, zones)
		if err != nil {
			s.logger.Error("API grid scoring failed",
				"request_id", w.Header().Get("X-Request-ID"),
				"error", err)
			http.Error(w, "Unknown timezone", http.StatusInternalServerError)
			return
		}
		resp.Slots = append(resp.Slots, apiSlot{
			Hour:  t.Hour(),
			Label: hourLabel(t.Hour()),
			Score: result.Score,
			Tier:  result.Tier,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("Failed to encode response",
			"request_id", w.Header().Get("X-Request-ID"),
			"error", err)
	}
}

func (s *server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
		s.logger.Debug("Failed to encode health response", "error", err)
	}
}

// hourLabel formats an hour as the short grid label: 12AM, 1AM ... 11PM.
func hourLabel(hour int) string {
	h := hour % 12
	if h == 0 {
		h = 12
	}
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	return fmt.Sprintf("%d%s", h, suffix)
}

// clock12 formats an hour as a 12-hour clock time: 12:00 AM, 3:00 PM.
func clock12(hour int) string {
	h := hour % 12
	if h == 0 {
		h = 12
	}
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	return fmt.Sprintf("%d:00 %s", h, suffix)
}
