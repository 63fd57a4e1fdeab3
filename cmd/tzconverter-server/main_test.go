package main

import (
	"encoding/json"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/maypok86/otter/v2"

	"github.com/erikdrouhard/tzconverter/pkg/session"
	"github.com/erikdrouhard/tzconverter/pkg/viability"
)

func newTestServer(t *testing.T) *server {
	t.Helper()

	tmpl, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		t.Fatalf("template parsing failed: %v", err)
	}
	return &server{
		registry: session.NewRegistry(),
		tmpl:     tmpl,
		pages:    otter.Must(&otter.Options[string, []byte]{MaximumSize: 100}),
		limiter:  newRateLimiter(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// withSession pins a request to a known session id so tests can reach
// the store behind it.
func withSession(r *http.Request, id string) *http.Request {
	r.AddCookie(&http.Cookie{Name: sessionCookie, Value: id})
	return r
}

func postForm(path string, form url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func TestHandleHome(t *testing.T) {
	s := newTestServer(t)
	h := s.handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("GET / = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Timezone Meeting Scheduler") {
		t.Error("home page missing title")
	}
	if !strings.Contains(body, `value="America/New_York"`) {
		t.Error("home page missing catalog options")
	}

	var minted bool
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookie && c.Value != "" {
			minted = true
		}
	}
	if !minted {
		t.Error("first visit did not mint a session cookie")
	}

	// Second render comes from the page cache and must be identical.
	w2 := httptest.NewRecorder()
	h.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/", nil))
	if w2.Body.String() != body {
		t.Error("cached home page differs from fresh render")
	}
}

func TestAddTimezoneFlow(t *testing.T) {
	s := newTestServer(t)
	h := s.handler()
	const sid = "test-session"

	w := httptest.NewRecorder()
	h.ServeHTTP(w, withSession(postForm("/add-timezone", url.Values{"timezone": {"Europe/London"}}), sid))

	if w.Code != http.StatusOK {
		t.Fatalf("POST /add-timezone = %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "London (GMT/BST)") {
		t.Error("response missing the added timezone card")
	}

	entries := s.registry.Store(sid).List()
	if len(entries) != 1 || entries[0].TZ != "Europe/London" {
		t.Fatalf("store = %+v", entries)
	}

	// Duplicate add renders fine and leaves a single entry.
	w = httptest.NewRecorder()
	h.ServeHTTP(w, withSession(postForm("/add-timezone", url.Values{"timezone": {"Europe/London"}}), sid))
	if w.Code != http.StatusOK {
		t.Fatalf("duplicate add = %d", w.Code)
	}
	if got := s.registry.Store(sid).List(); len(got) != 1 {
		t.Errorf("duplicate add produced %d entries", len(got))
	}
}

func TestAddTimezoneRejectsNonCatalog(t *testing.T) {
	s := newTestServer(t)
	h := s.handler()
	const sid = "test-session"

	w := httptest.NewRecorder()
	h.ServeHTTP(w, withSession(postForm("/add-timezone", url.Values{"timezone": {"Mars/Olympus_Mons"}}), sid))

	if w.Code != http.StatusBadRequest {
		t.Errorf("non-catalog add = %d, want 400", w.Code)
	}
	if len(s.registry.Store(sid).List()) != 0 {
		t.Error("rejected timezone landed in the store")
	}
}

func TestRemoveTimezone(t *testing.T) {
	s := newTestServer(t)
	h := s.handler()
	const sid = "test-session"

	st := s.registry.Store(sid)
	st.Add("UTC")
	id := st.List()[0].ID

	w := httptest.NewRecorder()
	h.ServeHTTP(w, withSession(httptest.NewRequest(http.MethodDelete, "/remove-timezone/"+id, nil), sid))

	if w.Code != http.StatusOK {
		t.Fatalf("DELETE = %d", w.Code)
	}
	if len(st.List()) != 0 {
		t.Error("entry still present after remove")
	}

	// Removing it again is a no-op, not an error.
	w = httptest.NewRecorder()
	h.ServeHTTP(w, withSession(httptest.NewRequest(http.MethodDelete, "/remove-timezone/"+id, nil), sid))
	if w.Code != http.StatusOK {
		t.Errorf("second DELETE = %d, want 200", w.Code)
	}
}

func TestUpdateHours(t *testing.T) {
	s := newTestServer(t)
	h := s.handler()
	const sid = "test-session"

	st := s.registry.Store(sid)
	st.Add("Europe/London")
	id := st.List()[0].ID

	w := httptest.NewRecorder()
	h.ServeHTTP(w, withSession(postForm("/update-hours/"+id, url.Values{"start": {"22"}, "end": {"6"}}), sid))

	if w.Code != http.StatusOK {
		t.Fatalf("POST /update-hours = %d", w.Code)
	}
	e := st.List()[0]
	if e.Start != 22 || e.End != 6 {
		t.Errorf("window = %d-%d, want 22-6", e.Start, e.End)
	}
}

func TestUpdateHoursRejectsNonNumeric(t *testing.T) {
	s := newTestServer(t)
	h := s.handler()
	const sid = "test-session"

	st := s.registry.Store(sid)
	st.Add("UTC")
	id := st.List()[0].ID

	w := httptest.NewRecorder()
	h.ServeHTTP(w, withSession(postForm("/update-hours/"+id, url.Values{"start": {"nine"}, "end": {"17"}}), sid))

	if w.Code != http.StatusBadRequest {
		t.Errorf("non-numeric hours = %d, want 400", w.Code)
	}
	if e := st.List()[0]; e.Start != session.DefaultStart || e.End != session.DefaultEnd {
		t.Error("rejected update still changed the window")
	}
}

func TestHandleGrid(t *testing.T) {
	s := newTestServer(t)
	h := s.handler()
	const sid = "test-session"

	// Empty store renders the prompt, not an error.
	w := httptest.NewRecorder()
	h.ServeHTTP(w, withSession(httptest.NewRequest(http.MethodGet, "/grid", nil), sid))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /grid (empty) = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "add at least one timezone") {
		t.Error("empty grid missing the add-first prompt")
	}

	s.registry.Store(sid).Add("UTC")

	w = httptest.NewRecorder()
	h.ServeHTTP(w, withSession(httptest.NewRequest(http.MethodGet, "/grid", nil), sid))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /grid = %d", w.Code)
	}
	if got := strings.Count(w.Body.String(), "time-slot-time"); got != 24 {
		t.Errorf("grid has %d slots, want 24", got)
	}
}

func TestHandleGridDetail(t *testing.T) {
	s := newTestServer(t)
	h := s.handler()
	const sid = "test-session"

	s.registry.Store(sid).Add("UTC")
	s.registry.Store(sid).Add("Asia/Tokyo")

	w := httptest.NewRecorder()
	h.ServeHTTP(w, withSession(httptest.NewRequest(http.MethodGet, "/grid-detail?hour=12", nil), sid))

	if w.Code != http.StatusOK {
		t.Fatalf("GET /grid-detail = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Details for 12:00 PM UTC") {
		t.Error("detail missing header")
	}
	if got := strings.Count(body, "timezone-time-row"); got != 2 {
		t.Errorf("detail has %d rows, want 2", got)
	}

	for _, bad := range []string{"-1", "24", "noon", ""} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, withSession(httptest.NewRequest(http.MethodGet, "/grid-detail?hour="+bad, nil), sid))
		if w.Code != http.StatusBadRequest {
			t.Errorf("hour=%q = %d, want 400", bad, w.Code)
		}
	}
}

func TestHandleAPIGrid(t *testing.T) {
	s := newTestServer(t)
	h := s.handler()
	const sid = "test-session"

	w := httptest.NewRecorder()
	h.ServeHTTP(w, withSession(httptest.NewRequest(http.MethodGet, "/api/v1/grid", nil), sid))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/v1/grid = %d", w.Code)
	}

	var resp apiGrid
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Slots) != 24 {
		t.Fatalf("got %d slots, want 24", len(resp.Slots))
	}
	for _, slot := range resp.Slots {
		if slot.Score != 0 || slot.Tier != viability.TierLow {
			t.Errorf("empty store slot %d = %+v, want score 0 tier low", slot.Hour, slot)
		}
	}

	s.registry.Store(sid).Add("UTC")

	w = httptest.NewRecorder()
	h.ServeHTTP(w, withSession(httptest.NewRequest(http.MethodGet, "/api/v1/grid", nil), sid))
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Entries) != 1 || resp.Entries[0].TZ != "UTC" {
		t.Errorf("entries = %+v", resp.Entries)
	}
	// A UTC 9-17 window makes exactly hours 9..16 full.
	for _, slot := range resp.Slots {
		wantFull := slot.Hour >= 9 && slot.Hour < 17
		if wantFull && slot.Tier != viability.TierFull {
			t.Errorf("hour %d tier = %v, want full", slot.Hour, slot.Tier)
		}
		if !wantFull && slot.Tier != viability.TierLow {
			t.Errorf("hour %d tier = %v, want low", slot.Hour, slot.Tier)
		}
	}
}

func TestSessionIsolation(t *testing.T) {
	s := newTestServer(t)
	h := s.handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, withSession(postForm("/add-timezone", url.Values{"timezone": {"UTC"}}), "alice"))
	if w.Code != http.StatusOK {
		t.Fatalf("add = %d", w.Code)
	}

	if len(s.registry.Store("bob").List()) != 0 {
		t.Error("alice's timezone visible in bob's session")
	}
}

func TestHandleHealthz(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("GET /healthz = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("healthz body = %q", w.Body.String())
	}
}

func TestHourLabel(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{0, "12AM"},
		{1, "1AM"},
		{11, "11AM"},
		{12, "12PM"},
		{13, "1PM"},
		{23, "11PM"},
	}
	for _, tt := range tests {
		if got := hourLabel(tt.hour); got != tt.want {
			t.Errorf("hourLabel(%d) = %q, want %q", tt.hour, got, tt.want)
		}
	}
}

func TestClock12(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{0, "12:00 AM"},
		{9, "9:00 AM"},
		{12, "12:00 PM"},
		{17, "5:00 PM"},
	}
	for _, tt := range tests {
		if got := clock12(tt.hour); got != tt.want {
			t.Errorf("clock12(%d) = %q, want %q", tt.hour, got, tt.want)
		}
	}
}
