package web

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"officemove/internal/config"
	"officemove/internal/countdown"
	"officemove/internal/ics"
	"officemove/internal/metrics"
	"officemove/internal/move"
)

// manualClock is a clock tests can move while handlers read it.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	return newTestServerWithClock(t, nil, mutate)
}

// newTestServerWithClock builds a server over the default move config. A nil
// clock is fixed at 2025-08-26 09:00 in the office zone.
func newTestServerWithClock(t *testing.T, clock countdown.Clock, mutate func(*config.Config)) *Server {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Capture.Output = filepath.Join(t.TempDir(), "preview.png")
	if mutate != nil {
		mutate(cfg)
	}

	p, err := move.NewPlanner(cfg)
	if err != nil {
		t.Fatalf("NewPlanner: %v", err)
	}
	if clock == nil {
		clock = countdown.FixedClock{CurrentTime: time.Date(2025, 8, 26, 9, 0, 0, 0, p.Rule.Location)}
	}
	tr, err := move.NewTracker(p, clock)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	s := NewServer(cfg, tr)
	s.streamInterval = 10 * time.Millisecond
	return s
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s.Handler(), http.MethodGet, "/health")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestBasicAuth(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	})
	h := s.Handler()

	if rec := do(t, h, http.MethodGet, "/health"); rec.Code != http.StatusOK {
		t.Errorf("/health without auth = %d, want 200", rec.Code)
	}

	rec := do(t, h, http.MethodGet, "/api/move")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("/api/move without auth = %d, want 401", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Error("missing WWW-Authenticate header")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/move", nil)
	req.SetBasicAuth("admin", "wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/move", nil)
	req.SetBasicAuth("admin", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("with auth = %d, want 200", rec.Code)
	}
}

func TestBasicAuthDisabledWhenIncomplete(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "admin"}
	})
	if rec := do(t, s.Handler(), http.MethodGet, "/api/move"); rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestAPIMove(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s.Handler(), http.MethodGet, "/api/move")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}

	var got moveResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}

	want := time.Date(2025, 8, 27, 5, 15, 0, 0, time.UTC)
	if !got.Target.Equal(want) {
		t.Errorf("target = %s, want %s", got.Target, want)
	}
	if got.End.Sub(got.Target) != time.Hour {
		t.Errorf("end - target = %v", got.End.Sub(got.Target))
	}
	if got.Label != "Wednesday, August 27, 2025 at 10:45 AM" {
		t.Errorf("label = %q", got.Label)
	}
	if got.TimeZone != "Asia/Kolkata" {
		t.Errorf("timezone = %q", got.TimeZone)
	}
	if len(got.Upcoming) != upcomingCount {
		t.Fatalf("upcoming = %d entries, want %d", len(got.Upcoming), upcomingCount)
	}
	if !got.Upcoming[0].Equal(want) {
		t.Errorf("upcoming[0] = %s, want %s", got.Upcoming[0], want)
	}
	if !got.Upcoming[1].Equal(time.Date(2025, 9, 27, 5, 15, 0, 0, time.UTC)) {
		t.Errorf("upcoming[1] = %s", got.Upcoming[1])
	}
	c := got.Count
	if c.Days != 1 || c.Hours != 1 || c.Minutes != 45 || c.Seconds != 0 {
		t.Errorf("countdown = %+v", c)
	}
	if len(got.Agenda) == 0 {
		t.Error("agenda empty")
	}
}

func TestAPICountdown(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s.Handler(), http.MethodGet, "/api/countdown")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var got countdownResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Days != 1 || got.Hours != 1 || got.Minutes != 45 || got.Reached {
		t.Errorf("countdown = %+v", got)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, nil)
	for _, path := range []string{"/api/move", "/api/countdown", "/office-move.ics"} {
		rec := do(t, s.Handler(), http.MethodPost, path)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("POST %s = %d, want 405", path, rec.Code)
		}
	}
}

func TestICSDownload(t *testing.T) {
	s := newTestServer(t, nil)
	before := testutil.ToFloat64(metrics.ICSExports.WithLabelValues("http"))

	rec := do(t, s.Handler(), http.MethodGet, "/office-move.ics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != ics.MediaType {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="office-move.ics"` {
		t.Errorf("Content-Disposition = %q", cd)
	}

	body := rec.Body.String()
	if !strings.HasPrefix(body, "BEGIN:VCALENDAR\r\n") || !strings.HasSuffix(body, "END:VCALENDAR") {
		t.Errorf("unexpected framing: %q", body)
	}
	if !strings.Contains(body, "DTSTART:20250827T051500Z\r\n") || !strings.Contains(body, "DTEND:20250827T061500Z\r\n") {
		t.Errorf("unexpected times:\n%s", body)
	}

	events, err := ics.Parse(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(events) != 1 || events[0].Summary != "Office Move Day – Kosmo One" {
		t.Errorf("parsed = %+v", events)
	}

	if after := testutil.ToFloat64(metrics.ICSExports.WithLabelValues("http")); after != before+1 {
		t.Errorf("ics exports counter = %v, want %v", after, before+1)
	}
}

func TestPreview(t *testing.T) {
	s := newTestServer(t, nil)

	if rec := do(t, s.Handler(), http.MethodGet, "/preview.png"); rec.Code != http.StatusNotFound {
		t.Errorf("missing preview = %d, want 404", rec.Code)
	}

	png := []byte("\x89PNG\r\n\x1a\nfake")
	if err := os.WriteFile(s.cfg.Capture.Output, png, 0o644); err != nil {
		t.Fatal(err)
	}
	rec := do(t, s.Handler(), http.MethodGet, "/preview.png")
	if rec.Code != http.StatusOK || rec.Body.String() != string(png) {
		t.Errorf("preview = %d %q", rec.Code, rec.Body.String())
	}
}

func TestStaticAndUnknownAPI(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s.Handler(), http.MethodGet, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("/ = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "data-ready") {
		t.Error("landing page does not carry the ready marker")
	}

	rec = do(t, s.Handler(), http.MethodGet, "/api/unknown")
	if rec.Code != http.StatusNotFound {
		t.Errorf("/api/unknown = %d, want 404", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("/api/unknown Content-Type = %q", ct)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	do(t, s.Handler(), http.MethodGet, "/health")

	rec := do(t, s.Handler(), http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("/metrics = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `officemove_http_requests_total{route="health",status="200"}`) {
		t.Error("request counter missing from exposition")
	}
}

func TestCountdownStream(t *testing.T) {
	s := newTestServer(t, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/countdown/stream", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	sc := bufio.NewScanner(resp.Body)
	var events []streamEvent
	sawEventLine := false
	for len(events) < 2 && sc.Scan() {
		line := sc.Text()
		switch {
		case line == "event: countdown":
			sawEventLine = true
		case strings.HasPrefix(line, "data: "):
			var ev streamEvent
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
				t.Fatalf("decode %q: %v", line, err)
			}
			events = append(events, ev)
		}
	}
	if len(events) < 2 {
		t.Fatalf("got %d events, err=%v", len(events), sc.Err())
	}
	if !sawEventLine {
		t.Error("missing event name line")
	}
	ev := events[0]
	if ev.Days != 1 || ev.Hours != 1 || ev.Minutes != 45 || ev.Reached {
		t.Errorf("event = %+v", ev)
	}
	if !ev.Target.Equal(time.Date(2025, 8, 27, 5, 15, 0, 0, time.UTC)) {
		t.Errorf("target = %s", ev.Target)
	}

	cancel()
	_, _ = io.Copy(io.Discard, resp.Body)

	deadline := time.Now().Add(2 * time.Second)
	for testutil.ToFloat64(metrics.CountdownStreams) != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("active streams = %v after disconnect", testutil.ToFloat64(metrics.CountdownStreams))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRunShutsDownOnCancel(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.Listen = "127.0.0.1:0"
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(6 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func kolkata(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatal(err)
	}
	return loc
}

func TestPassedTargetNotServed(t *testing.T) {
	loc := kolkata(t)
	clock := &manualClock{now: time.Date(2025, 8, 27, 10, 0, 0, 0, loc)}
	s := newTestServerWithClock(t, clock, nil)

	// Past the move time; no scheduled refresh has run.
	now := time.Date(2025, 8, 27, 10, 45, 30, 0, loc)
	clock.Set(now)
	next := s.tracker.Planner().Rule.Next(now)

	rec := do(t, s.Handler(), http.MethodGet, "/office-move.ics")
	if rec.Code != http.StatusOK {
		t.Fatalf("ics status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "DTSTAMP:"+ics.FormatUTC(now)+"\r\n") {
		t.Errorf("DTSTAMP is not the export instant:\n%s", body)
	}
	if !strings.Contains(body, "DTSTART:"+ics.FormatUTC(next)+"\r\n") {
		t.Errorf("DTSTART is not the next occurrence %s:\n%s", ics.FormatUTC(next), body)
	}

	rec = do(t, s.Handler(), http.MethodGet, "/api/move")
	var mv moveResponse
	if err := json.NewDecoder(rec.Body).Decode(&mv); err != nil {
		t.Fatalf("decode move: %v", err)
	}
	if !mv.Target.Equal(next) || len(mv.Upcoming) == 0 || !mv.Upcoming[0].Equal(mv.Target) {
		t.Errorf("move target = %s, upcoming = %v, want %s first", mv.Target, mv.Upcoming, next)
	}
	if mv.Count.IsZero() {
		t.Error("move countdown is zero after rollover")
	}

	rec = do(t, s.Handler(), http.MethodGet, "/api/countdown")
	var cd countdownResponse
	if err := json.NewDecoder(rec.Body).Decode(&cd); err != nil {
		t.Fatalf("decode countdown: %v", err)
	}
	if !cd.Target.Equal(next) || cd.Reached {
		t.Errorf("countdown = %+v, want target %s not reached", cd, next)
	}
}

func TestCountdownStreamRollover(t *testing.T) {
	loc := kolkata(t)
	aug := time.Date(2025, 8, 27, 10, 45, 0, 0, loc)
	sep := time.Date(2025, 9, 27, 10, 45, 0, 0, loc)

	for i := 0; i < 10; i++ {
		clock := &manualClock{now: aug.Add(-2 * time.Second)}
		s := newTestServerWithClock(t, clock, nil)
		s.streamInterval = time.Millisecond

		ts := httptest.NewServer(s.Handler())
		ctx, cancel := context.WithCancel(context.Background())

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/countdown/stream", nil)
		if err != nil {
			t.Fatal(err)
		}
		resp, err := ts.Client().Do(req)
		if err != nil {
			t.Fatalf("request: %v", err)
		}

		sc := bufio.NewScanner(resp.Body)
		frames, moved, sawSep := 0, false, false
		for sc.Scan() && frames < 200 {
			line := sc.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var ev streamEvent
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
				t.Fatalf("decode %q: %v", line, err)
			}
			frames++

			if !moved {
				clock.Set(aug.Add(time.Second))
				if _, err := s.tracker.Refresh(); err != nil {
					t.Fatalf("Refresh: %v", err)
				}
				moved = true
				continue
			}
			if ev.Target.Equal(sep) {
				if ev.Reached || ev.Days < 30 {
					t.Fatalf("run %d: next month's target paired with %+v", i, ev)
				}
				sawSep = true
				if frames > 20 {
					break
				}
			}
		}
		cancel()
		resp.Body.Close()
		ts.Close()

		if !sawSep {
			t.Fatalf("run %d: stream never moved to %s (%d frames, err=%v)", i, sep, frames, sc.Err())
		}
	}
}
