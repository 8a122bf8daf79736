package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"officemove/internal/config"
	"officemove/internal/countdown"
	"officemove/internal/ics"
	appLog "officemove/internal/log"
	"officemove/internal/metrics"
	"officemove/internal/move"
)

// upcomingCount is how many future move days /api/move lists.
const upcomingCount = 3

// Server hosts the landing page, its JSON API, the countdown stream and the
// calendar download.
type Server struct {
	cfg     *config.Config
	tracker *move.Tracker
	encoder *ics.Encoder
	clock   countdown.Clock
	mux     *http.ServeMux

	// streamInterval is the countdown stream refresh period.
	streamInterval time.Duration
}

// embeddedStatic contains the landing page shell.
//
//go:embed all:static
var embeddedStatic embed.FS

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, tracker *move.Tracker) *Server {
	s := &Server{
		cfg:            cfg,
		tracker:        tracker,
		encoder:        ics.NewEncoder(cfg.StrictEscaping),
		clock:          tracker.Clock(),
		mux:            http.NewServeMux(),
		streamInterval: countdown.DefaultInterval,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Run serves on cfg.Listen until ctx is canceled, then shuts down
// gracefully. Request contexts derive from ctx, so open countdown streams
// end as soon as ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	appLog.Info("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password disables auth.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
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
			w.Header().Set("WWW-Authenticate", `Basic realm="OfficeMove", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.handle("/health", "health", http.HandlerFunc(s.handleHealth))
	s.handle("/api/move", "move", getOnly(s.handleMove))
	s.handle("/api/countdown", "countdown", getOnly(s.handleCountdown))
	s.handle("/api/countdown/stream", "countdown_stream", getOnly(s.handleCountdownStream))
	s.handle("/"+ics.DefaultFilename, "ics", getOnly(s.handleICS))
	s.handle("/preview.png", "preview", getOnly(s.handlePreview))
	s.handle("/metrics", "metrics", metrics.Handler())

	// Everything else is the embedded landing page.
	s.handle("/", "static", s.staticFileServer())
}

func (s *Server) handle(pattern, route string, h http.Handler) {
	s.mux.Handle(pattern, instrument(route, h))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// moveResponse is the JSON response shape for /api/move.
type moveResponse struct {
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	Location     string              `json:"location"`
	MapURL       string              `json:"map_url,omitempty"`
	ContactEmail string              `json:"contact_email,omitempty"`
	Capacity     int                 `json:"capacity"`
	Agenda       []config.AgendaItem `json:"agenda"`

	Target   time.Time           `json:"target"`
	End      time.Time           `json:"end"`
	Label    string              `json:"label"`
	TimeZone string              `json:"timezone"`
	Upcoming []time.Time         `json:"upcoming"`
	Now      time.Time           `json:"now"`
	Count    countdown.Remaining `json:"countdown"`
}

// countdownResponse is the JSON response shape for /api/countdown.
type countdownResponse struct {
	Target time.Time `json:"target"`
	countdown.Remaining
	Reached bool `json:"reached"`
}

// handleMove returns the current announcement, upcoming move days and a
// countdown snapshot.
func (s *Server) handleMove(w http.ResponseWriter, _ *http.Request) {
	now := s.clock.Now()
	a := s.tracker.At(now)

	upcoming, err := s.tracker.Planner().Upcoming(now, upcomingCount)
	if err != nil {
		appLog.Error("api move: upcoming failed", err)
		writeError(w, http.StatusInternalServerError, "failed to compute upcoming dates")
		return
	}
	if upcoming == nil {
		upcoming = []time.Time{}
	}

	writeJSON(w, http.StatusOK, moveResponse{
		Title:        a.Title,
		Description:  a.Description,
		Location:     a.Location,
		MapURL:       a.MapURL,
		ContactEmail: a.ContactEmail,
		Capacity:     a.Capacity,
		Agenda:       a.Agenda,
		Target:       a.Target,
		End:          a.End,
		Label:        a.Label,
		TimeZone:     a.Target.Location().String(),
		Upcoming:     upcoming,
		Now:          now,
		Count:        a.Remaining(now),
	})
}

func (s *Server) handleCountdown(w http.ResponseWriter, _ *http.Request) {
	now := s.clock.Now()
	a := s.tracker.At(now)
	rem := a.Remaining(now)
	writeJSON(w, http.StatusOK, countdownResponse{
		Target:    a.Target,
		Remaining: rem,
		Reached:   rem.IsZero(),
	})
}

// handleICS offers the current move-day event as office-move.ics.
func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	// The event is built at the export instant, so it never trails the clock.
	now := s.clock.Now()
	ev, err := s.tracker.At(now).Event()
	if err != nil {
		appLog.Error("ics export: invalid event", err)
		writeError(w, http.StatusInternalServerError, "invalid event")
		return
	}

	d, err := ics.NewDownload(s.encoder, ev, now)
	if err != nil {
		appLog.Error("ics export failed", err)
		writeError(w, http.StatusInternalServerError, "failed to export event")
		return
	}

	if err := (responseOfferer{w: w}).Offer(r.Context(), d); err != nil {
		appLog.Error("ics export: write failed", err)
		return
	}
	metrics.ICSExports.WithLabelValues("http").Inc()
	appLog.Info("ics exported", "channel", "http", "bytes", len(d.Body), "start", ev.Start.Format(time.RFC3339))
}

// responseOfferer offers a download as an HTTP attachment.
type responseOfferer struct {
	w http.ResponseWriter
}

func (o responseOfferer) Offer(_ context.Context, d ics.Download) error {
	h := o.w.Header()
	h.Set("Content-Type", d.MediaType)
	h.Set("Content-Disposition", `attachment; filename="`+d.Filename+`"`)
	h.Set("Content-Length", strconv.Itoa(len(d.Body)))
	h.Set("Cache-Control", "no-store")
	o.w.WriteHeader(http.StatusOK)
	_, err := o.w.Write(d.Body)
	return err
}

// staticFileServer serves the embedded landing page from internal/web/static.
func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static UI not available", http.StatusServiceUnavailable)
		})
	}

	fileServer := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// Unknown /api/* paths must 404 as API errors, never as HTML.
		if path == "/api" || strings.HasPrefix(path, "/api/") {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}

// handlePreview serves the last captured page preview from disk.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	// http.ServeFile returns 404 for a missing file.
	http.ServeFile(w, r, s.cfg.Capture.Output)
}

func getOnly(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h(w, r)
	})
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
