package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"officemove/internal/countdown"
	appLog "officemove/internal/log"
	"officemove/internal/metrics"
)

// streamEvent is the payload of one "countdown" server-sent event.
type streamEvent struct {
	Target time.Time `json:"target"`
	countdown.Remaining
	Reached bool `json:"reached"`
}

type streamUpdate struct {
	target time.Time
	rem    countdown.Remaining
}

// handleCountdownStream pushes the remaining time to the client as
// server-sent events, one per stream interval, until the client disconnects
// or the server shuts down. Each stream owns its own countdown.Ticker.
func (s *Server) handleCountdownStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	metrics.CountdownStreams.Inc()
	defer metrics.CountdownStreams.Dec()

	// Latest value wins; a slow client skips ticks instead of blocking the
	// ticker goroutine. Each value carries the target it was computed for.
	updates := make(chan streamUpdate, 1)
	start := func(target time.Time) *countdown.Ticker {
		return countdown.Start(target, s.clock, s.streamInterval, func(rem countdown.Remaining) {
			select {
			case updates <- streamUpdate{target: target, rem: rem}:
			default:
			}
		})
	}

	target := s.tracker.Current().Target
	tk := start(target)
	defer func() { tk.Stop() }()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case u := <-updates:
			// The move day may have rolled over to next month's target.
			if cur := s.tracker.Current().Target; !cur.Equal(target) {
				tk.Stop()
				select {
				case <-updates:
				default:
				}
				target = cur
				tk = start(target)
				continue
			}
			if !u.target.Equal(target) {
				continue
			}

			if err := writeEvent(w, "countdown", streamEvent{
				Target:    target,
				Remaining: u.rem,
				Reached:   u.rem.IsZero(),
			}); err != nil {
				appLog.Debug("countdown stream closed", "reason", err.Error())
				return
			}
			flusher.Flush()
		}
	}
}

// writeEvent writes a single SSE frame with a JSON data line.
func writeEvent(w http.ResponseWriter, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Flush keeps the wrapped writer usable for event streams.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// instrument counts requests per route and status code.
func instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	})
}
