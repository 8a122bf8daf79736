package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ICSExports counts calendar files handed out, by channel ("http", "file").
	ICSExports = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "officemove_ics_exports_total",
			Help: "Total calendar files exported",
		},
		[]string{"channel"},
	)

	// CountdownStreams is the number of open countdown event streams.
	CountdownStreams = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "officemove_countdown_streams_active",
			Help: "Number of active countdown streams",
		},
	)

	// TargetRefreshes counts changes of the resolved move-day target.
	TargetRefreshes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "officemove_target_refreshes_total",
			Help: "Total times the move-day target was (re)resolved to a new instant",
		},
	)

	// HTTPRequests counts served requests by route and status code.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "officemove_http_requests_total",
			Help: "Total HTTP requests served",
		},
		[]string{"route", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		ICSExports,
		CountdownStreams,
		TargetRefreshes,
		HTTPRequests,
	)
}

// Handler serves the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
