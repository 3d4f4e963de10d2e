package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values shared by the counters below.
const (
	ResultOK          = "ok"
	ResultNotFound    = "not_found"
	ResultNotEntitled = "not_entitled"
	ResultStale       = "stale"
	ResultDuplicate   = "duplicate"
	ResultInvalid     = "invalid"
	ResultError       = "error"
)

var (
	// Updates counts inbound Telegram updates by kind.
	Updates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kinobot_updates_total",
			Help: "Inbound updates processed, by kind",
		},
		[]string{"kind"},
	)

	// UpdatePanics counts handlers that panicked and were recovered.
	UpdatePanics = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kinobot_update_panics_total",
		Help: "Update handlers recovered from a panic",
	})

	// Lookups counts code lookups by entry kind and result.
	Lookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kinobot_lookups_total",
			Help: "Catalog code lookups, by entry kind and result",
		},
		[]string{"kind", "result"},
	)

	// Deliveries counts media deliveries (single redemption or episode) by result.
	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kinobot_deliveries_total",
			Help: "Media deliveries, by path and result",
		},
		[]string{"path", "result"},
	)

	// AccessChecks counts entitlement decisions.
	AccessChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kinobot_access_checks_total",
			Help: "Entitlement gate decisions, by result",
		},
		[]string{"result"},
	)

	// TokenEvents counts one-time token transitions.
	TokenEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kinobot_token_events_total",
			Help: "One-time token registry transitions, by event",
		},
		[]string{"event"},
	)

	// AnnouncementOps counts announcement channel operations.
	AnnouncementOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kinobot_announcement_ops_total",
			Help: "Announcement channel operations, by operation and result",
		},
		[]string{"op", "result"},
	)

	// AdminActions counts completed or rejected admin workflow steps.
	AdminActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kinobot_admin_actions_total",
			Help: "Admin workflow actions, by action and result",
		},
		[]string{"action", "result"},
	)

	// BackupRuns counts catalog snapshot attempts.
	BackupRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kinobot_backup_runs_total",
			Help: "Catalog snapshot attempts, by result",
		},
		[]string{"result"},
	)

	// CatalogEntries reports the entry count after the last successful write.
	CatalogEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kinobot_catalog_entries",
		Help: "Catalog entries after the last successful write",
	})

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kinobot_http_requests_total",
			Help: "HTTP requests served, by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kinobot_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// SetCatalogSize records the current entry count.
func SetCatalogSize(n int) {
	CatalogEntries.Set(float64(n))
}

// Middleware records request counts and latency labelled by the chi route
// pattern, so path parameters never become label values.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.status)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
