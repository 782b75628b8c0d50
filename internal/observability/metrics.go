package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics mengumpulkan metrik Prometheus untuk aplikasi.
type Metrics struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	journalsPosted    *prometheus.CounterVec
	journalsReversed  *prometheus.CounterVec
	periodTransitions *prometheus.CounterVec
	reportCache       *prometheus.CounterVec
	reportBuild       *prometheus.HistogramVec
}

// NewMetrics menginisialisasi registry, metrik HTTP dan counter ledger.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_http_requests_total",
		Help: "Jumlah permintaan HTTP berdasarkan route dan status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odyssey_http_request_duration_seconds",
		Help:    "Durasi permintaan HTTP per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	posted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_ledger_journals_posted_total",
		Help: "Journal entries posted, split by manual or auto-generated origin.",
	}, []string{"origin"})
	reversed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_ledger_journals_reversed_total",
		Help: "Journal entries reversed by reversal policy.",
	}, []string{"policy"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_ledger_period_transitions_total",
		Help: "Fiscal period lifecycle transitions by action.",
	}, []string{"action"})
	cache := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_ledger_report_cache_total",
		Help: "Report cache lookups by report and result.",
	}, []string{"report", "result"})
	build := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odyssey_ledger_report_build_seconds",
		Help:    "Time spent building ledger reports on a cache miss.",
		Buckets: prometheus.DefBuckets,
	}, []string{"report"})
	registry.MustRegister(requests, duration, posted, reversed, transitions, cache, build)
	return &Metrics{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:     requests,
		requestDuration:   duration,
		journalsPosted:    posted,
		journalsReversed:  reversed,
		periodTransitions: transitions,
		reportCache:       cache,
		reportBuild:       build,
	}
}

// Handler mengembalikan http.Handler untuk endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware mencatat metrik untuk setiap permintaan HTTP.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer mengekspos registry untuk pendaftaran metrik khusus.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// JournalPosted counts a posting.
func (m *Metrics) JournalPosted(auto bool) {
	if m == nil {
		return
	}
	origin := "manual"
	if auto {
		origin = "auto"
	}
	m.journalsPosted.WithLabelValues(origin).Inc()
}

// JournalReversed counts a reversal under the given policy.
func (m *Metrics) JournalReversed(policy string) {
	if m == nil {
		return
	}
	m.journalsReversed.WithLabelValues(policy).Inc()
}

// PeriodTransition counts create_year, close and reopen actions.
func (m *Metrics) PeriodTransition(action string) {
	if m == nil {
		return
	}
	m.periodTransitions.WithLabelValues(action).Inc()
}

func (m *Metrics) ReportCacheHit(report string) {
	if m == nil {
		return
	}
	m.reportCache.WithLabelValues(report, "hit").Inc()
}

func (m *Metrics) ReportCacheMiss(report string) {
	if m == nil {
		return
	}
	m.reportCache.WithLabelValues(report, "miss").Inc()
}

func (m *Metrics) ObserveReportBuild(report string, d time.Duration) {
	if m == nil {
		return
	}
	m.reportBuild.WithLabelValues(report).Observe(d.Seconds())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
