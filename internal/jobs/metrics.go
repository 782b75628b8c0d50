package jobmetrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeOK     = "ok"
	outcomeFailed = "failed"
)

// Metrics holds the worker collectors: run outcomes, run latency, the last
// successful run per task and the balance drifts found by integrity sweeps.
type Metrics struct {
	runs        *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
	drifts      *prometheus.CounterVec

	now func() time.Time
}

var (
	sharedOnce sync.Once
	shared     *Metrics
)

// NewMetrics registers worker collectors on reg. A nil reg shares one set of
// collectors on the default registerer so repeated calls do not panic.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg != nil {
		return register(reg)
	}
	sharedOnce.Do(func() { shared = register(prometheus.DefaultRegisterer) })
	return shared
}

// Tracker times one task run.
type Tracker struct {
	m     *Metrics
	task  string
	start time.Time
}

// Track starts timing a run of task. It is safe on a nil *Metrics.
func (m *Metrics) Track(task string) *Tracker {
	t := &Tracker{m: m, task: task}
	if m != nil {
		t.start = m.now()
	}
	return t
}

// End records the run outcome and hands err back so callers can
// `return tracker.End(err)`.
func (t *Tracker) End(err error) error {
	if t == nil || t.m == nil || t.task == "" {
		return err
	}
	finished := t.m.now()
	outcome := outcomeOK
	if err != nil {
		outcome = outcomeFailed
	} else {
		t.m.lastSuccess.WithLabelValues(t.task).Set(float64(finished.Unix()))
	}
	t.m.runs.WithLabelValues(t.task, outcome).Inc()
	t.m.latency.WithLabelValues(t.task).Observe(finished.Sub(t.start).Seconds())
	return err
}

// AddDrifts counts accounts whose stored balance disagrees with their posted
// lines. Company zero is used for sweeps that are not tenant scoped.
func (m *Metrics) AddDrifts(companyID int64, count int) {
	if m == nil || count <= 0 {
		return
	}
	if companyID < 0 {
		companyID = 0
	}
	m.drifts.WithLabelValues(strconv.FormatInt(companyID, 10)).Add(float64(count))
}

func register(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger",
			Subsystem: "worker",
			Name:      "runs_total",
			Help:      "Worker task runs by task and outcome.",
		}, []string{"task", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ledger",
			Subsystem: "worker",
			Name:      "run_seconds",
			Help:      "Wall time of worker task runs.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"task"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ledger",
			Subsystem: "worker",
			Name:      "last_success_unixtime",
			Help:      "Unix time of the last successful run per task.",
		}, []string{"task"}),
		drifts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger",
			Subsystem: "integrity",
			Name:      "drifts_total",
			Help:      "Accounts whose stored balance differs from their posted lines, by company.",
		}, []string{"company"}),
		now: time.Now,
	}
	reg.MustRegister(m.runs, m.latency, m.lastSuccess, m.drifts)
	return m
}
