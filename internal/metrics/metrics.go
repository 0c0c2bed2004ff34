// Package metrics — метрики Prometheus для планировщика и HTTP API.
package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/shaiso/ndo/internal/engine"
)

// Статусы run в ndo_runs_total.
const (
	StatusStarted   = "started"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Виды шагов в ndo_steps_total.
const (
	KindSingle = "single"
	KindJoined = "joined"
)

var (
	initOnce sync.Once

	runsTotal    *prometheus.CounterVec
	runsActive   prometheus.Gauge
	stepsTotal   *prometheus.CounterVec
	runDuration  prometheus.Histogram
	httpRequests *prometheus.CounterVec
)

// Init регистрирует метрики в глобальном реестре Prometheus ровно один раз.
func Init() {
	initOnce.Do(func() {
		runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ndo_runs_total",
			Help: "Total number of run lifecycle events by status.",
		}, []string{"status"})

		runsActive = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ndo_runs_active",
			Help: "Number of runs currently being driven.",
		})

		stepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ndo_steps_total",
			Help: "Total number of yielded steps by kind.",
		}, []string{"kind"})

		runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ndo_run_duration_seconds",
			Help:    "Duration of finished runs in seconds.",
			Buckets: prometheus.DefBuckets,
		})

		httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ndo_http_requests_total",
			Help: "Total HTTP requests handled by the API by status class.",
		}, []string{"code"})

		// счётчики видны на /metrics до первого события
		for _, status := range []string{StatusStarted, StatusSucceeded, StatusFailed, StatusCancelled} {
			runsTotal.WithLabelValues(status)
		}
		for _, kind := range []string{KindSingle, KindJoined} {
			stepsTotal.WithLabelValues(kind)
		}
	})
}

// IncRunStatus увеличивает ndo_runs_total{status}.
func IncRunStatus(status string) {
	Init()
	runsTotal.WithLabelValues(status).Inc()
}

// IncStep увеличивает ndo_steps_total{kind}.
func IncStep(kind string) {
	Init()
	stepsTotal.WithLabelValues(kind).Inc()
}

// ObserveRunDuration записывает длительность завершённого run.
func ObserveRunDuration(d time.Duration) {
	Init()
	runDuration.Observe(d.Seconds())
}

// IncHTTPRequest увеличивает ndo_http_requests_total{code}.
// code — класс статуса: "2xx", "4xx", "5xx".
func IncHTTPRequest(code string) {
	Init()
	httpRequests.WithLabelValues(code).Inc()
}

// Observer реализует engine.Observer поверх метрик.
type Observer struct{}

// NewObserver создаёт наблюдателя и регистрирует метрики.
func NewObserver() *Observer {
	Init()
	return &Observer{}
}

// RunStarted реализует engine.Observer.
func (Observer) RunStarted(engine.RunInfo) {
	IncRunStatus(StatusStarted)
	runsActive.Inc()
}

// StepYielded реализует engine.Observer.
func (Observer) StepYielded(_ engine.RunInfo, _ int, y engine.Yield) {
	if y.IsJoined() {
		IncStep(KindJoined)
		return
	}
	IncStep(KindSingle)
}

// RunFinished реализует engine.Observer.
func (Observer) RunFinished(_ engine.RunInfo, err error, elapsed time.Duration) {
	runsActive.Dec()
	ObserveRunDuration(elapsed)
	IncRunStatus(StatusOf(err))
}

// StatusOf возвращает статус метрики для результата run.
func StatusOf(err error) string {
	switch {
	case err == nil:
		return StatusSucceeded
	case errors.Is(err, engine.ErrCancelled):
		return StatusCancelled
	default:
		return StatusFailed
	}
}
