package deploy

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stepStartedTotal     *prometheus.CounterVec
	stepCompletedTotal   *prometheus.CounterVec
	stepDuration         *prometheus.HistogramVec
	deployCompletedTotal *prometheus.CounterVec

	// Registration guard
	metricsOnce       sync.Once
	metricsRegistered bool
)

// InitMetrics registers all Prometheus collectors. Call once at startup
// when metrics are enabled; before that, recording is a no-op.
func InitMetrics() {
	metricsOnce.Do(func() {
		stepStartedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authstack_step_started_total",
				Help: "Total number of runbook steps started",
			},
			[]string{"step"},
		)

		stepCompletedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authstack_step_completed_total",
				Help: "Total number of runbook steps completed",
			},
			[]string{"step", "status"},
		)

		stepDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "authstack_step_duration_seconds",
				Help:    "Duration of runbook steps in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"step"},
		)

		deployCompletedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authstack_deploy_completed_total",
				Help: "Total number of deploy runs completed",
			},
			[]string{"status"},
		)

		metricsRegistered = true
	})
}

// Metrics records runbook progress and tracks the step currently in
// flight. All methods are safe on a nil receiver, which disables
// recording.
type Metrics struct {
	mu          sync.Mutex
	currentStep string
}

// NewMetrics creates a Metrics instance. Collectors are registered
// separately via InitMetrics.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// StepStarted records a step start.
func (m *Metrics) StepStarted(step string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.currentStep = step
	m.mu.Unlock()

	if metricsRegistered && stepStartedTotal != nil {
		stepStartedTotal.WithLabelValues(step).Inc()
	}
}

// StepCompleted records a step completion with its status and duration.
func (m *Metrics) StepCompleted(step, status string, elapsed time.Duration) {
	if m == nil || !metricsRegistered {
		return
	}

	if stepCompletedTotal != nil {
		stepCompletedTotal.WithLabelValues(step, status).Inc()
	}
	if stepDuration != nil {
		stepDuration.WithLabelValues(step).Observe(elapsed.Seconds())
	}
}

// DeployCompleted records the outcome of a whole run and clears the
// current step.
func (m *Metrics) DeployCompleted(status string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.currentStep = ""
	m.mu.Unlock()

	if metricsRegistered && deployCompletedTotal != nil {
		deployCompletedTotal.WithLabelValues(status).Inc()
	}
}

// CurrentStep returns the step currently executing, or "" between runs.
func (m *Metrics) CurrentStep() string {
	if m == nil {
		return ""
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentStep
}
