package observability

import (
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cozi7266/aieng/internal/pkg/logger"
)

// Metrics holds the process counters served on /metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	apiRequests  *CounterVec
	apiLatency   *HistogramVec
	apiInflight  *Gauge
	stageCount   *CounterVec
	stageLatency *HistogramVec
	attempts     *CounterVec
	pipelines    *CounterVec
}

var (
	mu       sync.RWMutex
	instance *Metrics
)

func NewMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("aieng_api_requests_total", "API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"aieng_api_request_duration_seconds",
			"API request latency in seconds by method/route.",
			[]string{"method", "route"},
			[]float64{0.05, 0.25, 1, 5, 15, 30, 60, 180, 600},
		),
		apiInflight: NewGauge("aieng_api_inflight_requests", "In-flight API requests."),
		stageCount:  NewCounterVec("aieng_pipeline_stage_total", "Pipeline stage completions by outcome.", []string{"pipeline", "stage", "status"}),
		stageLatency: NewHistogramVec(
			"aieng_pipeline_stage_duration_seconds",
			"Pipeline stage latency in seconds.",
			[]string{"pipeline", "stage"},
			nil,
		),
		attempts:  NewCounterVec("aieng_sentence_attempts_total", "Sentence generation attempts by outcome.", []string{"outcome"}),
		pipelines: NewCounterVec("aieng_pipeline_runs_total", "Pipeline runs by terminal state.", []string{"pipeline", "status"}),
	}
}

// Init installs the process-wide Metrics when enabled and returns it.
func Init(log *logger.Logger, enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	m := NewMetrics()
	mu.Lock()
	instance = m
	mu.Unlock()
	if log != nil {
		log.Info("metrics enabled")
	}
	return m
}

func Current() *Metrics {
	mu.RLock()
	defer mu.RUnlock()
	return instance
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight, m.stageCount, m.stageLatency, m.attempts, m.pipelines,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.apiRequests.Inc(method, route, strconv.Itoa(status))
	m.apiLatency.Observe(dur.Seconds(), method, route)
}

func (m *Metrics) APIInflight(delta float64) {
	if m == nil {
		return
	}
	m.apiInflight.Add(delta)
}

func (m *Metrics) ObserveStage(pipeline, stage, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.stageCount.Inc(pipeline, stage, status)
	if dur > 0 {
		m.stageLatency.Observe(dur.Seconds(), pipeline, stage)
	}
}

// IncSentenceAttempt counts one text provider attempt: accepted, provider_failure, parse_failure or rejected.
func (m *Metrics) IncSentenceAttempt(outcome string) {
	if m == nil {
		return
	}
	m.attempts.Inc(outcome)
}

func (m *Metrics) IncPipelineRun(pipeline, status string) {
	if m == nil {
		return
	}
	m.pipelines.Inc(pipeline, status)
}

func (m *Metrics) SentenceAttempts(outcome string) float64 {
	if m == nil {
		return 0
	}
	return m.attempts.Value(outcome)
}

func (m *Metrics) StageCount(pipeline, stage, status string) float64 {
	if m == nil {
		return 0
	}
	return m.stageCount.Value(pipeline, stage, status)
}
