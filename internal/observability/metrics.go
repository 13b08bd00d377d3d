package observability

import (
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Metrics is the process-wide registry scraped from /metrics.
type Metrics struct {
	apiRequests *series
	apiLatency  *histogram
	apiInflight *series

	wsConnections *series
	wsFrames      *series

	llmRequests *series
	llmLatency  *histogram

	sweepUsers   *series
	sweepLatency *histogram

	writeMu sync.Mutex
}

var (
	instanceOnce sync.Once
	instance     *Metrics
)

func NewMetrics() *Metrics {
	return &Metrics{
		apiRequests: newSeries("counter", "companion_api_requests_total", "HTTP requests by route and status.", "method", "route", "status"),
		apiLatency:  newHistogram("companion_api_request_duration_seconds", "HTTP request latency.", "method", "route"),
		apiInflight: newSeries("gauge", "companion_api_inflight_requests", "HTTP requests in flight."),

		wsConnections: newSeries("gauge", "companion_ws_connections", "Open chat websocket connections."),
		wsFrames:      newSeries("counter", "companion_ws_frames_total", "Websocket frames sent by event type.", "type"),

		llmRequests: newSeries("counter", "companion_llm_requests_total", "LLM calls by operation and status.", "op", "status"),
		llmLatency:  newHistogram("companion_llm_request_duration_seconds", "LLM call latency.", "op"),

		sweepUsers:   newSeries("counter", "companion_proactive_sweep_users_total", "Proactive sweep outcomes per user.", "outcome"),
		sweepLatency: newHistogram("companion_proactive_sweep_duration_seconds", "Full sweep duration."),
	}
}

// Init returns the shared registry, creating it on first use.
func Init() *Metrics {
	instanceOnce.Do(func() { instance = NewMetrics() })
	return instance
}

// Current is nil until Init has run; every method tolerates a nil receiver.
func Current() *Metrics { return instance }

func (m *Metrics) ObserveAPI(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
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

func (m *Metrics) WSConnections(delta float64) {
	if m == nil {
		return
	}
	m.wsConnections.Add(delta)
}

func (m *Metrics) IncWSFrame(eventType string) {
	if m == nil {
		return
	}
	m.wsFrames.Inc(eventType)
}

func (m *Metrics) ObserveLLM(op string, err error, dur time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.llmRequests.Inc(op, status)
	m.llmLatency.Observe(dur.Seconds(), op)
}

// ObserveSweep records one sweep run. outcomes maps outcome label to count.
func (m *Metrics) ObserveSweep(outcomes map[string]int, dur time.Duration) {
	if m == nil {
		return
	}
	for outcome, n := range outcomes {
		if n > 0 {
			m.sweepUsers.Add(float64(n), outcome)
		}
	}
	m.sweepLatency.Observe(dur.Seconds())
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, _ *http.Request) {
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
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	writers := []interface{ write(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.wsConnections, m.wsFrames,
		m.llmRequests, m.llmLatency,
		m.sweepUsers, m.sweepLatency,
	}
	for _, s := range writers {
		if err := s.write(w); err != nil {
			return err
		}
	}
	return nil
}
