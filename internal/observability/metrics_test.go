package observability

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsExposition(t *testing.T) {
	m := NewMetrics()
	m.ObserveAPI("GET", "/api/me/status", 200, 30*time.Millisecond)
	m.ObserveAPI("GET", "/api/me/status", 200, 2*time.Second)
	m.ObserveLLM("chat.stream", nil, time.Second)
	m.ObserveLLM("chat.stream", errors.New("boom"), time.Second)
	m.WSConnections(1)
	m.IncWSFrame("chat_stream")
	m.ObserveSweep(map[string]int{"sent": 2, "no_trigger": 0}, time.Second)

	var sb strings.Builder
	require.NoError(t, m.WritePrometheus(&sb))
	out := sb.String()

	assert.Contains(t, out, `companion_api_requests_total{method="GET",route="/api/me/status",status="200"} 2`)
	assert.Contains(t, out, `companion_api_request_duration_seconds_bucket{method="GET",route="/api/me/status",le="0.05"} 1`)
	assert.Contains(t, out, `companion_api_request_duration_seconds_bucket{method="GET",route="/api/me/status",le="+Inf"} 2`)
	assert.Contains(t, out, `companion_llm_requests_total{op="chat.stream",status="error"} 1`)
	assert.Contains(t, out, `companion_ws_connections 1`)
	assert.Contains(t, out, `companion_proactive_sweep_users_total{outcome="sent"} 2`)
	assert.NotContains(t, out, `outcome="no_trigger"`)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/", 200, time.Millisecond)
	m.WSConnections(1)
	require.NoError(t, m.WritePrometheus(&strings.Builder{}))
}

func TestParseHeaders(t *testing.T) {
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, parseHeaders(" a=1, b = 2 ,bad,=x"))
	assert.Nil(t, parseHeaders(""))
}

func TestLabelEscaping(t *testing.T) {
	assert.Equal(t, `{k="a\"b"}`, labelString([]string{"k"}, []string{`a"b`}))
	assert.Equal(t, `{k="unknown"}`, labelString([]string{"k"}, nil))
}
