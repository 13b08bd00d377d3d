package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// series is a labeled family of float samples rendered in the Prometheus text
// format. kind is "counter" or "gauge".
type series struct {
	name   string
	help   string
	kind   string
	labels []string

	mu     sync.RWMutex
	values map[string]float64
}

func newSeries(kind, name, help string, labels ...string) *series {
	return &series{name: name, help: help, kind: kind, labels: labels, values: map[string]float64{}}
}

func (s *series) Add(v float64, labelValues ...string) {
	if s == nil {
		return
	}
	key := labelString(s.labels, labelValues)
	s.mu.Lock()
	s.values[key] += v
	s.mu.Unlock()
}

func (s *series) Inc(labelValues ...string) { s.Add(1, labelValues...) }
func (s *series) Dec(labelValues ...string) { s.Add(-1, labelValues...) }

func (s *series) Value(labelValues ...string) float64 {
	if s == nil {
		return 0
	}
	key := labelString(s.labels, labelValues)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key]
}

func (s *series) write(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", s.name, s.help, s.name, s.kind); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, k := range sortedKeys(s.values) {
		if _, err := fmt.Fprintf(w, "%s%s %g\n", s.name, k, s.values[k]); err != nil {
			return err
		}
	}
	return nil
}

type histogram struct {
	name    string
	help    string
	labels  []string
	buckets []float64

	mu     sync.Mutex
	values map[string]*buckets
}

type buckets struct {
	counts []uint64
	sum    float64
	total  uint64
}

var defaultBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}

func newHistogram(name, help string, labels ...string) *histogram {
	return &histogram{name: name, help: help, labels: labels, buckets: defaultBuckets, values: map[string]*buckets{}}
}

func (h *histogram) Observe(v float64, labelValues ...string) {
	if h == nil {
		return
	}
	key := labelString(h.labels, labelValues)
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.values[key]
	if !ok {
		b = &buckets{counts: make([]uint64, len(h.buckets))}
		h.values[key] = b
	}
	b.sum += v
	b.total++
	for i, le := range h.buckets {
		if v <= le {
			b.counts[i]++
		}
	}
}

func (h *histogram) write(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s histogram\n", h.name, h.help, h.name); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	keys := make([]string, 0, len(h.values))
	for k := range h.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b := h.values[k]
		for i, le := range h.buckets {
			if _, err := fmt.Fprintf(w, "%s_bucket%s %d\n", h.name, withLe(k, fmt.Sprintf("%g", le)), b.counts[i]); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s_bucket%s %d\n%s_sum%s %g\n%s_count%s %d\n",
			h.name, withLe(k, "+Inf"), b.total, h.name, k, b.sum, h.name, k, b.total); err != nil {
			return err
		}
	}
	return nil
}

func labelString(names, values []string) string {
	if len(names) == 0 {
		return ""
	}
	parts := make([]string, len(names))
	for i, name := range names {
		val := "unknown"
		if i < len(values) && values[i] != "" {
			val = values[i]
		}
		parts[i] = name + `="` + escapeLabel(val) + `"`
	}
	return "{" + strings.Join(parts, ",") + "}"
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func escapeLabel(v string) string { return labelEscaper.Replace(v) }

func withLe(labels, le string) string {
	if labels == "" {
		return `{le="` + le + `"}`
	}
	return strings.TrimSuffix(labels, "}") + `,le="` + le + `"}`
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
