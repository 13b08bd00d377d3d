package steps

import (
	"context"
	"strings"
	"time"
)

// ContextKey names one source in a context bundle.
type ContextKey string

const (
	KeySchedule               ContextKey = "schedule"
	KeyLocation               ContextKey = "location"
	KeyLocationRecommendation ContextKey = "location_recommendation"
	KeyVectorSearch           ContextKey = "vector_search"
	KeyAttributes             ContextKey = "attributes"
	KeyActivity               ContextKey = "activity"
	KeyAnalytics              ContextKey = "analytics"
	KeyRelationship           ContextKey = "relationship"
)

// Header renders the key the way the proactive prompt labels it: underscores
// become spaces, first letter upper case, the rest lower case.
func (k ContextKey) Header() string {
	s := strings.ToLower(strings.ReplaceAll(string(k), "_", " "))
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

type ContextEntry struct {
	Key  ContextKey
	Text string
}

// ContextBundle is an insertion-ordered set of labeled snippets. Setting an
// existing key replaces its text in place.
type ContextBundle struct {
	keys []ContextKey
	vals map[ContextKey]string
}

func NewContextBundle() *ContextBundle {
	return &ContextBundle{vals: map[ContextKey]string{}}
}

// Set ignores blank text.
func (b *ContextBundle) Set(k ContextKey, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	if b.vals == nil {
		b.vals = map[ContextKey]string{}
	}
	if _, ok := b.vals[k]; !ok {
		b.keys = append(b.keys, k)
	}
	b.vals[k] = text
}

func (b *ContextBundle) Get(k ContextKey) (string, bool) {
	if b == nil {
		return "", false
	}
	v, ok := b.vals[k]
	return v, ok
}

func (b *ContextBundle) Len() int {
	if b == nil {
		return 0
	}
	return len(b.keys)
}

func (b *ContextBundle) Entries() []ContextEntry {
	if b == nil {
		return nil
	}
	out := make([]ContextEntry, 0, len(b.keys))
	for _, k := range b.keys {
		out = append(out, ContextEntry{Key: k, Text: b.vals[k]})
	}
	return out
}

// Clock returns the current time. Steps take one so tests can pin it.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// Background runs fire-and-forget work such as fact extraction after the
// client has seen the reply. The ctx passed to fn is detached from the request.
type Background func(name string, fn func(ctx context.Context))

func (b Background) run(ctx context.Context, name string, fn func(ctx context.Context)) {
	detached := context.WithoutCancel(ctx)
	if b == nil {
		go fn(detached)
		return
	}
	b(name, fn)
}

// Coords is an optional client position.
type Coords struct {
	Lat float64
	Lon float64
}

// Sampling used for conversational replies.
const (
	ReplyTemperature      = 0.7
	ReplyTopP             = 0.9
	ReplyFrequencyPenalty = 0.2
	ReplyPresencePenalty  = 0.1
)

const (
	PromptHistoryLimit     = 10
	StreamExtractionLimit  = 10
	BatchedExtractionLimit = 5
)
