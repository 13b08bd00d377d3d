package steps

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/companion-backend/internal/data/repos"
	types "github.com/yungbote/companion-backend/internal/domain"
	"github.com/yungbote/companion-backend/internal/platform/logger"
	"github.com/yungbote/companion-backend/internal/platform/openai"
	"github.com/yungbote/companion-backend/internal/realtime"
	"github.com/yungbote/companion-backend/internal/services"
)

type fakeLLM struct {
	mu       sync.Mutex
	complete func(p openai.ChatParams, msgs []openai.Message) (string, error)
	stream   func(onDelta func(string) error) (string, error)
	calls    []openai.ChatParams
	prompts  [][]openai.Message
}

func (f *fakeLLM) record(p openai.ChatParams, msgs []openai.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, p)
	f.prompts = append(f.prompts, msgs)
}

func (f *fakeLLM) Complete(ctx context.Context, p openai.ChatParams, msgs []openai.Message) (string, error) {
	f.record(p, msgs)
	if f.complete == nil {
		return "{}", nil
	}
	return f.complete(p, msgs)
}

func (f *fakeLLM) Stream(ctx context.Context, p openai.ChatParams, msgs []openai.Message, onDelta func(string) error) (string, error) {
	f.record(p, msgs)
	if f.stream == nil {
		return "", nil
	}
	return f.stream(onDelta)
}

func (f *fakeLLM) DescribeImage(ctx context.Context, model, prompt string, image []byte, contentType string, maxTokens int) (string, error) {
	return "", nil
}

func (f *fakeLLM) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	return nil, nil
}

func (f *fakeLLM) lastPrompt() []openai.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return nil
	}
	return f.prompts[len(f.prompts)-1]
}

// streamChunks returns a stream func that delivers parts in order.
func streamChunks(parts ...string) func(func(string) error) (string, error) {
	return func(onDelta func(string) error) (string, error) {
		full := ""
		for _, p := range parts {
			full += p
			if err := onDelta(p); err != nil {
				return full, err
			}
		}
		return full, nil
	}
}

type fakePlaces struct {
	mu       sync.Mutex
	address  string
	nearby   map[string][]string
	byName   []string
	err      error
	searched []string
}

func (f *fakePlaces) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	return f.address, f.err
}

func (f *fakePlaces) SearchNearby(ctx context.Context, lat, lon float64, code string, radius, limit int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	f.searched = append(f.searched, code)
	f.mu.Unlock()
	out := f.nearby[code]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakePlaces) SearchByName(ctx context.Context, lat, lon float64, names []string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byName, nil
}

type fakeEmotion struct{ label string }

func (f fakeEmotion) Classify(ctx context.Context, text string) string { return f.label }

type fakeSimilarity struct {
	mu      sync.Mutex
	docs    []services.SimilarDoc
	err     error
	indexed []*types.ConversationTurn
	queries []string
}

func (f *fakeSimilarity) Index(ctx context.Context, turn *types.ConversationTurn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, turn)
	return nil
}

func (f *fakeSimilarity) Similar(ctx context.Context, userID uuid.UUID, q string, k int) ([]services.SimilarDoc, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	return f.docs, f.err
}

type recordSink struct {
	mu     sync.Mutex
	frames []realtime.Message
	err    error
}

func (s *recordSink) Send(ctx context.Context, msg realtime.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, msg)
	return nil
}

func (s *recordSink) types() []realtime.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]realtime.EventType, 0, len(s.frames))
	for _, f := range s.frames {
		out = append(out, f.Type)
	}
	return out
}

// inline runs background work synchronously so tests can assert on it.
func inline(name string, fn func(ctx context.Context)) { fn(context.Background()) }

func fixedClock(t time.Time) Clock { return func() time.Time { return t } }

type testRepos struct {
	users         repos.UserRepo
	profiles      repos.UserProfileRepo
	turns         repos.TurnRepo
	pending       repos.PendingProactiveRepo
	attributes    repos.UserAttributeRepo
	activities    repos.UserActivityRepo
	analytics     repos.ActivityAnalyticsRepo
	relationships repos.UserRelationshipRepo
	schedules     repos.UserScheduleRepo
	preferences   repos.PlacePreferenceRepo
}

func newTestRepos(db *gorm.DB, log *logger.Logger) testRepos {
	return testRepos{
		users:         repos.NewUserRepo(db, log),
		profiles:      repos.NewUserProfileRepo(db, log),
		turns:         repos.NewTurnRepo(db, log),
		pending:       repos.NewPendingProactiveRepo(db, log),
		attributes:    repos.NewUserAttributeRepo(db, log),
		activities:    repos.NewUserActivityRepo(db, log),
		analytics:     repos.NewActivityAnalyticsRepo(db, log),
		relationships: repos.NewUserRelationshipRepo(db, log),
		schedules:     repos.NewUserScheduleRepo(db, log),
		preferences:   repos.NewPlacePreferenceRepo(db, log),
	}
}

func (r testRepos) assembleDeps(places services.PlacesService, sim services.SimilarityIndex, clock Clock) AssembleDeps {
	log := logger.NewNop()
	return AssembleDeps{
		Log:           log,
		Clock:         clock,
		Schedules:     r.schedules,
		Attributes:    r.attributes,
		Activities:    r.activities,
		Analytics:     r.analytics,
		Relationships: r.relationships,
		Places:        places,
		Similarity:    sim,
		Insights:      services.NewActivityInsights(log, r.activities, r.analytics),
		Location:      LocationDeps{Log: log, Preferences: r.preferences, Places: places},
	}
}

func (r testRepos) extractDeps(llm openai.Client, clock Clock) ExtractDeps {
	return ExtractDeps{
		Log:           logger.NewNop(),
		LLM:           llm,
		Clock:         clock,
		Attributes:    r.attributes,
		Activities:    r.activities,
		Relationships: r.relationships,
		Schedules:     r.schedules,
	}
}

