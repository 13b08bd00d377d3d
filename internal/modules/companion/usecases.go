package companion

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/companion-backend/internal/data/repos"
	types "github.com/yungbote/companion-backend/internal/domain"
	"github.com/yungbote/companion-backend/internal/modules/companion/steps"
	"github.com/yungbote/companion-backend/internal/platform/gcp"
	"github.com/yungbote/companion-backend/internal/platform/logger"
	"github.com/yungbote/companion-backend/internal/platform/openai"
	"github.com/yungbote/companion-backend/internal/services"
)

type UsecasesDeps struct {
	Log        *logger.Logger
	AI         openai.Client
	Persona    *steps.Persona
	Clock      steps.Clock
	Loc        *time.Location
	Background steps.Background

	Users         repos.UserRepo
	Profiles      repos.UserProfileRepo
	Turns         repos.TurnRepo
	Pending       repos.PendingProactiveRepo
	Attributes    repos.UserAttributeRepo
	Activities    repos.UserActivityRepo
	Analytics     repos.ActivityAnalyticsRepo
	Relationships repos.UserRelationshipRepo
	Schedules     repos.UserScheduleRepo
	Preferences   repos.PlacePreferenceRepo

	Places     services.PlacesService
	Similarity services.SimilarityIndex
	Insights   services.ActivityInsights
	Emotion    services.EmotionClassifier
	Images     services.ImageDescriber
	Notifier   services.ProactiveNotifier
	Bucket     gcp.ImageBucket

	StreamModel      string
	ChatModel        string
	ExtractModel     string
	SimilarTopK      int
	SweepConcurrency int
}

type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases { return Usecases{deps: deps} }

func (u Usecases) WithLog(log *logger.Logger) Usecases {
	u.deps.Log = log
	return u
}

type (
	ReplyInput   = steps.ReplyInput
	StreamResult = steps.StreamResult
	BatchInput   = steps.BatchInput
	BatchResult  = steps.BatchResult
	FrameSink    = steps.FrameSink
	Coords       = steps.Coords

	TickInput   = steps.TickInput
	SweepResult = steps.SweepResult
	SweepReport = steps.SweepReport

	OnboardInput = steps.OnboardInput
)

func (u Usecases) locationDeps() steps.LocationDeps {
	return steps.LocationDeps{
		Log:         u.deps.Log,
		Preferences: u.deps.Preferences,
		Places:      u.deps.Places,
	}
}

func (u Usecases) assembleDeps() steps.AssembleDeps {
	return steps.AssembleDeps{
		Log:           u.deps.Log,
		Clock:         u.deps.Clock,
		Schedules:     u.deps.Schedules,
		Attributes:    u.deps.Attributes,
		Activities:    u.deps.Activities,
		Analytics:     u.deps.Analytics,
		Relationships: u.deps.Relationships,
		Places:        u.deps.Places,
		Similarity:    u.deps.Similarity,
		Insights:      u.deps.Insights,
		Location:      u.locationDeps(),
		SimilarTopK:   u.deps.SimilarTopK,
	}
}

func (u Usecases) extractDeps() steps.ExtractDeps {
	return steps.ExtractDeps{
		Log:           u.deps.Log,
		LLM:           u.deps.AI,
		Model:         u.deps.ExtractModel,
		Clock:         u.deps.Clock,
		Loc:           u.deps.Loc,
		Attributes:    u.deps.Attributes,
		Activities:    u.deps.Activities,
		Relationships: u.deps.Relationships,
		Schedules:     u.deps.Schedules,
	}
}

func (u Usecases) replyDeps() steps.ReplyDeps {
	return steps.ReplyDeps{
		Log:         u.deps.Log,
		LLM:         u.deps.AI,
		Persona:     u.deps.Persona,
		Clock:       u.deps.Clock,
		Loc:         u.deps.Loc,
		Background:  u.deps.Background,
		Turns:       u.deps.Turns,
		Profiles:    u.deps.Profiles,
		Emotion:     u.deps.Emotion,
		Similarity:  u.deps.Similarity,
		Images:      u.deps.Images,
		Bucket:      u.deps.Bucket,
		Assemble:    u.assembleDeps(),
		Extract:     u.extractDeps(),
		StreamModel: u.deps.StreamModel,
		ChatModel:   u.deps.ChatModel,
	}
}

func (u Usecases) proactiveDeps() steps.ProactiveDeps {
	return steps.ProactiveDeps{
		Log:         u.deps.Log,
		LLM:         u.deps.AI,
		Persona:     u.deps.Persona,
		Clock:       u.deps.Clock,
		Loc:         u.deps.Loc,
		Model:       u.deps.ChatModel,
		Users:       u.deps.Users,
		Turns:       u.deps.Turns,
		Pending:     u.deps.Pending,
		Profiles:    u.deps.Profiles,
		Schedules:   u.deps.Schedules,
		Assemble:    u.assembleDeps(),
		Emotion:     u.deps.Emotion,
		Similarity:  u.deps.Similarity,
		Notifier:    u.deps.Notifier,
		Concurrency: u.deps.SweepConcurrency,
	}
}

func (u Usecases) StreamReply(ctx context.Context, sink FrameSink, in ReplyInput) (StreamResult, error) {
	return steps.StreamReply(ctx, u.replyDeps(), sink, in)
}

func (u Usecases) BatchReply(ctx context.Context, in BatchInput) (BatchResult, error) {
	return steps.BatchReply(ctx, u.replyDeps(), in)
}

func (u Usecases) InactivityTick(ctx context.Context, sink FrameSink, in TickInput) error {
	return steps.InactivityTick(ctx, u.proactiveDeps(), sink, in)
}

// NewInactivityTimer builds the countdown for one live connection. Each
// expiry sends the filler message through sink.
func (u Usecases) NewInactivityTimer(timeout time.Duration, sink FrameSink, in TickInput) *steps.InactivityTimer {
	log := u.deps.Log
	if log != nil {
		log = log.With("user_id", in.UserID)
	}
	return steps.NewInactivityTimer(log, timeout, func(ctx context.Context) error {
		return u.InactivityTick(ctx, sink, in)
	})
}

func (u Usecases) Sweep(ctx context.Context) (SweepReport, error) {
	return steps.Sweep(ctx, u.proactiveDeps())
}

func (u Usecases) SweepUser(ctx context.Context, user *types.User) (SweepResult, error) {
	return steps.SweepUser(ctx, u.proactiveDeps(), user)
}

func (u Usecases) RecommendLocation(ctx context.Context, userID uuid.UUID, query string, coords Coords) string {
	return steps.RecommendLocation(ctx, u.locationDeps(), steps.LocationInput{
		UserID:  userID,
		Message: query,
		Coords:  &coords,
	})
}

func (u Usecases) Onboard(ctx context.Context, in OnboardInput) (string, error) {
	return steps.Onboard(ctx, steps.OnboardDeps{
		Attributes: u.deps.Attributes,
		Profiles:   u.deps.Profiles,
	}, in)
}
