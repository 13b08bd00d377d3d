package app

import (
	"fmt"
	"time"

	"github.com/yungbote/companion-backend/internal/modules/companion"
	"github.com/yungbote/companion-backend/internal/modules/companion/steps"
	"github.com/yungbote/companion-backend/internal/platform/logger"
	"github.com/yungbote/companion-backend/internal/realtime"
	"github.com/yungbote/companion-backend/internal/services"
)

type Services struct {
	Auth services.AuthService

	Places     services.PlacesService
	Similarity services.SimilarityIndex
	Insights   services.ActivityInsights
	Emotion    services.EmotionClassifier
	Images     services.ImageDescriber
	Emitter    services.Emitter
	Notifier   services.ProactiveNotifier

	Companion companion.Usecases
}

func wireServices(log *logger.Logger, cfg Config, clients Clients, reposet Repos, hub *realtime.Hub, background steps.Background) (Services, error) {
	log.Info("Wiring services...")

	persona := steps.DefaultPersona()
	if cfg.PersonaConfigPath != "" {
		p, err := steps.LoadPersona(cfg.PersonaConfigPath)
		if err != nil {
			return Services{}, fmt.Errorf("load persona %s: %w", cfg.PersonaConfigPath, err)
		}
		persona = p
	}

	var emitter services.Emitter = &services.HubEmitter{Hub: hub}
	if clients.Bus != nil {
		emitter = &services.BusEmitter{Bus: clients.Bus, Local: hub, Log: log}
	}

	out := Services{
		Auth:     services.NewAuthService(log, reposet.User, cfg.JWTSecretKey, cfg.AccessTokenTTL),
		Insights: services.NewActivityInsights(log, reposet.UserActivity, reposet.ActivityAnalytics),
		Emotion:  services.NewEmotionClassifier(log, clients.OpenAI, cfg.EmotionModel),
		Images:   services.NewImageDescriber(log, clients.OpenAI, cfg.VisionModel),
		Emitter:  emitter,
		Notifier: services.NewProactiveNotifier(emitter),
	}
	if clients.Kakao != nil {
		out.Places = services.NewPlacesService(log, clients.Kakao)
	}
	if cfg.SimilarityEnabled {
		out.Similarity = services.NewSimilarityIndex(log, clients.OpenAI, reposet.TurnEmbedding)
	}

	deps := companion.UsecasesDeps{
		Log:        log,
		AI:         clients.OpenAI,
		Persona:    persona,
		Clock:      time.Now,
		Loc:        steps.Seoul(),
		Background: background,

		Users:         reposet.User,
		Profiles:      reposet.UserProfile,
		Turns:         reposet.Turn,
		Pending:       reposet.PendingProactive,
		Attributes:    reposet.UserAttribute,
		Activities:    reposet.UserActivity,
		Analytics:     reposet.ActivityAnalytics,
		Relationships: reposet.UserRelationship,
		Schedules:     reposet.UserSchedule,
		Preferences:   reposet.PlacePreference,

		Places:     out.Places,
		Similarity: out.Similarity,
		Insights:   out.Insights,
		Emotion:    out.Emotion,
		Images:     out.Images,
		Notifier:   out.Notifier,
		Bucket:     clients.Bucket,

		StreamModel:      cfg.StreamModel,
		ChatModel:        cfg.ChatModel,
		ExtractModel:     cfg.ExtractModel,
		SimilarTopK:      cfg.SimilarTopK,
		SweepConcurrency: cfg.SweepConcurrency,
	}
	out.Companion = companion.New(deps)
	return out, nil
}
