package app

import (
	"github.com/yungbote/companion-backend/internal/http/handlers"
	"github.com/yungbote/companion-backend/internal/observability"
	"github.com/yungbote/companion-backend/internal/platform/logger"
	"github.com/yungbote/companion-backend/internal/realtime"
)

type Handlers struct {
	ChatSocket *handlers.ChatSocketHandler
	Chat       *handlers.ChatHandler
	Proactive  *handlers.ProactiveHandler
	Location   *handlers.LocationHandler
	Onboarding *handlers.OnboardingHandler
	Places     *handlers.PlacesHandler
	User       *handlers.UserHandler
	Health     *handlers.HealthHandler
}

func wireHandlers(log *logger.Logger, cfg Config, svc Services, hub *realtime.Hub, metrics *observability.Metrics, pg handlers.Pinger) Handlers {
	log.Info("Wiring handlers...")
	uc := svc.Companion
	return Handlers{
		ChatSocket: handlers.NewChatSocketHandler(handlers.ChatSocketHandlerDeps{
			Log:               log,
			Hub:               hub,
			Chat:              uc,
			InactivityTimeout: cfg.InactivityTimeout,
			AllowedOrigins:    cfg.AllowedOrigins,
			Metrics:           metrics,
		}),
		Chat:       handlers.NewChatHandler(uc),
		Proactive:  handlers.NewProactiveHandler(uc),
		Location:   handlers.NewLocationHandler(uc),
		Onboarding: handlers.NewOnboardingHandler(uc),
		Places:     handlers.NewPlacesHandler(uc),
		User:       handlers.NewUserHandler(uc),
		Health:     handlers.NewHealthHandler().With("postgres", pg),
	}
}
