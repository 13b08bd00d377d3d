package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/companion-backend/internal/http/handlers"
	httpMW "github.com/yungbote/companion-backend/internal/http/middleware"
	"github.com/yungbote/companion-backend/internal/observability"
	"github.com/yungbote/companion-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AllowedOrigins []string
	Metrics        *observability.Metrics

	AuthMiddleware *httpMW.AuthMiddleware

	ChatSocketHandler *httpH.ChatSocketHandler
	ChatHandler       *httpH.ChatHandler
	ProactiveHandler  *httpH.ProactiveHandler
	LocationHandler   *httpH.LocationHandler
	OnboardingHandler *httpH.OnboardingHandler
	PlacesHandler     *httpH.PlacesHandler
	UserHandler       *httpH.UserHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics, "/ws/chat", "/metrics"))
	r.Use(httpMW.CORS(cfg.AllowedOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	ws := r.Group("/ws")
	if cfg.AuthMiddleware != nil {
		ws.Use(cfg.AuthMiddleware.RequireAuth())
	}
	if cfg.ChatSocketHandler != nil {
		ws.GET("/chat", cfg.ChatSocketHandler.Serve)
	}

	protected := r.Group("/api")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Chat
		if cfg.ChatHandler != nil {
			protected.POST("/chat/messages", cfg.ChatHandler.SendMessage)
			protected.GET("/chat/messages", cfg.ChatHandler.ListMessages)
		}

		// Proactive
		if cfg.ProactiveHandler != nil {
			protected.GET("/proactive/pending", cfg.ProactiveHandler.Pending)
			protected.POST("/proactive/ack", cfg.ProactiveHandler.Ack)
		}

		if cfg.LocationHandler != nil {
			protected.GET("/location/recommendation", cfg.LocationHandler.Recommend)
		}

		if cfg.OnboardingHandler != nil {
			protected.POST("/onboarding", cfg.OnboardingHandler.Submit)
		}

		if cfg.PlacesHandler != nil {
			protected.POST("/places/preferences", cfg.PlacesHandler.SavePreference)
		}

		// User (Me)
		if cfg.UserHandler != nil {
			protected.GET("/me/status", cfg.UserHandler.Status)
		}
	}

	return r
}
