package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/companion-backend/internal/data/db"
	httpserver "github.com/yungbote/companion-backend/internal/http"
	httpMW "github.com/yungbote/companion-backend/internal/http/middleware"
	"github.com/yungbote/companion-backend/internal/jobs/worker"
	"github.com/yungbote/companion-backend/internal/modules/companion/steps"
	"github.com/yungbote/companion-backend/internal/observability"
	"github.com/yungbote/companion-backend/internal/platform/envutil"
	"github.com/yungbote/companion-backend/internal/platform/logger"
	"github.com/yungbote/companion-backend/internal/realtime"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *httpserver.Server
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Services Services
	Hub      *realtime.Hub
	Metrics  *observability.Metrics
	Sweeper  *worker.Sweeper

	pg           *db.PostgresService
	background   *backgroundRunner
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

// NewLogger builds the process logger from LOG_MODE.
func NewLogger() (*logger.Logger, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

// OpenDatabase connects to postgres and applies schema migrations.
func OpenDatabase(log *logger.Logger) (*db.PostgresService, error) {
	pg, err := db.NewPostgresService(log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		_ = pg.Close()
		return nil, fmt.Errorf("postgres migrate: %w", err)
	}
	return pg, nil
}

func New(ctx context.Context) (*App, error) {
	log, err := NewLogger()
	if err != nil {
		return nil, err
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig()
	otelShutdown := observability.InitOTel(ctx, log, cfg.Otel)

	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		metrics = observability.Init()
	}

	pg, err := OpenDatabase(log)
	if err != nil {
		log.Sync()
		return nil, err
	}
	theDB := pg.DB()

	clients, err := wireClients(ctx, log, metrics)
	if err != nil {
		_ = pg.Close()
		log.Sync()
		return nil, err
	}

	hub := realtime.NewHub(log)
	background := newBackgroundRunner(log)
	reposet := wireRepos(theDB, log)
	serviceset, err := wireServices(log, cfg, clients, reposet, hub, background.Func())
	if err != nil {
		clients.Close()
		_ = pg.Close()
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, cfg, serviceset, hub, metrics, pg)
	server := httpserver.NewServer(httpserver.RouterConfig{
		Log:            log,
		ServiceName:    cfg.Otel.ServiceName,
		AllowedOrigins: cfg.AllowedOrigins,
		Metrics:        metrics,
		AuthMiddleware: httpMW.NewAuthMiddleware(log, serviceset.Auth),

		ChatSocketHandler: handlerset.ChatSocket,
		ChatHandler:       handlerset.Chat,
		ProactiveHandler:  handlerset.Proactive,
		LocationHandler:   handlerset.Location,
		OnboardingHandler: handlerset.Onboarding,
		PlacesHandler:     handlerset.Places,
		UserHandler:       handlerset.User,
		HealthHandler:     handlerset.Health,
	})

	a := &App{
		Log:          log,
		DB:           theDB,
		Server:       server,
		Cfg:          cfg,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		Hub:          hub,
		Metrics:      metrics,
		pg:           pg,
		background:   background,
		otelShutdown: otelShutdown,
	}
	if cfg.SweepEnabled {
		a.Sweeper, err = worker.NewSweeper(log, steps.Seoul(), cfg.SweepSpec, serviceset.Companion.Sweep, metrics)
		if err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

// Start launches the bus forwarder and the proactive sweeper.
func (a *App) Start() error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Clients.Bus != nil {
		if err := a.Clients.Bus.StartForwarder(ctx, a.Hub.Broadcast); err != nil {
			return fmt.Errorf("start realtime forwarder: %w", err)
		}
	}
	if a.Sweeper != nil {
		if err := a.Sweeper.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return errors.New("app not initialized")
	}
	addr := ":" + a.Cfg.Port
	a.Log.Info("HTTP server listening", "addr", addr)
	return a.Server.Run(ctx, addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Sweeper != nil {
		a.Sweeper.Wait()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if a.background != nil {
		a.background.Close(shutdownCtx)
	}
	a.Clients.Close()
	if a.pg != nil {
		_ = a.pg.Close()
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(shutdownCtx)
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
