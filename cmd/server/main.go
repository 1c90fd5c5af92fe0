package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/atrium-chat/atrium/internal/agent"
	"github.com/atrium-chat/atrium/internal/api"
	"github.com/atrium-chat/atrium/internal/bus"
	"github.com/atrium-chat/atrium/internal/config"
	"github.com/atrium-chat/atrium/internal/hub"
	"github.com/atrium-chat/atrium/internal/models"
	"github.com/atrium-chat/atrium/internal/registry"
	"github.com/atrium-chat/atrium/internal/router"
	"github.com/atrium-chat/atrium/internal/useragent"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx := context.Background()

	// Registry persistence: Postgres when configured, SQLite otherwise
	var regStore registry.Store
	if cfg.DatabaseURL != "" {
		logger.Info().Msg("running database migrations...")
		if err := registry.RunMigrations(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
		logger.Info().Msg("migrations completed")

		pg, err := registry.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		regStore = pg
		logger.Info().Msg("connected to PostgreSQL")
	} else {
		sqlite, err := registry.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		regStore = sqlite
		logger.Info().Str("path", cfg.SQLitePath).Msg("using SQLite registry")
	}
	defer regStore.Close()

	reg := registry.NewService(regStore, logger)
	bridge := useragent.NewBridge(regStore, logger)

	// Event bus transport
	var eventBus bus.Bus
	switch cfg.Bus {
	case "redis":
		rb, err := bus.NewRedis(ctx, cfg.RedisURL, bus.DefaultChannel, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis bus connection failed")
		}
		defer rb.Close()
		eventBus = rb
		logger.Info().Msg("using Redis event bus")
	default:
		local := bus.NewLocal()
		defer local.Close()
		eventBus = local
		logger.Info().Msg("using local event bus")
	}

	// Optional hub websocket feed bridged onto the bus
	gatewayCtx, stopGateway := context.WithCancel(ctx)
	defer stopGateway()
	if cfg.HubWSURL != "" {
		gw := bus.NewGateway(cfg.HubWSURL, eventBus, logger)
		go gw.Run(gatewayCtx)
	}

	// Hub client
	baseURL := hub.ResolveBaseURL(cfg.HubURL, logger)
	hubClient := hub.NewClient(baseURL, cfg.HubTimeout)
	logger.Info().Str("hub_url", baseURL).Msg("hub client ready")

	// One router per configured agent
	fleet := router.NewFleet()
	for _, spec := range cfg.Agents {
		agentID, err := uuid.Parse(spec.ID)
		if err != nil {
			logger.Fatal().Str("agent", spec.ID).Msg("invalid agent id in ROUTER_AGENTS")
		}

		store, err := agent.NewSQLiteStore(ctx, filepath.Join(cfg.AgentDataDir, agentID.String()+".db"))
		if err != nil {
			logger.Fatal().Err(err).Str("agent", spec.Name).Msg("agent store open failed")
		}
		defer store.Close()

		svc := router.NewService(router.Config{
			AgentID:         agentID,
			AgentName:       spec.Name,
			SelfSourceAllow: cfg.SelfSourceAllow,
		}, eventBus, hubClient, store, bridge, &loggingEngine{logger: logger, name: spec.Name}, logger)
		fleet.Add(svc)
		svc.Start(ctx)
	}
	defer fleet.StopAll()

	if len(cfg.Agents) == 0 {
		logger.Warn().Msg("no agents configured, serving admin API only")
	}

	// Create router
	mux := api.NewRouter(logger, reg, regStore, fleet, bridge)

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Int("agents", len(cfg.Agents)).
			Msg("starting Atrium server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Stop consuming bus events before closing the HTTP side
	fleet.StopAll()
	stopGateway()

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}

// loggingEngine is the built-in reasoning stub: it logs every routed
// memory and never replies. Real deployments swap in an engine that
// calls a language model.
type loggingEngine struct {
	logger zerolog.Logger
	name   string
}

func (e *loggingEngine) HandleMemory(ctx context.Context, memory *models.Memory, r router.Responder) error {
	e.logger.Info().
		Str("agent", e.name).
		Str("memory_id", memory.ID.String()).
		Str("room_id", memory.RoomID.String()).
		Msg("memory routed")
	return nil
}

func (e *loggingEngine) RetractMemory(ctx context.Context, memoryID uuid.UUID) error {
	e.logger.Info().Str("agent", e.name).Str("memory_id", memoryID.String()).Msg("memory retracted")
	return nil
}

func (e *loggingEngine) ClearRoom(ctx context.Context, roomID uuid.UUID, count int) error {
	e.logger.Info().Str("agent", e.name).Str("room_id", roomID.String()).Int("count", count).Msg("room cleared")
	return nil
}
