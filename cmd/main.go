package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "hospitality-ops/docs"
	"hospitality-ops/internal/api"
	"hospitality-ops/internal/auth"
	"hospitality-ops/internal/booking"
	"hospitality-ops/internal/channel"
	"hospitality-ops/internal/config"
	"hospitality-ops/internal/events"
	"hospitality-ops/internal/inbox"
	"hospitality-ops/internal/logger"
	"hospitality-ops/internal/manager"
	"hospitality-ops/internal/messaging"
	"hospitality-ops/internal/metrics"
	"hospitality-ops/internal/outbox"
	"hospitality-ops/internal/settings"
	"hospitality-ops/internal/storage"
	"hospitality-ops/internal/store"
	"hospitality-ops/internal/telegram"
)

// @title Hospitality Operations API
// @version 1.0
// @description Multi-tenant property operations backend: bookings, guest messaging and channel sync.
// @host localhost:4000
// @BasePath /
// @schemes http

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	// Load Configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Server.Env, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	metrics.Init()

	if err := run(cfg, log); err != nil {
		log.Fatal("Server stopped", zap.Error(err))
	}
	log.Info("Graceful shutdown complete")
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage backend
	var (
		persister store.Persister
		db        *storage.Storage
	)
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		var err error
		db, err = storage.NewStorage(cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("init postgres: %w", err)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		persister = db
		log.Info("PostgreSQL connected")
	default:
		persister = storage.NewFileStorage(cfg.Storage.File)
		log.Info("Using file storage", zap.String("path", cfg.Storage.File))
	}

	st := store.New(persister, log, store.WithPublicBaseURL(cfg.Public.BaseURL))
	if err := st.Load(ctx); err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	log.Info("State loaded", zap.Int("tenants", len(st.TenantIDs())))

	// Event sink: RabbitMQ when configured, the log otherwise
	var (
		sink      events.Sink = events.LogSink{Log: log}
		rabbit    *messaging.RabbitClient
		tm        *manager.TenantManager
		onTenant  api.TenantHook
		eventLog  api.EventLog
		pipelines api.PipelineScaler
	)
	if cfg.RabbitMQ.URL != "" {
		var err error
		rabbit, err = messaging.NewRabbitClient(cfg.RabbitMQ.URL, log)
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		defer rabbit.Close()
		sink = rabbit
		log.Info("RabbitMQ connected")

		if db != nil {
			tm = manager.NewTenantManager(rabbit, db, cfg.Workers, log)
			onTenant = tm.AddTenant
			eventLog = db
			pipelines = tm

			// Recover existing tenants
			for _, tenantID := range st.TenantIDs() {
				if err := tm.AddTenant(ctx, tenantID); err != nil {
					log.Warn("Failed to recover tenant", zap.String("tenant", tenantID), zap.Error(err))
					continue
				}
				log.Info("Recovered tenant", zap.String("tenant", tenantID))
			}
		}
	}

	tg := telegram.NewClient(cfg.Telegram.APIURL, cfg.Telegram.Timeout)
	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	inboxSync := inbox.NewSynchronizer(st, tg, sink, log)

	apiHandler := api.NewAPI(api.Deps{
		Store:     st,
		Bookings:  booking.NewService(st, sink, log),
		Channels:  channel.NewService(st, cfg.Public.BaseURL, log),
		Inbox:     inboxSync,
		Outbox:    outbox.NewDispatcher(st, tg, sink, log),
		Settings:  settings.NewService(st, tg, log),
		Issuer:    issuer,
		Events:    eventLog,
		Pipelines: pipelines,
		OnTenant:  onTenant,
		Log:       log,
	})
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           apiHandler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Starting API server", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if tm != nil {
		// Queue depth metrics
		g.Go(func() error {
			ticker := time.NewTicker(10 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					for _, tenantID := range tm.ListTenantIDs() {
						rabbit.UpdateQueueDepth(tenantID)
					}
				}
			}
		})
	}

	if cfg.Telegram.PollInterval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(cfg.Telegram.PollInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					for _, tenantID := range st.TenantIDs() {
						if _, err := inboxSync.Poll(gctx, tenantID); err != nil {
							log.Warn("Background poll failed", zap.String("tenant", tenantID), zap.Error(err))
						}
					}
				}
			}
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutdown initiated...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP shutdown error", zap.Error(err))
		}
		if tm != nil {
			tm.ShutdownAll()
		}
		if err := st.Close(shutdownCtx); err != nil {
			log.Error("Failed to flush state", zap.Error(err))
		}
		return nil
	})

	return g.Wait()
}
