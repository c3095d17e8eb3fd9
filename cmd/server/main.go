package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/maegy2011/FMS-sub000/internal/app"
	"github.com/maegy2011/FMS-sub000/internal/config"
	"github.com/maegy2011/FMS-sub000/internal/infra/http"
	"github.com/maegy2011/FMS-sub000/internal/infra/http/handler"
	"github.com/maegy2011/FMS-sub000/internal/infra/http/routes"
	"github.com/maegy2011/FMS-sub000/internal/infra/memory"
	"github.com/maegy2011/FMS-sub000/internal/infra/postgres"
	"github.com/maegy2011/FMS-sub000/internal/infra/redis"
	"github.com/maegy2011/FMS-sub000/pkg/logger"
	"github.com/maegy2011/FMS-sub000/pkg/password"
	"github.com/maegy2011/FMS-sub000/pkg/token"
	"github.com/maegy2011/FMS-sub000/pkg/validator"
)

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	// ==========================================================================
	// Configuration & Logger
	// ==========================================================================
	cfg, err := config.Load()
	if err != nil {
		log := logger.NewDefault()
		log.Error("failed to load configuration", "error", err)
		return 1
	}

	log := initLogger(cfg)
	log.Info("starting application", "app", cfg.App.Name, "env", cfg.App.Env)

	// ==========================================================================
	// Infrastructure
	// ==========================================================================
	db, err := postgres.New(&cfg.Database)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		return 1
	}
	defer closeWithLog(db, "database", log)
	log.Info("database connected")

	var redisClient *redis.Client
	if cfg.UsesRedis() {
		redisClient, err = redis.New(&cfg.Redis, log)
		if err != nil {
			log.Error("failed to connect to redis", "error", err)
			return 1
		}
		defer closeWithLog(redisClient, "redis", log)
		log.Info("redis connected")
	}

	// ==========================================================================
	// Stores
	// ==========================================================================
	var serverOpts []http.ServerOption

	var counterStore app.CounterStore
	if cfg.RateLimit.Store == config.StoreRedis {
		counterStore = redis.NewCounterStore(redisClient)
	} else {
		store := memory.NewCounterStore(cfg.RateLimit.SweepInterval)
		serverOpts = append(serverOpts, http.WithCleanup(store.Stop))
		counterStore = store
	}

	var challengeStore app.ChallengeStore
	if cfg.Captcha.Store == config.StoreRedis {
		challengeStore = redis.NewChallengeStore(redisClient)
	} else {
		store := memory.NewChallengeStore(cfg.Captcha.SweepInterval)
		serverOpts = append(serverOpts, http.WithCleanup(store.Stop))
		challengeStore = store
	}

	// ==========================================================================
	// Repositories & Services
	// ==========================================================================
	eventRepo := postgres.NewSecurityEventRepository(db)
	userRepo := postgres.NewUserRepository(db)
	ledgerRepo := postgres.NewLedgerRepository(db)

	events := app.NewSecurityEventService(eventRepo, log)
	detector := app.NewSuspicionDetector(events, cfg.Suspicion.FailureThreshold, cfg.Suspicion.FailureWindow, log)
	limiter := app.NewRateLimiter(counterStore, app.DefaultPolicies(), log)
	captcha := app.NewCaptchaService(challengeStore, cfg.Captcha.TTL, log)

	tokens := token.NewService(token.Config{
		Secret:   cfg.Auth.JWTSecret,
		Issuer:   cfg.Auth.JWTIssuer,
		Lifetime: cfg.Auth.TokenLifetime,
	})
	hasher := password.New(
		password.WithCost(cfg.Auth.BcryptCost),
		password.WithMinLength(cfg.Auth.MinPasswordLn),
	)

	auth := app.NewAuthService(userRepo, tokens, hasher, log)
	recovery := app.NewRecoveryService(userRepo, captcha, hasher, log)
	ledger := app.NewLedgerService(ledgerRepo, log)
	log.Info("services initialized")

	// ==========================================================================
	// HTTP Server
	// ==========================================================================
	v := validator.New()
	healthOpts := []handler.HealthHandlerOption{handler.WithDatabase(db)}
	if redisClient != nil {
		healthOpts = append(healthOpts, handler.WithRedis(redisClient))
	}

	handlers := routes.Handlers{
		Health:        handler.NewHealthHandler(healthOpts...),
		Auth:          handler.NewAuthHandler(auth, events, v, log),
		Recovery:      handler.NewRecoveryHandler(captcha, recovery, events, v, log),
		Ledger:        handler.NewLedgerHandler(ledger, v, log),
		SecurityEvent: handler.NewSecurityEventHandler(events, log),
	}

	server := http.NewServer(cfg, log, http.GateDeps{
		Events:    events,
		Detector:  detector,
		RateLimit: limiter,
	}, serverOpts...)
	routes.Register(server.Router(), handlers, tokens, events)

	// ==========================================================================
	// Start & Graceful Shutdown
	// ==========================================================================
	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		return server.Start()
	})
	log.Info("application started", "http_addr", cfg.Server.Addr())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("shutting down...")
	case <-ctx.Done():
		log.Error("server failed", "error", ctx.Err())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown server", "error", err)
		return 1
	}

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		return 1
	}

	log.Info("application stopped")
	return 0
}

func initLogger(cfg *config.Config) *logger.Logger {
	var log *logger.Logger
	if cfg.IsProduction() {
		log = logger.NewProduction()
	} else {
		log = logger.NewDevelopment()
	}
	log.SetDefault()
	return log
}

type closer interface {
	Close() error
}

func closeWithLog(c closer, name string, log *logger.Logger) {
	if err := c.Close(); err != nil {
		log.Error("failed to close "+name, "error", err)
	}
}
