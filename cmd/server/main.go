package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"habit-coach/internal/config"
	"habit-coach/internal/handler"
	"habit-coach/internal/logger"
	"habit-coach/internal/relay"
	"habit-coach/internal/service"
	"habit-coach/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	configFile := flag.String("config", "", "config file path (e.g. etc/config-dev.yaml)")
	flag.Parse()

	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("config load failed", "err", err)
		os.Exit(1)
	}
	logger.Init(cfg.Log)

	if err := run(cfg); err != nil {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	backendURL, configured := cfg.BackendURL()
	if !configured {
		logger.Warn("backend url not configured, using development default", "url", backendURL)
	}
	secret, configured := cfg.SessionSecret()
	if !configured {
		logger.Warn("session secret not configured, using development secret")
	}

	plans, err := openStore(cfg)
	if err != nil {
		return err
	}

	backend := cfg.Backend
	backend.BaseURL = backendURL
	rl, err := relay.New(backend)
	if err != nil {
		return err
	}
	defer rl.Close()

	progress := service.NewProgressService(plans)
	agent := service.NewAgentClient(cfg.ClientBaseURL(), cfg.Client.Timeout)

	gin.SetMode(gin.ReleaseMode)
	router := handler.NewRouter(handler.RouterConfig{
		Relay:         rl.Execute,
		Onboarding:    handler.NewOnboardingHandler(agent, progress, secret, cfg.Session.TTL),
		Progress:      handler.NewProgressHandler(progress),
		SessionSecret: secret,
		SessionTTL:    cfg.Session.TTL,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", "addr", srv.Addr, "backend", rl.Target(), "client_base", cfg.ClientBaseURL())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStore(cfg *config.Config) (store.PlanStore, error) {
	if !cfg.DatabaseEnabled() {
		logger.Warn("database not configured, plan sessions are kept in memory")
		return store.NewMemoryStore(), nil
	}
	db, err := cfg.OpenGormDB()
	if err != nil {
		return nil, err
	}
	logger.Info("database connected", "host", cfg.Database.Host, "name", cfg.Database.Name)
	return store.NewGormStore(db)
}
