package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Varun5711/tinyauth/internal/app"
	"github.com/Varun5711/tinyauth/internal/audit"
	"github.com/Varun5711/tinyauth/internal/config"
	"github.com/Varun5711/tinyauth/internal/enrichment"
	"github.com/Varun5711/tinyauth/internal/handlers"
	"github.com/Varun5711/tinyauth/internal/logger"
	"github.com/Varun5711/tinyauth/internal/middleware"
)

func main() {
	log := logger.New("api-gateway")
	log.SetStdLog()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: %v", err)
	}

	ctx := context.Background()

	deps, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialise: %v", err)
	}
	defer deps.Close()

	proxies, err := enrichment.ParseTrustedProxies(cfg.Services.TrustedProxies)
	if err != nil {
		log.Fatal("Invalid trusted proxies: %v", err)
	}

	routes := handlers.RouterConfig{
		Auth:           handlers.NewAuthHandler(deps.Service, log),
		Middleware:     middleware.NewAuthMiddleware(deps.Tokens, deps.Store, log),
		Health:         deps.Health,
		Log:            log,
		TrustedProxies: proxies,
	}
	if deps.Redis != nil {
		routes.RateLimiter = middleware.NewRateLimiter(
			deps.Redis.Raw(),
			cfg.RateLimit.Requests,
			cfg.RateLimit.Window,
			log,
		)
		routes.Activity = handlers.NewActivityHandler(audit.NewService(deps.Redis.Raw()), log)
	} else {
		log.Warn("REDIS_ADDR not set, rate limiting and activity disabled")
	}

	server := &http.Server{
		Addr:              ":" + cfg.Services.APIGatewayPort,
		Handler:           handlers.NewRouter(routes),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Services.RequestTimeout,
		WriteTimeout:      cfg.Services.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Listening on :%s", cfg.Services.APIGatewayPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down api-gateway...")
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Services.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed: %v", err)
	}
	log.Info("api-gateway stopped")
}
