// Package main provides the entry point for the DevDox dashboard server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/devdox/dashboard/internal/identity"
	"github.com/devdox/dashboard/internal/notify"
	"github.com/devdox/dashboard/internal/resources"
	"github.com/devdox/dashboard/internal/shutdown"
	"github.com/devdox/dashboard/pkg/config"
	"github.com/devdox/dashboard/pkg/logger"
	"github.com/devdox/dashboard/web/api"
	"github.com/devdox/dashboard/web/dashboard"
	"github.com/devdox/dashboard/web/health"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Default().Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	log := logger.FromConfig(cfg.Log, os.Stdout)

	client, err := api.NewClient(cfg.API.BaseURL,
		api.WithTimeout(cfg.API.Timeout),
		api.WithLogger(log.Logger),
	)
	if err != nil {
		log.Error("failed to create API client", "error", err)
		os.Exit(1)
	}

	verifier, err := identity.NewVerifier(identity.VerifierConfig{
		Secret:       []byte(cfg.Identity.JWTSecret),
		PublicKeyPEM: []byte(cfg.Identity.PublicKeyPEM),
		Issuer:       cfg.Identity.Issuer,
	}, log.Logger)
	if err != nil {
		log.Error("failed to create session verifier", "error", err)
		os.Exit(1)
	}

	notifications := notify.NewRegistry(
		notify.WithDuration(cfg.Notify.Duration),
		notify.WithLimit(cfg.Notify.Limit),
		notify.WithIdleTimeout(cfg.Notify.IdleTimeout),
		notify.WithLogger(log.Logger),
	)

	checker := health.NewChecker(health.Version)
	checker.Critical("api", client.Ping)

	srv, err := dashboard.New(dashboard.Options{
		Services:      resources.New(client, log.Logger),
		Verifier:      verifier,
		Notifications: notifications,
		Health:        checker,
		Logger:        log,
		Web:           cfg.Web,
		PageLimit:     cfg.API.PageLimit,
	})
	if err != nil {
		log.Error("failed to create dashboard", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:              cfg.Web.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Components stop in reverse order: notification streams close before
	// the HTTP server drains.
	coordinator := shutdown.NewCoordinator(
		shutdown.WithTimeout(cfg.Web.ShutdownTimeout),
		shutdown.WithLogger(log.Logger),
	)
	coordinator.Register(shutdown.NewHTTPServer("http", httpServer))
	coordinator.Register(shutdown.NewFunc("notifications", func(context.Context) error {
		notifications.Close()
		return nil
	}))

	go func() {
		log.Info("starting dashboard server",
			"addr", cfg.Web.Addr,
			"api", cfg.API.BaseURL,
			"version", health.Version,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	if err := coordinator.Wait(context.Background()); err != nil {
		log.Error("shutdown finished with errors", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
