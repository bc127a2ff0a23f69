// Package app assembles the service from its parts so main and tests build
// the exact same object graph.
package app

import (
	"context"
	"fmt"

	"github.com/avitale/eduassist/internal/archive"
	"github.com/avitale/eduassist/internal/assistant"
	"github.com/avitale/eduassist/internal/auth"
	"github.com/avitale/eduassist/internal/config"
	"github.com/avitale/eduassist/internal/gateway"
	"github.com/avitale/eduassist/internal/httpapi"
	"github.com/avitale/eduassist/internal/observability"
	"github.com/avitale/eduassist/internal/session"
)

type BuildResult struct {
	Config    config.Config
	API       *httpapi.Server
	Sessions  *session.Manager
	Assistant *assistant.Service
	Auth      *auth.Service
	Metrics   *observability.Metrics

	// Cleanup should be called on shutdown to release external resources.
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	chatArchive, err := archive.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("chat archive init failed: %w", err)
	}

	credStore, err := auth.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		_ = chatArchive.Close()
		return nil, fmt.Errorf("credential store init failed: %w", err)
	}
	authSvc := auth.NewService(credStore)
	if err := authSvc.SeedAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		_ = credStore.Close()
		_ = chatArchive.Close()
		return nil, fmt.Errorf("admin seed failed: %w", err)
	}

	adapter, err := gateway.NewAdapter(gateway.Config{
		Mode:       cfg.GatewayMode,
		BaseURL:    cfg.GatewayBaseURL,
		APIKey:     cfg.GatewayAPIKey,
		Model:      cfg.GatewayModel,
		Timeout:    cfg.GatewayTimeout,
		MaxRetries: cfg.GatewayMaxRetries,
	})
	if err != nil {
		_ = credStore.Close()
		_ = chatArchive.Close()
		return nil, fmt.Errorf("gateway adapter init failed: %w", err)
	}

	sessions := session.NewManager(cfg.SessionInactivityTimeout)
	sessions.SetEndedRetention(cfg.SessionRetention)
	sessions.SetExpireHook(func(_ *session.Session) {
		metrics.SessionEvents.WithLabelValues("expired").Inc()
		metrics.ActiveSessions.Set(float64(sessions.ActiveCount()))
	})

	svc := assistant.NewService(sessions, adapter, chatArchive, metrics, cfg.GatewayModel, cfg.DefaultLanguage)
	api := httpapi.New(cfg, sessions, svc, authSvc, chatArchive, metrics)

	return &BuildResult{
		Config:    cfg,
		API:       api,
		Sessions:  sessions,
		Assistant: svc,
		Auth:      authSvc,
		Metrics:   metrics,
		Cleanup: func() error {
			errA := chatArchive.Close()
			errC := credStore.Close()
			if errA != nil {
				return errA
			}
			return errC
		},
	}, nil
}
