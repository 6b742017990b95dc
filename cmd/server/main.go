package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-tracker/internal/api"
	"github.com/p-n-ai/pai-tracker/internal/catalog"
	"github.com/p-n-ai/pai-tracker/internal/platform/cache"
	"github.com/p-n-ai/pai-tracker/internal/platform/config"
	"github.com/p-n-ai/pai-tracker/internal/platform/database"
	"github.com/p-n-ai/pai-tracker/internal/platform/logger"
	"github.com/p-n-ai/pai-tracker/internal/progress"
	"github.com/p-n-ai/pai-tracker/internal/remote"
	"github.com/p-n-ai/pai-tracker/internal/summary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      a.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "fixture", cfg.UseFixture())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// app holds the wired components and what must be closed on exit.
type app struct {
	handler    http.Handler
	reconciler *progress.Reconciler
	closers    []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	checks := make(map[string]api.HealthChecker)

	session, client, sumClient, err := newAuthority(cfg)
	if err != nil {
		return nil, err
	}

	var events progress.EventLogger = progress.NopEventLogger{}
	if cfg.Database.URL != "" {
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		if cfg.Database.Migrate {
			if err := db.Migrate(ctx); err != nil {
				a.Close()
				return nil, err
			}
		}
		events = progress.NewPostgresEventLogger(db.Pool)
		checks["database"] = db
	}

	var sumCache summary.Cache
	if cfg.Cache.URL != "" {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect cache: %w", err)
		}
		a.closers = append(a.closers, func() { _ = c.Close() })
		sumCache = summary.NewRedisCache(c)
		checks["cache"] = c
	}

	agg := summary.NewAggregator(summary.AggregatorConfig{
		Client: sumClient,
		Cache:  sumCache,
		TTL:    time.Duration(cfg.Cache.SummaryTTL) * time.Second,
		UserID: session.UserID,
	})

	a.reconciler = progress.NewReconciler(progress.ReconcilerConfig{
		Client:  client,
		Session: session,
		Events:  events,
		OnCommit: func(ctx context.Context, o progress.Outcome) {
			if err := agg.Invalidate(ctx); err != nil {
				slog.Warn("failed to invalidate summary", "topic_id", o.TopicID, "error", err)
			}
		},
	})

	if err := a.reconciler.Refresh(ctx); err != nil {
		slog.Warn("initial refresh failed, starting with an empty snapshot", "error", err)
	} else {
		slog.Info("snapshot loaded", "topics", len(a.reconciler.Store().Snapshot()))
	}

	srv := api.NewServer(api.Config{
		Reconciler: a.reconciler,
		Summary:    agg,
		Checks:     checks,
	})
	a.handler = srv.Handler()
	return a, nil
}

// newAuthority picks the HTTP authority or, when a fixture catalog is
// configured, the in-process one.
func newAuthority(cfg *config.Config) (progress.Session, progress.SyncClient, summary.Client, error) {
	if cfg.UseFixture() {
		loader, err := catalog.NewLoader(cfg.Remote.FixturePath)
		if err != nil {
			return progress.Session{}, nil, nil, err
		}
		topics, err := loader.ProgressTopics()
		if err != nil {
			return progress.Session{}, nil, nil, fmt.Errorf("load fixture topics: %w", err)
		}
		session := progress.Session{UserID: "local"}
		if cfg.Remote.Token != "" {
			if session, err = remote.ParseSession(cfg.Remote.Token); err != nil {
				return progress.Session{}, nil, nil, err
			}
		}
		mem := remote.NewMemory(topics, summary.User{FullName: "Local Learner"})
		return session, mem, mem, nil
	}

	session, err := remote.ParseSession(cfg.Remote.Token)
	if err != nil {
		return progress.Session{}, nil, nil, fmt.Errorf("parse session: %w", err)
	}
	client := remote.NewClient(cfg.Remote.BaseURL, session,
		remote.WithTimeout(cfg.Remote.TimeoutDuration()),
	)
	return session, client, client, nil
}
