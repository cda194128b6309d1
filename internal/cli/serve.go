package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/teamlead/internal/events"
	"github.com/randalmurphal/teamlead/internal/lifecycle"
	"github.com/randalmurphal/teamlead/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Consume task events and run the lifecycle",
		Long: `Run the lifecycle as a long-lived service.

serve subscribes to teamlead.task.completed and teamlead.task.failed on the
configured JetStream stream and hands each event to the lifecycle. Tasks the
lifecycle creates are announced on teamlead.task.created when nats.publish is
set. Prometheus metrics are served on metrics.addr when metrics.enabled is set.

Edits to the config file are picked up while running: the lifecycle settings
(auto generation, handoffs, thresholds) are swapped in without a restart.

Example:
  teamlead serve
  TEAMLEAD_NATS_URL=nats://nats:4222 teamlead serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := setupSignalHandler(cmd.Context(), cmd.ErrOrStderr())
			defer cancel()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	rec := metrics.New()

	conn, err := events.Connect(ctx, cfg.NATS.URL, cfg.NATS.Stream, cfg.NATS.Subjects, a.logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	wo := wireOptions{recorder: rec}
	if cfg.NATS.Publish {
		wo.announcer = events.NewAnnouncer(events.NewNATSPublisher(conn.JS, a.logger))
	}
	svc, err := a.openServices(ctx, wo)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	consumer := events.NewConsumer(svc.store, svc.executor, a.logger)
	cc, err := consumer.Start(ctx, conn.JS, cfg.NATS.Stream, cfg.NATS.Consumer)
	if err != nil {
		return err
	}
	defer cc.Stop()

	a.watchConfig(svc.executor)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		runCleanup(gctx, svc.executor, cfg.Lifecycle.CleanupInterval, a.logger)
		return nil
	})
	if cfg.Metrics.Enabled {
		g.Go(func() error {
			return serveMetrics(gctx, cfg.Metrics.Addr, rec, a.logger)
		})
	}

	a.logger.Info("teamlead serving",
		"nats", cfg.NATS.URL,
		"stream", cfg.NATS.Stream,
		"consumer", cfg.NATS.Consumer,
		"metrics", cfg.Metrics.Enabled)

	// gctx ends on a signal or when a background task fails.
	<-gctx.Done()
	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info("teamlead stopped")
	return nil
}

// watchConfig swaps the executor settings when the config file changes.
func (a *app) watchConfig(exec *lifecycle.Executor) {
	path := a.configFileInUse()
	if path == "" {
		a.logger.Debug("no config file to watch")
		return
	}

	a.v.SetConfigFile(path)
	a.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		tc, err := a.resolveConfig()
		if err != nil {
			a.logger.Warn("config reload rejected, keeping current settings", "path", e.Name, "error", err)
			return
		}
		exec.SetConfig(tc.Config.LifecycleSettings())
		a.logger.Info("lifecycle settings reloaded",
			"path", e.Name,
			"auto_generation", tc.Config.Lifecycle.AutoGenerationEnabled,
			"handoff_creation", tc.Config.Lifecycle.HandoffCreationEnabled,
			"confidence_threshold", tc.Config.Lifecycle.ConfidenceThreshold)
	})
	a.v.WatchConfig()
	a.logger.Info("watching config", "path", path)
}

// runCleanup trims the executor caches every interval until ctx is done.
func runCleanup(ctx context.Context, exec *lifecycle.Executor, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			stats := exec.CleanupCaches(now)
			logger.Debug("lifecycle caches cleaned",
				"expired_handoffs", stats.ExpiredHandoffs,
				"trimmed_analyzed", stats.TrimmedAnalyzed)
		}
	}
}

// serveMetrics serves /metrics and /healthz until ctx is done.
func serveMetrics(ctx context.Context, addr string, rec *metrics.Recorder, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", rec.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown metrics server: %w", err)
		}
		return nil
	}
}
