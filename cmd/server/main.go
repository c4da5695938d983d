package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/Luca1234105/torren/internal/api"
	"github.com/Luca1234105/torren/internal/config"
	"github.com/Luca1234105/torren/internal/database"
	"github.com/Luca1234105/torren/internal/logger"
	"github.com/Luca1234105/torren/internal/providers"
	"github.com/Luca1234105/torren/internal/services/debrid"
	"github.com/Luca1234105/torren/internal/services/resolution"
	"github.com/Luca1234105/torren/internal/services/streams"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	v := viper.New()

	rootCmd := &cobra.Command{
		Use:          "torren",
		Short:        "Italian-filtered stream addon with debrid cache checks",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}

			log := logger.New("torren", cfg.LogLevel, cfg.LogFormat)
			slog.SetDefault(log)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, log)
		},
	}

	config.SetupFlags(rootCmd)
	if err := config.BindFlags(rootCmd, v); err != nil {
		return err
	}

	return rootCmd.ExecuteContext(context.Background())
}

func serve(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	log.Info("starting torren",
		"addr", cfg.Addr(),
		"torrentio", cfg.TorrentioURL,
		"maxCandidates", cfg.MaxCandidates,
		"maxActiveResources", cfg.MaxActiveResources,
		"ledger", cfg.DatabaseURL != "",
		"operatorRoutes", cfg.OperatorToken != "",
	)

	var (
		orphans     resolution.OrphanRecorder
		handlerOpts []api.Option
	)
	if cfg.DatabaseURL != "" {
		db, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		store := database.NewOrphanStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		orphans = store
		handlerOpts = append(handlerOpts, api.WithOrphanLedger(store))
		log.Info("orphan ledger enabled")
	}

	httpClient := &http.Client{}

	rd := debrid.NewRealDebrid(cfg.RealDebridURL, httpClient, cfg.RequestTimeout, log)
	tb := debrid.NewTorBox(cfg.TorBoxURL, httpClient, cfg.RequestTimeout, log)

	rdProber := debrid.NewBatchProber(rd, debrid.DefaultBreakerConfig(), log)
	tbProber := debrid.NewBatchProber(tb, debrid.DefaultBreakerConfig(), log)
	handlerOpts = append(handlerOpts, api.WithBreakers(rdProber, tbProber))

	rdWorkflow := resolution.NewWorkflow(rd.ForCredential, resolution.Config{
		Service:            debrid.ServiceRealDebrid,
		CleanupTimeout:     cfg.CleanupTimeout,
		MaxActiveResources: cfg.MaxActiveResources,
	}, orphans, log)

	streamService := streams.NewStreamService(
		[]debrid.Prober{rdProber, tbProber},
		[]streams.Resolver{rdWorkflow},
		cfg.MaxCandidates,
		log,
	)

	provider := providers.NewTorrentioProvider(cfg.TorrentioURL, httpClient, cfg.UpstreamTimeout, log)
	limiter := api.NewRateLimiter(cfg.RateLimit, cfg.RateBurst)
	handler := api.NewHandler(provider, streamService, log, handlerOpts...)

	// Debrid checks run serially per request and can take a while.
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.SetupRoutes(handler, limiter, cfg.OperatorToken),
		ReadTimeout:  180 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	if limiter.Enabled() {
		g.Go(func() error { return limiter.Run(gctx) })
	}

	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
