// Command covergo analyzes satellite coverage for a ground observer, either
// as a one-shot CLI run or as a long-running HTTP service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/skywatch/covergo/internal/analysis"
	"github.com/skywatch/covergo/internal/api"
	"github.com/skywatch/covergo/internal/metrics"
	"github.com/skywatch/covergo/internal/report"
	"github.com/skywatch/covergo/internal/results"
	"github.com/skywatch/covergo/internal/status"
	"github.com/skywatch/covergo/internal/tle"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(),
	}))
	slog.SetDefault(logger)

	root := &cobra.Command{
		Use:           "covergo",
		Short:         "Satellite coverage analysis for a ground observer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newAnalyzeCmd(logger), newServeCmd(logger))

	if err := root.Execute(); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func logLevel() slog.Level {
	switch os.Getenv("COVERGO_LOG_LEVEL") {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// envOr returns the environment value for key, or def when unset.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int, logger *slog.Logger) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Warn("invalid integer in environment, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func newAnalyzeCmd(logger *slog.Logger) *cobra.Command {
	var (
		lat, lon, alt float64
		duration      int
		interval      float64
		minElevation  float64
		workers       int
		outputDir     string
		tleFile       string
		cacheDir      string
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run one coverage analysis and write CSV and JSON results",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			catalog, err := loadCatalog(ctx, tleFile, cacheDir, logger)
			if err != nil {
				return err
			}

			store := tle.NewStore()
			store.Set(catalog)
			metrics.SetCatalogSets(len(catalog.Sets))

			svc := analysis.NewService(store, status.NewTracker(), results.NewStore(1), logger)
			run, err := svc.Run(ctx, analysis.Request{
				LatDeg:          lat,
				LonDeg:          lon,
				AltM:            alt,
				DurationMinutes: duration,
				IntervalMinutes: interval,
				MinElevationDeg: minElevation,
				Workers:         workers,
			})
			if err != nil {
				return err
			}

			w, err := report.NewWriter(outputDir, logger)
			if err != nil {
				return err
			}
			if _, err := w.WriteSeries(run.Series); err != nil {
				return err
			}
			if _, err := w.WriteStats(run.Stats); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"samples: %d  coverage: %.1f%%  avg visible: %.2f  max elevation: %.1f°  mode: %s\n",
				run.Stats.Samples, run.Stats.CoveragePct, run.Stats.AvgVisible, run.Stats.MaxElevation, run.Mode)
			return nil
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 25.0330, "observer latitude in degrees")
	cmd.Flags().Float64Var(&lon, "lon", 121.5654, "observer longitude in degrees")
	cmd.Flags().Float64Var(&alt, "alt", 10, "observer altitude in meters")
	cmd.Flags().IntVar(&duration, "duration", 60, "analysis window in minutes")
	cmd.Flags().Float64Var(&interval, "interval", 1, "sample interval in minutes")
	cmd.Flags().Float64Var(&minElevation, "min-elevation", 25, "visibility threshold in degrees")
	cmd.Flags().IntVar(&workers, "workers", 0, "worker count (0 = number of CPUs)")
	cmd.Flags().StringVar(&outputDir, "output", "results", "output directory")
	cmd.Flags().StringVar(&tleFile, "tle", "", "local TLE file (skips download)")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", envOr("COVERGO_TLE_CACHE", "tle_cache"), "TLE disk cache directory")

	return cmd
}

func newServeCmd(logger *slog.Logger) *cobra.Command {
	var (
		addr         string
		token        string
		allowOrigins []string
		cacheDir     string
		refresh      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the coverage analysis HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store := tle.NewStore()
			loadCfg := tle.LoadConfig{
				CacheDir: cacheDir,
				MaxFiles: envIntOr("COVERGO_TLE_CACHE_FILES", 5, logger),
				MinSets:  1,
			}

			// Initial load failure is not fatal; readyz stays unready and the
			// refresh loop keeps retrying.
			if catalog, err := tle.Load(ctx, loadCfg, logger); err != nil {
				logger.Warn("initial catalog load failed", "error", err)
			} else {
				store.Set(catalog)
				metrics.SetCatalogSets(len(catalog.Sets))
			}

			svc := analysis.NewService(store, status.NewTracker(), results.NewStore(envIntOr("COVERGO_RESULTS_RETAINED", 10, logger)), logger)
			server := api.NewServer(api.Config{Token: token, AllowOrigins: allowOrigins}, svc, store, logger)

			httpServer := &http.Server{
				Addr:              addr,
				Handler:           server.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			go refreshLoop(ctx, store, loadCfg, refresh, logger)

			errCh := make(chan error, 1)
			go func() {
				logger.Info("http server listening", "addr", addr)
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", envOr("COVERGO_ADDR", ":8080"), "listen address")
	cmd.Flags().StringVar(&token, "token", os.Getenv("COVERGO_API_TOKEN"), "bearer token for /api routes (empty disables auth)")
	cmd.Flags().StringSliceVar(&allowOrigins, "allow-origin", nil, "CORS allowed origins")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", envOr("COVERGO_TLE_CACHE", "tle_cache"), "TLE disk cache directory")
	cmd.Flags().DurationVar(&refresh, "tle-refresh", 6*time.Hour, "catalog refresh interval")

	return cmd
}

// loadCatalog reads a local TLE file when given, otherwise downloads with
// disk-cache fallback.
func loadCatalog(ctx context.Context, tleFile, cacheDir string, logger *slog.Logger) (*tle.Catalog, error) {
	if tleFile != "" {
		data, err := os.ReadFile(tleFile)
		if err != nil {
			return nil, fmt.Errorf("read TLE file: %w", err)
		}
		return tle.LoadFile(data, tleFile, logger)
	}
	return tle.Load(ctx, tle.LoadConfig{CacheDir: cacheDir, MaxFiles: 5, MinSets: 1}, logger)
}

// refreshLoop periodically re-downloads the catalog and keeps the catalog
// gauges current between refreshes.
func refreshLoop(ctx context.Context, store *tle.Store, cfg tle.LoadConfig, every time.Duration, logger *slog.Logger) {
	refresh := time.NewTicker(every)
	defer refresh.Stop()
	gauge := time.NewTicker(30 * time.Second)
	defer gauge.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-gauge.C:
			if age := store.AgeSeconds(); age >= 0 {
				metrics.SetCatalogAge(age)
			}
		case <-refresh.C:
			catalog, err := tle.Load(ctx, cfg, logger)
			if err != nil {
				logger.Warn("catalog refresh failed, keeping current catalog", "error", err)
				continue
			}
			store.Set(catalog)
			metrics.SetCatalogSets(len(catalog.Sets))
		}
	}
}
