package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"netinsights/internal/cache"
	"netinsights/internal/config"
	"netinsights/internal/ingest"
	"netinsights/internal/inventory"
	"netinsights/internal/logging"
	"netinsights/internal/widget"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose bool
	cfg     *config.AppConfig

	registry *widget.Registry
	samples  *ingest.SampleStore
)

var rootCmd = &cobra.Command{
	Use:   "netinsights",
	Short: "NetInsights computes analytics widgets over a network inventory",
	Long: `An analytics engine for network inventory data: utilization metrics,
device health and data quality scoring, trend forecasting, anomaly detection
and proactive capacity alerts, served as cacheable dashboard widgets.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(verbose)

		// Load configuration
		var err error
		cfg, err = config.Load()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}

		// Pick the cache backend: Redis when configured, in-process otherwise.
		var store cache.Store
		if cfg.RedisAddr != "" {
			rs, err := cache.NewRedisStore(cfg.RedisAddr, "")
			if err != nil {
				log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("Failed to connect to Redis")
			}
			store = rs
		} else {
			store = cache.NewMemoryStore()
		}

		metrics := cache.NewMetrics(prometheus.DefaultRegisterer)
		svc := cache.NewService(store, cfg.EnableCaching, metrics)

		samples = ingest.NewSampleStore(cfg.TrendPeriodDays)
		registry = widget.NewRegistry(svc)

		accessor := inventory.NewFileAccessor(cfg.SnapshotPath)
		if err := widget.RegisterBuiltins(registry, cfg, accessor, samples); err != nil {
			log.Fatal().Err(err).Msg("Failed to register widgets")
		}

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Msg("NetInsights starting")
	},
	Run: func(cmd *cobra.Command, args []string) {
		// One-shot mode: compute every registered widget and print the
		// envelopes as a single JSON document.
		ctx := cmd.Context()
		out := make(map[string]widget.WidgetResult)
		for _, d := range registry.Descriptors() {
			out[d.Name] = registry.Compute(ctx, d.Name, nil)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			log.Error().Err(err).Msg("Failed to encode results")
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Recompute widgets on their refresh intervals until interrupted",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		for _, d := range registry.Descriptors() {
			go refreshLoop(ctx, d.Name, d.RefreshInterval)
		}

		log.Info().Int("widgets", len(registry.Descriptors())).Msg("Serving widget refresh loops")
		<-ctx.Done()
		log.Info().Msg("Shutting down")
	},
}

// pushCmd validates and ingests a sample payload into the process-local
// sample store. Samples live in memory for the life of the process; a
// one-shot invocation demonstrates schema validation and windowing, while
// durable history belongs to whatever runs the push against serve.
var pushCmd = &cobra.Command{
	Use:   "push [file]",
	Short: "Ingest a metric sample payload (JSON from a file, or stdin with -)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			payload []byte
			err     error
		)
		if args[0] == "-" {
			payload, err = io.ReadAll(os.Stdin)
		} else {
			payload, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("read payload: %w", err)
		}

		ing, err := ingest.NewIngestor(samples)
		if err != nil {
			return err
		}
		sample, err := ing.Push(payload)
		if err != nil {
			return err
		}

		log.Info().
			Str("id", sample.ID).
			Str("metric", sample.Metric).
			Float64("value", sample.Value).
			Msg("Sample accepted")
		return nil
	},
}

func refreshLoop(ctx context.Context, name string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	compute := func() {
		start := time.Now()
		res := registry.Compute(ctx, name, nil)
		ev := log.Info()
		if res.Status != "ok" {
			ev = log.Warn()
		}
		ev.Str("widget", name).
			Str("status", res.Status).
			Bool("fromCache", res.FromCache).
			Dur("elapsed", time.Since(start)).
			Msg("Widget refreshed")
	}

	compute()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			compute()
		}
	}
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(pushCmd)
}
