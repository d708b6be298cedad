package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pthm-cable/morphogen/experiment"
	"github.com/pthm-cable/morphogen/storage"
	"github.com/pthm-cable/morphogen/telemetry"
)

var evolveFlags struct {
	generations int
	seed        uint64
	outputDir   string
	runID       string
	seedHall    string
	store       string
	metricsAddr string
}

var evolveCmd = &cobra.Command{
	Use:   "evolve",
	Short: "Run generations, resuming from the latest snapshot in the output directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		f := evolveFlags
		if cmd.Flags().Changed("generations") {
			cfg.Evolution.Generations = f.generations
		}
		if cmd.Flags().Changed("seed") {
			cfg.Evolution.Seed = f.seed
		}
		if cmd.Flags().Changed("output-dir") {
			cfg.Output.Dir = f.outputDir
		}
		if cmd.Flags().Changed("store") {
			cfg.Storage.Kind = f.store
		}
		if cmd.Flags().Changed("metrics-addr") {
			cfg.Metrics.Addr = f.metricsAddr
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, err := storage.NewStore(cfg.Storage.Kind, cfg.Storage.Path)
		if err != nil {
			return err
		}

		if f.runID == "" {
			f.runID = uuid.NewString()
		}
		opts := experiment.Options{
			Config: cfg,
			RunID:  f.runID,
			Store:  store,
			Logger: slog.Default(),
		}
		if f.seedHall != "" {
			if opts.SeedHall, err = telemetry.LoadHallOfFameFromFile(f.seedHall); err != nil {
				return err
			}
		}

		var metrics *telemetry.Metrics
		if cfg.Metrics.Addr != "" {
			metrics = telemetry.NewMetrics(opts.RunID)
			opts.Metrics = metrics
			go func() {
				if err := metrics.Serve(ctx, cfg.Metrics.Addr); err != nil {
					slog.Error("metrics server failed", "error", err)
				}
			}()
		}

		e, err := experiment.New(ctx, opts)
		if err != nil {
			return errors.Join(err, store.Close())
		}

		runErr := e.Run(ctx)
		if errors.Is(runErr, context.Canceled) {
			slog.Info("interrupted", "generation", e.Generation())
			runErr = nil
		}
		closeErr := e.Close()
		if runErr != nil {
			return runErr
		}
		if closeErr != nil {
			return closeErr
		}

		best := e.HallOfFame().TopFitness()
		slog.Info("evolution finished", "run_id", e.RunID(), "generation", e.Generation(), "best_fitness", best)
		return nil
	},
}

func init() {
	fl := evolveCmd.Flags()
	fl.IntVar(&evolveFlags.generations, "generations", 0, "Generations to run (overrides config)")
	fl.Uint64Var(&evolveFlags.seed, "seed", 0, "RNG seed, 0 = time-based (overrides config)")
	fl.StringVar(&evolveFlags.outputDir, "output-dir", "", "Directory for generation snapshots and run logs (overrides config)")
	fl.StringVar(&evolveFlags.runID, "run-id", "", "Run identifier (default: random UUID)")
	fl.StringVar(&evolveFlags.seedHall, "seed-hall", "", "hall_of_fame.json to seed a fresh population from")
	fl.StringVar(&evolveFlags.store, "store", "", "Run ledger backend: none, memory or sqlite (overrides config)")
	fl.StringVar(&evolveFlags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (overrides config)")

	rootCmd.AddCommand(evolveCmd)
}
