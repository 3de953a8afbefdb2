// Command ranker places course reviews into a personal ranked list by asking
// a few pairwise questions, and manages the lists it builds.
package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/course-rank/go-ranker/internal/config"
	"github.com/danielpatrickdp/course-rank/go-ranker/internal/eval"
	"github.com/danielpatrickdp/course-rank/go-ranker/internal/logging"
	"github.com/danielpatrickdp/course-rank/go-ranker/internal/orchestrator"
	"github.com/danielpatrickdp/course-rank/go-ranker/internal/state"
)

// #region main

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globals are the persistent flags shared by every subcommand.
type globals struct {
	configPath string
	dbPath     string
	userID     string
	tier       string

	metricsTextfile string
}

func rootCmd() *cobra.Command {
	g := &globals{}

	cmd := &cobra.Command{
		Use:           "ranker",
		Short:         "Rank course reviews by pairwise comparison",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "config file (YAML); defaults to $RANKER_CONFIG or ./ranker.yaml")
	cmd.PersistentFlags().StringVar(&g.dbPath, "db", "", "SQLite database path (overrides config)")
	cmd.PersistentFlags().StringVar(&g.userID, "user", "", "user id (overrides config)")
	cmd.PersistentFlags().StringVar(&g.tier, "tier", "", "tier to operate on (overrides config)")
	cmd.PersistentFlags().StringVar(&g.metricsTextfile, "metrics-textfile", "", "write this run's counters to a node_exporter textfile on exit")

	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if g.metricsTextfile == "" {
			return nil
		}
		if err := prometheus.WriteToTextfile(g.metricsTextfile, prometheus.DefaultGatherer); err != nil {
			return err
		}
		logging.Info().Str("path", g.metricsTextfile).Msg("metrics textfile written")
		return nil
	}

	cmd.AddCommand(
		placeCmd(g),
		resumeCmd(g),
		listCmd(g),
		removeCmd(g),
		statsCmd(g),
		metricsCmd(g),
	)
	return cmd
}

// #endregion main

// #region wiring

// app is everything a subcommand needs once config has been resolved.
type app struct {
	cfg   *config.Config
	store *state.Store
	orch  *orchestrator.Orchestrator
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logging.Warn().Err(err).Msg("close database")
	}
}

// open loads config, applies flag overrides, configures logging and opens
// the database. Callers must Close the returned app.
func (g *globals) open() (*app, error) {
	var (
		cfg *config.Config
		err error
	)
	if g.configPath != "" {
		cfg, err = config.LoadFrom(g.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if g.dbPath != "" {
		cfg.Database.Path = g.dbPath
	}
	if g.userID != "" {
		cfg.Placement.UserID = g.userID
	}
	if g.tier != "" {
		cfg.Placement.DefaultTier = g.tier
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})

	logging.Debug().
		Str("db", cfg.Database.Path).
		Str("user", cfg.Placement.UserID).
		Str("tier", cfg.Placement.DefaultTier).
		Bool("strict", cfg.Placement.StrictContradictions).
		Msg("config resolved")

	store, err := state.NewStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Database.Path, err)
	}
	orch, err := orchestrator.NewOrchestrator(store,
		orchestrator.WithEvalConfig(eval.EvalConfig{FailOnContradiction: cfg.Placement.StrictContradictions}),
	)
	if err != nil {
		store.Close()
		return nil, err
	}
	return &app{cfg: cfg, store: store, orch: orch}, nil
}

// #endregion wiring
