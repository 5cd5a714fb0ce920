package cmd

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/riskd/config"
	"github.com/rustyeddy/riskd/enforce"
	"github.com/rustyeddy/riskd/engine"
	"github.com/rustyeddy/riskd/journal"
	"github.com/rustyeddy/riskd/lockout"
	"github.com/rustyeddy/riskd/persist"
	"github.com/rustyeddy/riskd/rules"
	"github.com/rustyeddy/riskd/state"
	"github.com/rustyeddy/riskd/track"
	"github.com/rustyeddy/riskd/venue"
	"github.com/rustyeddy/riskd/venue/rest"
	"github.com/rustyeddy/riskd/venue/sim"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the enforcement daemon",
	Long: `Start the risk enforcement engine: recover persisted state, start the
background sweeps, and enforce policy on incoming account events until
interrupted.

Example:
  riskd run --config riskd.yaml`,
	RunE: runRun,
}

var (
	runConfigPath string
	runEnvPath    string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.Flags().StringVar(&runEnvPath, "env", "", "path to .env file with venue credentials (default .env)")
	runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	if err := config.LoadEnv(runEnvPath); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := newLogger(cfg.Logging)

	cal, err := cfg.Session.Calendar()
	if err != nil {
		return err
	}

	var v venue.Venue
	switch cfg.Venue.Kind {
	case "rest":
		timeout, _ := cfg.Venue.ParseRequestTimeout()
		v = rest.NewClient(rest.Config{
			BaseURL:           cfg.Venue.BaseURL,
			Token:             cfg.Venue.Token,
			RequestTimeout:    timeout,
			RequestsPerSecond: cfg.Venue.RequestsPerSecond,
			Burst:             cfg.Venue.Burst,
		}, log)
	default:
		log.Warn().Msg("sim venue selected: enforcement commands go nowhere")
		v = sim.New()
	}

	snaps, err := persist.NewSQLite(cfg.Storage.SnapshotPath)
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}
	defer snaps.Close()

	audit, err := journal.NewSQLite(cfg.Storage.JournalPath)
	if err != nil {
		return fmt.Errorf("open audit journal: %w", err)
	}
	defer audit.Close()

	store := state.NewStore()
	quotes := track.NewQuoteBoard()
	contracts := track.NewContractCache(v)
	ledger := lockout.NewLedger()
	deps := rules.Deps{
		Store:     store,
		PnL:       track.NewPnLTracker(store, quotes, contracts),
		Trades:    track.NewTradeCounter(),
		Quotes:    quotes,
		Contracts: contracts,
		Ledger:    ledger,
		Calendar:  cal,
	}

	timers := lockout.NewRegistry(log)
	exec := enforce.New(v, ledger, timers, audit, log)
	sched := lockout.NewScheduler(cal, time.Now())

	eng := engine.New(deps, rules.Build(cfg.Rules), exec, timers, sched, snaps, log)
	if err := eng.Recover(); err != nil {
		return fmt.Errorf("recover: %w", err)
	}

	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			log.Info().Str("listen", cfg.Metrics.Listen).Msg("metrics endpoint up")
			if err := http.ListenAndServe(cfg.Metrics.Listen, mux); err != nil {
				log.Error().Err(err).Msg("metrics endpoint failed")
			}
		}()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("venue", cfg.Venue.Kind).Int("accounts", len(cfg.Accounts)).
		Msg("riskd starting")
	eng.Run(ctx)
	return nil
}
