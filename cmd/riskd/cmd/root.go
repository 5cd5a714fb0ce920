package cmd

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/riskd/config"
)

var rootCmd = &cobra.Command{
	Use:   "riskd",
	Short: "A real-time risk policy enforcement daemon for trading accounts",
	Long: `riskd watches account activity from a trading venue and enforces risk
policy in real time.

It provides:
  - Daily loss limits, position caps, and trade-frequency throttles
  - Automatic flattening and order cancellation on breach
  - Account lockouts with timed cooldowns and daily resets
  - Stop-loss enforcement and automatic stop management
  - A persistent audit trail of every enforcement action

Complete documentation is available at https://github.com/rustyeddy/riskd`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// newLogger builds the process logger from config.
func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var log zerolog.Logger
	if cfg.Format == "json" {
		log = zerolog.New(os.Stderr)
	} else {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	return log.Level(level).With().Timestamp().Logger()
}
