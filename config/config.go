// config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/riskd/lockout"
	"github.com/rustyeddy/riskd/rules"
)

// Config is the complete daemon configuration.
type Config struct {
	Venue    VenueConfig   `json:"venue" yaml:"venue"`
	Session  SessionConfig `json:"session" yaml:"session"`
	Rules    rules.Config  `json:"rules" yaml:"rules"`
	Storage  StorageConfig `json:"storage" yaml:"storage"`
	Logging  LoggingConfig `json:"logging" yaml:"logging"`
	Metrics  MetricsConfig `json:"metrics" yaml:"metrics"`
	Accounts []string      `json:"accounts" yaml:"accounts"`
}

// VenueConfig selects and configures the outbound venue connection.
type VenueConfig struct {
	Kind              string  `json:"kind" yaml:"kind"` // "rest" or "sim"
	BaseURL           string  `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Token             string  `json:"token,omitempty" yaml:"token,omitempty"`
	RequestTimeout    string  `json:"request_timeout,omitempty" yaml:"request_timeout,omitempty"`
	RequestsPerSecond float64 `json:"requests_per_second,omitempty" yaml:"requests_per_second,omitempty"`
	Burst             int     `json:"burst,omitempty" yaml:"burst,omitempty"`
}

// ParseRequestTimeout converts the timeout string to a duration.
func (v VenueConfig) ParseRequestTimeout() (time.Duration, error) {
	if v.RequestTimeout == "" {
		return 0, nil
	}
	return time.ParseDuration(v.RequestTimeout)
}

// SessionConfig describes the trading calendar.
type SessionConfig struct {
	Timezone string `json:"timezone" yaml:"timezone"`
	// Open, Close and Reset are wall-clock "HH:MM"; Reset defaults to Open.
	Open     string   `json:"open" yaml:"open"`
	Close    string   `json:"close" yaml:"close"`
	Reset    string   `json:"reset,omitempty" yaml:"reset,omitempty"`
	Holidays []string `json:"holidays,omitempty" yaml:"holidays,omitempty"`
	Weekends bool     `json:"weekends,omitempty" yaml:"weekends,omitempty"`
}

// Calendar builds the trading calendar from the session settings.
func (s SessionConfig) Calendar() (lockout.Calendar, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return lockout.Calendar{}, fmt.Errorf("session.timezone: %w", err)
	}
	open, err := lockout.ParseTimeOfDay(s.Open)
	if err != nil {
		return lockout.Calendar{}, fmt.Errorf("session.open: %w", err)
	}
	closeAt, err := lockout.ParseTimeOfDay(s.Close)
	if err != nil {
		return lockout.Calendar{}, fmt.Errorf("session.close: %w", err)
	}
	reset := open
	if s.Reset != "" {
		reset, err = lockout.ParseTimeOfDay(s.Reset)
		if err != nil {
			return lockout.Calendar{}, fmt.Errorf("session.reset: %w", err)
		}
	}

	holidays := make(map[string]bool, len(s.Holidays))
	for _, h := range s.Holidays {
		if _, err := time.Parse("2006-01-02", h); err != nil {
			return lockout.Calendar{}, fmt.Errorf("session.holidays: %q: %w", h, err)
		}
		holidays[h] = true
	}

	return lockout.Calendar{
		Location: loc,
		Open:     open,
		Close:    closeAt,
		Reset:    reset,
		Holidays: holidays,
		Weekends: s.Weekends,
	}, nil
}

// StorageConfig holds the on-disk paths.
type StorageConfig struct {
	SnapshotPath string `json:"snapshot_path" yaml:"snapshot_path"`
	JournalPath  string `json:"journal_path" yaml:"journal_path"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`   // trace/debug/info/warn/error
	Format string `json:"format" yaml:"format"` // "console" or "json"
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Listen  string `json:"listen,omitempty" yaml:"listen,omitempty"`
}

// LoadFromFile loads configuration from a file (YAML or JSON), applies
// environment overrides, and validates.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON.
	if yerr := yaml.Unmarshal(data, cfg); yerr != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", yerr)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadEnv reads a .env file when present, so credentials stay out of the
// config file. A missing file is not an error.
func LoadEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

// applyEnv lets deployment credentials override the file. Only secrets,
// endpoints and log level are overridable; risk limits always come from
// the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("RISKD_VENUE_URL"); v != "" {
		c.Venue.BaseURL = v
	}
	if v := os.Getenv("RISKD_VENUE_TOKEN"); v != "" {
		c.Venue.Token = v
	}
	if v := os.Getenv("RISKD_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// SaveToFile writes the configuration, YAML for .yaml/.yml and JSON
// otherwise.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration for mistakes worth refusing to run on.
func (c *Config) Validate() error {
	switch c.Venue.Kind {
	case "rest":
		if c.Venue.BaseURL == "" {
			return fmt.Errorf("venue.base_url is required for the rest venue")
		}
		if c.Venue.Token == "" {
			return fmt.Errorf("venue.token is required for the rest venue (or RISKD_VENUE_TOKEN)")
		}
	case "sim":
	default:
		return fmt.Errorf("venue.kind must be 'rest' or 'sim'")
	}
	if _, err := c.Venue.ParseRequestTimeout(); err != nil {
		return fmt.Errorf("venue.request_timeout: %w", err)
	}

	if _, err := c.Session.Calendar(); err != nil {
		return err
	}

	if c.Storage.SnapshotPath == "" {
		return fmt.Errorf("storage.snapshot_path is required")
	}
	if c.Storage.JournalPath == "" {
		return fmt.Errorf("storage.journal_path is required")
	}

	switch c.Logging.Level {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q not recognized", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be 'console' or 'json'")
	}

	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return fmt.Errorf("metrics.listen is required when metrics are enabled")
	}

	return c.validateRules()
}

func (c *Config) validateRules() error {
	r := &c.Rules
	if r.MaxNetContracts.Enabled && r.MaxNetContracts.Limit <= 0 {
		return fmt.Errorf("rules.max_net_contracts.limit must be positive")
	}
	if r.DailyRealizedLoss.Enabled && r.DailyRealizedLoss.Limit <= 0 {
		return fmt.Errorf("rules.daily_realized_loss.limit must be positive")
	}
	if r.DailyUnrealizedLoss.Enabled && r.DailyUnrealizedLoss.Limit <= 0 {
		return fmt.Errorf("rules.daily_unrealized_loss.limit must be positive")
	}
	if r.MaxUnrealizedProfit.Enabled && r.MaxUnrealizedProfit.Target <= 0 {
		return fmt.Errorf("rules.max_unrealized_profit.target must be positive")
	}
	if r.TradeFrequency.Enabled &&
		r.TradeFrequency.PerMinute <= 0 && r.TradeFrequency.PerHour <= 0 && r.TradeFrequency.PerSession <= 0 {
		return fmt.Errorf("rules.trade_frequency needs at least one window limit")
	}
	if r.CooldownAfterLoss.Enabled && len(r.CooldownAfterLoss.Tiers) == 0 {
		return fmt.Errorf("rules.cooldown_after_loss.tiers must not be empty")
	}
	for _, tier := range r.CooldownAfterLoss.Tiers {
		if tier.LossAtLeast <= 0 || tier.Cooldown <= 0 {
			return fmt.Errorf("rules.cooldown_after_loss tiers need positive loss and cooldown")
		}
	}
	if r.NoStopLossGrace.Enabled && r.NoStopLossGrace.Grace <= 0 {
		return fmt.Errorf("rules.no_stop_loss_grace.grace must be positive")
	}
	if r.AutoTradeMgmt.Enabled && r.AutoTradeMgmt.BreakevenTicks <= 0 {
		return fmt.Errorf("rules.auto_trade_management.breakeven_ticks must be positive")
	}
	return nil
}

// Default returns a configuration with sensible defaults: sim venue, CME
// equity-index hours, a conservative starter rule set.
func Default() *Config {
	return &Config{
		Venue: VenueConfig{
			Kind:              "sim",
			RequestTimeout:    "10s",
			RequestsPerSecond: 20,
			Burst:             10,
		},
		Session: SessionConfig{
			Timezone: "America/Chicago",
			Open:     "17:00",
			Close:    "16:00",
			Reset:    "17:00",
		},
		Rules: rules.Config{
			MaxNetContracts:   rules.MaxNetContractsConfig{Enabled: true, Limit: 10},
			DailyRealizedLoss: rules.DailyRealizedLossConfig{Enabled: true, Limit: 1000},
			NoStopLossGrace:   rules.NoStopLossGraceConfig{Enabled: true, Grace: rules.Duration(2 * time.Minute)},
		},
		Storage: StorageConfig{
			SnapshotPath: "./riskd-state.db",
			JournalPath:  "./riskd-audit.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  ":9090",
		},
	}
}
