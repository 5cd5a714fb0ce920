// rules/config.go
package rules

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so config files can say "90s" or "5m".
type Duration time.Duration

// Std converts back to the standard type.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Config carries every rule's thresholds. Zero values disable nothing by
// themselves; each rule has an explicit Enabled flag.
type Config struct {
	MaxNetContracts     MaxNetContractsConfig     `yaml:"max_net_contracts" json:"max_net_contracts"`
	MaxPerInstrument    MaxPerInstrumentConfig    `yaml:"max_contracts_per_instrument" json:"max_contracts_per_instrument"`
	DailyRealizedLoss   DailyRealizedLossConfig   `yaml:"daily_realized_loss" json:"daily_realized_loss"`
	DailyUnrealizedLoss DailyUnrealizedLossConfig `yaml:"daily_unrealized_loss" json:"daily_unrealized_loss"`
	MaxUnrealizedProfit MaxUnrealizedProfitConfig `yaml:"max_unrealized_profit" json:"max_unrealized_profit"`
	TradeFrequency      TradeFrequencyConfig      `yaml:"trade_frequency" json:"trade_frequency"`
	CooldownAfterLoss   CooldownAfterLossConfig   `yaml:"cooldown_after_loss" json:"cooldown_after_loss"`
	NoStopLossGrace     NoStopLossGraceConfig     `yaml:"no_stop_loss_grace" json:"no_stop_loss_grace"`
	SessionBlock        SessionBlockConfig        `yaml:"session_block" json:"session_block"`
	AuthGuard           AuthGuardConfig           `yaml:"auth_guard" json:"auth_guard"`
	SymbolBlocks        SymbolBlocksConfig        `yaml:"symbol_blocks" json:"symbol_blocks"`
	AutoTradeMgmt       AutoTradeMgmtConfig       `yaml:"auto_trade_management" json:"auto_trade_management"`
}

type MaxNetContractsConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	Limit   int  `yaml:"limit" json:"limit"`
	// CloseAll flattens the whole account on breach instead of trimming
	// the triggering contract back to the limit.
	CloseAll bool `yaml:"close_all" json:"close_all"`
}

type MaxPerInstrumentConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Limit applies to any symbol not listed in PerSymbol.
	Limit     int            `yaml:"limit" json:"limit"`
	PerSymbol map[string]int `yaml:"per_symbol" json:"per_symbol"`
}

type DailyRealizedLossConfig struct {
	Enabled bool    `yaml:"enabled" json:"enabled"`
	Limit   float64 `yaml:"limit" json:"limit"` // positive number of account currency
}

type DailyUnrealizedLossConfig struct {
	Enabled bool    `yaml:"enabled" json:"enabled"`
	Limit   float64 `yaml:"limit" json:"limit"`
	Lockout bool    `yaml:"lockout" json:"lockout"` // optional lockout until reset
}

type MaxUnrealizedProfitConfig struct {
	Enabled bool    `yaml:"enabled" json:"enabled"`
	Target  float64 `yaml:"target" json:"target"`
}

type TradeFrequencyConfig struct {
	Enabled    bool `yaml:"enabled" json:"enabled"`
	PerMinute  int  `yaml:"per_minute" json:"per_minute"`
	PerHour    int  `yaml:"per_hour" json:"per_hour"`
	PerSession int  `yaml:"per_session" json:"per_session"`
	// Cooldown durations are tiered by which window breached.
	MinuteCooldown  Duration `yaml:"minute_cooldown" json:"minute_cooldown"`
	HourCooldown    Duration `yaml:"hour_cooldown" json:"hour_cooldown"`
	SessionCooldown Duration `yaml:"session_cooldown" json:"session_cooldown"`
}

// LossTier maps a per-trade loss magnitude to a cooldown duration.
type LossTier struct {
	LossAtLeast float64  `yaml:"loss_at_least" json:"loss_at_least"`
	Cooldown    Duration `yaml:"cooldown" json:"cooldown"`
}

type CooldownAfterLossConfig struct {
	Enabled bool       `yaml:"enabled" json:"enabled"`
	Tiers   []LossTier `yaml:"tiers" json:"tiers"`
}

type NoStopLossGraceConfig struct {
	Enabled bool     `yaml:"enabled" json:"enabled"`
	Grace   Duration `yaml:"grace" json:"grace"`
}

type SessionBlockConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

type AuthGuardConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

type SymbolBlocksConfig struct {
	Enabled bool     `yaml:"enabled" json:"enabled"`
	Blocked []string `yaml:"blocked" json:"blocked"` // symbol roots
}

type AutoTradeMgmtConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// BreakevenTicks is the profit, in ticks, at which the stop moves to
	// the entry price.
	BreakevenTicks float64 `yaml:"breakeven_ticks" json:"breakeven_ticks"`
	// TrailTicks, when set, keeps the stop trailing that many ticks
	// behind the last price once past breakeven.
	TrailTicks float64 `yaml:"trail_ticks" json:"trail_ticks"`
}
