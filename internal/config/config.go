package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// GateMode controls how the cointegration verdict gates new entries.
type GateMode string

const (
	// GateStrict refuses FLAT->entry transitions unless the pair tested
	// cointegrated this cycle.
	GateStrict GateMode = "strict"
	// GateAdvisory logs a failed test but lets the signal proceed, matching
	// the original bot's behavior.
	GateAdvisory GateMode = "advisory"
)

// Config holds all application configuration
type Config struct {
	// Alpaca API
	AlpacaKeyID     string
	AlpacaSecretKey string
	AlpacaBaseURL   string
	AlpacaDataURL   string
	AlpacaStreamURL string

	// Trading
	LiveTrading bool

	// Pair definition
	SymbolA string
	SymbolB string

	// Statistics
	LookbackDays   int // calendar days of daily bars fetched per cycle
	SpreadLookback int // trailing observations for rolling spread stats

	// Signal thresholds (z-score, standard deviations)
	EntryThreshold float64
	ExitThreshold  float64
	CointGate      GateMode

	// Sizing
	RiskFraction float64

	// Engine cadence
	PollInterval   time.Duration
	ReconcileEvery int // cycles between opportunistic reconciliation passes

	// Persistence and observability
	StatePath   string
	MetricsAddr string

	// Performance
	HTTPTimeout     time.Duration
	PriceStaleAfter time.Duration
}

// InvalidThresholdConfig reports an entry/exit threshold pair that could
// deadlock the state machine (re-entry impossible after an exit).
type InvalidThresholdConfig struct {
	Entry float64
	Exit  float64
}

func (e *InvalidThresholdConfig) Error() string {
	return fmt.Sprintf("entry threshold %.2f must be strictly greater than exit threshold %.2f", e.Entry, e.Exit)
}

// Load reads configuration from an optional config file, the environment,
// and a .env file if present. It fails fast on missing credentials or an
// invalid threshold pair.
func Load(cfgFile string) (*Config, error) {
	// Try to load .env file (ignore error if not found)
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PAIRS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Credentials keep the conventional Alpaca variable names.
	_ = v.BindEnv("alpaca_key_id", "ALPACA_KEY_ID")
	_ = v.BindEnv("alpaca_secret_key", "ALPACA_SECRET_KEY")
	_ = v.BindEnv("alpaca_base_url", "ALPACA_BASE_URL")
	_ = v.BindEnv("alpaca_data_url", "ALPACA_DATA_URL")
	_ = v.BindEnv("alpaca_stream_url", "ALPACA_STREAM_URL")

	v.SetDefault("alpaca_base_url", "https://paper-api.alpaca.markets")
	v.SetDefault("alpaca_data_url", "https://data.alpaca.markets")
	v.SetDefault("alpaca_stream_url", "wss://stream.data.alpaca.markets/v2/iex")
	v.SetDefault("live_trading", false)
	v.SetDefault("symbol_a", "KO")
	v.SetDefault("symbol_b", "PEP")
	v.SetDefault("lookback_days", 252)
	v.SetDefault("spread_lookback", 60)
	v.SetDefault("entry_threshold", 2.0)
	v.SetDefault("exit_threshold", 0.5)
	v.SetDefault("coint_gate", string(GateStrict))
	v.SetDefault("risk_fraction", 0.02)
	v.SetDefault("poll_interval_seconds", 60)
	v.SetDefault("reconcile_every", 10)
	v.SetDefault("state_path", "")
	v.SetDefault("metrics_addr", "")
	v.SetDefault("http_timeout_ms", 3000)
	v.SetDefault("price_stale_after_seconds", 30)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		AlpacaKeyID:     v.GetString("alpaca_key_id"),
		AlpacaSecretKey: v.GetString("alpaca_secret_key"),
		AlpacaBaseURL:   v.GetString("alpaca_base_url"),
		AlpacaDataURL:   v.GetString("alpaca_data_url"),
		AlpacaStreamURL: v.GetString("alpaca_stream_url"),
		LiveTrading:     v.GetBool("live_trading"),
		SymbolA:         strings.ToUpper(v.GetString("symbol_a")),
		SymbolB:         strings.ToUpper(v.GetString("symbol_b")),
		LookbackDays:    v.GetInt("lookback_days"),
		SpreadLookback:  v.GetInt("spread_lookback"),
		EntryThreshold:  v.GetFloat64("entry_threshold"),
		ExitThreshold:   v.GetFloat64("exit_threshold"),
		CointGate:       GateMode(v.GetString("coint_gate")),
		RiskFraction:    v.GetFloat64("risk_fraction"),
		PollInterval:    time.Duration(v.GetInt("poll_interval_seconds")) * time.Second,
		ReconcileEvery:  v.GetInt("reconcile_every"),
		StatePath:       v.GetString("state_path"),
		MetricsAddr:     v.GetString("metrics_addr"),
		HTTPTimeout:     time.Duration(v.GetInt("http_timeout_ms")) * time.Millisecond,
		PriceStaleAfter: time.Duration(v.GetInt("price_stale_after_seconds")) * time.Second,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the invariants the engine depends on.
func (c *Config) Validate() error {
	if c.AlpacaKeyID == "" || c.AlpacaSecretKey == "" {
		return fmt.Errorf("ALPACA_KEY_ID and ALPACA_SECRET_KEY must be set")
	}
	if c.SymbolA == "" || c.SymbolB == "" {
		return fmt.Errorf("both pair symbols must be set")
	}
	if c.SymbolA == c.SymbolB {
		return fmt.Errorf("pair symbols must differ, got %s for both legs", c.SymbolA)
	}
	if c.EntryThreshold <= c.ExitThreshold {
		return &InvalidThresholdConfig{Entry: c.EntryThreshold, Exit: c.ExitThreshold}
	}
	if c.EntryThreshold <= 0 || c.ExitThreshold < 0 {
		return fmt.Errorf("thresholds must be positive, got entry=%.2f exit=%.2f", c.EntryThreshold, c.ExitThreshold)
	}
	if c.RiskFraction <= 0 || c.RiskFraction > 1 {
		return fmt.Errorf("risk fraction must be in (0, 1], got %.4f", c.RiskFraction)
	}
	if c.SpreadLookback < 2 {
		return fmt.Errorf("spread lookback must be at least 2, got %d", c.SpreadLookback)
	}
	if c.CointGate != GateStrict && c.CointGate != GateAdvisory {
		return fmt.Errorf("coint gate must be %q or %q, got %q", GateStrict, GateAdvisory, c.CointGate)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	return nil
}

// IsPaperTrading returns true if using paper trading API
func (c *Config) IsPaperTrading() bool {
	return !c.LiveTrading
}

// PairName returns the display name of the configured pair.
func (c *Config) PairName() string {
	return c.SymbolA + "/" + c.SymbolB
}
