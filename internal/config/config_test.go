package config

import (
	"errors"
	"os"
	"testing"
	"time"
)

func setTestCredentials(t *testing.T) {
	t.Helper()
	os.Setenv("ALPACA_KEY_ID", "test_key")
	os.Setenv("ALPACA_SECRET_KEY", "test_secret")
	t.Cleanup(func() {
		os.Unsetenv("ALPACA_KEY_ID")
		os.Unsetenv("ALPACA_SECRET_KEY")
	})
}

func TestLoadDefaults(t *testing.T) {
	setTestCredentials(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.AlpacaKeyID != "test_key" {
		t.Errorf("Expected AlpacaKeyID='test_key', got '%s'", cfg.AlpacaKeyID)
	}
	if cfg.SymbolA != "KO" || cfg.SymbolB != "PEP" {
		t.Errorf("Expected default pair KO/PEP, got %s", cfg.PairName())
	}
	if cfg.EntryThreshold != 2.0 {
		t.Errorf("Expected EntryThreshold=2.0, got %v", cfg.EntryThreshold)
	}
	if cfg.ExitThreshold != 0.5 {
		t.Errorf("Expected ExitThreshold=0.5, got %v", cfg.ExitThreshold)
	}
	if cfg.RiskFraction != 0.02 {
		t.Errorf("Expected RiskFraction=0.02, got %v", cfg.RiskFraction)
	}
	if cfg.PollInterval != 60*time.Second {
		t.Errorf("Expected PollInterval=60s, got %v", cfg.PollInterval)
	}
	if cfg.CointGate != GateStrict {
		t.Errorf("Expected strict gate by default, got %q", cfg.CointGate)
	}
	if cfg.AlpacaBaseURL != "https://paper-api.alpaca.markets" {
		t.Errorf("Unexpected base URL '%s'", cfg.AlpacaBaseURL)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	setTestCredentials(t)
	overrides := map[string]string{
		"PAIRS_SYMBOL_A":        "nvda",
		"PAIRS_SYMBOL_B":        "amd",
		"PAIRS_ENTRY_THRESHOLD": "1.5",
		"PAIRS_EXIT_THRESHOLD":  "0.25",
		"PAIRS_COINT_GATE":      "advisory",
	}
	for k, v := range overrides {
		os.Setenv(k, v)
	}
	t.Cleanup(func() {
		for k := range overrides {
			os.Unsetenv(k)
		}
	})

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.SymbolA != "NVDA" || cfg.SymbolB != "AMD" {
		t.Errorf("Expected pair NVDA/AMD, got %s", cfg.PairName())
	}
	if cfg.EntryThreshold != 1.5 || cfg.ExitThreshold != 0.25 {
		t.Errorf("Expected thresholds 1.5/0.25, got %v/%v", cfg.EntryThreshold, cfg.ExitThreshold)
	}
	if cfg.CointGate != GateAdvisory {
		t.Errorf("Expected advisory gate, got %q", cfg.CointGate)
	}
}

func TestLoadMissingKeys(t *testing.T) {
	os.Unsetenv("ALPACA_KEY_ID")
	os.Unsetenv("ALPACA_SECRET_KEY")

	_, err := Load("")
	if err == nil {
		t.Fatal("Expected error when API keys are missing, got nil")
	}
}

func TestInvalidThresholds(t *testing.T) {
	setTestCredentials(t)
	cases := []struct {
		name        string
		entry, exit string
	}{
		{"equal", "1.0", "1.0"},
		{"inverted", "0.5", "2.0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			os.Setenv("PAIRS_ENTRY_THRESHOLD", tc.entry)
			os.Setenv("PAIRS_EXIT_THRESHOLD", tc.exit)
			defer os.Unsetenv("PAIRS_ENTRY_THRESHOLD")
			defer os.Unsetenv("PAIRS_EXIT_THRESHOLD")

			_, err := Load("")
			if err == nil {
				t.Fatal("Expected threshold validation error, got nil")
			}
			var thresholdErr *InvalidThresholdConfig
			if !errors.As(err, &thresholdErr) {
				t.Errorf("Expected InvalidThresholdConfig, got %T: %v", err, err)
			}
		})
	}
}

func TestValidateRejectsSameSymbols(t *testing.T) {
	cfg := &Config{
		AlpacaKeyID:     "k",
		AlpacaSecretKey: "s",
		SymbolA:         "KO",
		SymbolB:         "KO",
		EntryThreshold:  2.0,
		ExitThreshold:   0.5,
		RiskFraction:    0.02,
		SpreadLookback:  60,
		CointGate:       GateStrict,
		PollInterval:    time.Minute,
	}
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for identical pair symbols, got nil")
	}
}

func TestIsPaperTrading(t *testing.T) {
	cfg := &Config{LiveTrading: false}
	if !cfg.IsPaperTrading() {
		t.Error("Expected IsPaperTrading()=true when LiveTrading=false")
	}

	cfg.LiveTrading = true
	if cfg.IsPaperTrading() {
		t.Error("Expected IsPaperTrading()=false when LiveTrading=true")
	}
}
