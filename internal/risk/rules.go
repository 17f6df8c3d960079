package risk

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rules are the admission thresholds for the governor. Durations are minutes
// to keep the yaml file hand-editable.
type Rules struct {
	MinConfidence int `yaml:"min_confidence"`

	// Global circuit breaker over the rolling outcome window.
	BreakerWindow      int     `yaml:"breaker_window"`
	BreakerMinTrades   int     `yaml:"breaker_min_trades"`
	BreakerMinWinRate  float64 `yaml:"breaker_min_win_rate"`
	BreakerRFloor      float64 `yaml:"breaker_r_floor"`
	BreakerCooldownMin int     `yaml:"breaker_cooldown_min"`

	// Per-setup auto-disable.
	SetupMinTrades   int     `yaml:"setup_min_trades"`
	SetupMinWinRate  float64 `yaml:"setup_min_win_rate"`
	SetupCooldownMin int     `yaml:"setup_cooldown_min"`
}

// DefaultRules returns the thresholds used when no rule file is configured.
func DefaultRules() Rules {
	return Rules{
		MinConfidence:      55,
		BreakerWindow:      10,
		BreakerMinTrades:   8,
		BreakerMinWinRate:  35,
		BreakerRFloor:      -3.0,
		BreakerCooldownMin: 90,
		SetupMinTrades:     12,
		SetupMinWinRate:    42,
		SetupCooldownMin:   240,
	}
}

// LoadRules reads thresholds from a yaml file, filling absent fields from the
// defaults. An empty path just returns the defaults.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("read risk rules: %w", err)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return rules, fmt.Errorf("parse risk rules: %w", err)
	}
	return rules, nil
}
