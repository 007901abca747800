package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutConfigFile(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Server.Port)

	assert.Equal(t, 1.5, cfg.Strategy.MinRiskReward)
	assert.Equal(t, 0.03, cfg.Strategy.StopLossPct)
	assert.Equal(t, 0.08, cfg.Strategy.ProfitTargetPct)
	assert.Equal(t, 2.5, cfg.Strategy.SupertrendBaseMult)
	assert.Equal(t, 50, cfg.Strategy.SupertrendTraining)

	assert.Equal(t, 30, cfg.Risk.ManualApprovalCount)
	assert.False(t, cfg.Risk.AutoTradingEnabled)
	assert.Equal(t, 0.5, cfg.Risk.CircuitBreakerThreshold)
	assert.Equal(t, "1h", cfg.Risk.CircuitBreakerWindow)

	assert.Equal(t, 100000.0, cfg.Paper.StartingCapital)
	assert.Equal(t, 20, cfg.Paper.MaxHoldingDays)
}

func TestValidateStrategy(t *testing.T) {
	valid := StrategyConfig{
		MinRiskReward:      1.5,
		StopLossPct:        0.03,
		ProfitTargetPct:    0.08,
		SupertrendBaseMult: 2.5,
	}
	assert.NoError(t, validateStrategy(valid))

	tests := []struct {
		name   string
		mutate func(*StrategyConfig)
	}{
		{"zero risk reward", func(s *StrategyConfig) { s.MinRiskReward = 0 }},
		{"negative stop loss", func(s *StrategyConfig) { s.StopLossPct = -0.01 }},
		{"stop loss at one", func(s *StrategyConfig) { s.StopLossPct = 1.0 }},
		{"profit target at one", func(s *StrategyConfig) { s.ProfitTargetPct = 1.0 }},
		{"multiplier below range", func(s *StrategyConfig) { s.SupertrendBaseMult = 0.5 }},
		{"multiplier above range", func(s *StrategyConfig) { s.SupertrendBaseMult = 5.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, validateStrategy(cfg))
		})
	}
}
