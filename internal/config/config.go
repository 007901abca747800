package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string         `mapstructure:"environment"`
	LogLevel    string         `mapstructure:"log_level"`
	Server      ServerConfig   `mapstructure:"server"`
	Database    DatabaseConfig `mapstructure:"database"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Telegram    TelegramConfig `mapstructure:"telegram"`
	Strategy    StrategyConfig `mapstructure:"strategy"`
	Risk        RiskConfig     `mapstructure:"risk"`
	Paper       PaperConfig    `mapstructure:"paper"`
	Security    SecurityConfig `mapstructure:"security"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// StrategyConfig enumerates every recognized tuning knob of the signal
// builder and the indicator engine. An unrecognized option is a
// construction-time error, not a silently ignored key.
type StrategyConfig struct {
	MinRiskReward      float64 `mapstructure:"min_risk_reward"`
	StopLossPct        float64 `mapstructure:"stop_loss_pct"`
	ProfitTargetPct    float64 `mapstructure:"profit_target_pct"`
	RiskPerTradePct    float64 `mapstructure:"risk_per_trade_pct"`
	AccountSize        float64 `mapstructure:"account_size"`
	MinCandles         int     `mapstructure:"min_candles"`
	ATRPeriod          int     `mapstructure:"atr_period"`
	SupertrendBaseMult float64 `mapstructure:"supertrend_base_multiplier"`
	SupertrendTraining int     `mapstructure:"supertrend_training_period"`
	TrendLenThreshold  int     `mapstructure:"trend_length_threshold"`
	RunHistoryCap      int     `mapstructure:"run_history_cap"`
}

// RiskConfig governs the live execution gate.
type RiskConfig struct {
	MaxPositionPct          float64 `mapstructure:"max_position_pct"`
	MaxTotalExposurePct     float64 `mapstructure:"max_total_exposure_pct"`
	ManualApprovalCount     int     `mapstructure:"manual_approval_count"`
	AutoTradingEnabled      bool    `mapstructure:"auto_trading_enabled"`
	CircuitBreakerThreshold float64 `mapstructure:"circuit_breaker_threshold"`
	CircuitBreakerWindow    string  `mapstructure:"circuit_breaker_window"`
	LargeOrderPct           float64 `mapstructure:"large_order_pct"`
}

// PaperConfig governs the simulated portfolio and its lighter-weight
// risk manager.
type PaperConfig struct {
	StartingCapital  float64 `mapstructure:"starting_capital"`
	MaxPositionPct   float64 `mapstructure:"max_position_pct"`
	MaxExposurePct   float64 `mapstructure:"max_exposure_pct"`
	MaxOpenPositions int     `mapstructure:"max_open_positions"`
	DailyLossPct     float64 `mapstructure:"daily_loss_pct"`
	MaxDrawdownPct   float64 `mapstructure:"max_drawdown_pct"`
	MaxHoldingDays   int     `mapstructure:"max_holding_days"`
}

type SecurityConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" json:"-" yaml:"-"`
	JWTExpiry string `mapstructure:"jwt_expiry"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv("security.jwt_secret", "JWT_SECRET"); err != nil {
		return nil, fmt.Errorf("failed to bind JWT_SECRET environment variable: %w", err)
	}
	if err := viper.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind TELEGRAM_BOT_TOKEN environment variable: %w", err)
	}

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)

	if config.Environment != "development" && config.Security.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable is required in non-development environments")
	}

	if config.Security.JWTExpiry != "" {
		if _, err := time.ParseDuration(config.Security.JWTExpiry); err != nil {
			return nil, fmt.Errorf("invalid JWT expiry duration: %w", err)
		}
	}

	if config.Risk.CircuitBreakerWindow != "" {
		if _, err := time.ParseDuration(config.Risk.CircuitBreakerWindow); err != nil {
			return nil, fmt.Errorf("invalid circuit breaker window: %w", err)
		}
	}

	if err := validateStrategy(config.Strategy); err != nil {
		return nil, err
	}

	return &config, nil
}

func validateStrategy(s StrategyConfig) error {
	if s.MinRiskReward <= 0 {
		return errors.New("strategy.min_risk_reward must be positive")
	}
	if s.StopLossPct <= 0 || s.StopLossPct >= 1 {
		return fmt.Errorf("strategy.stop_loss_pct must be in (0, 1), got %v", s.StopLossPct)
	}
	if s.ProfitTargetPct <= 0 || s.ProfitTargetPct >= 1 {
		return fmt.Errorf("strategy.profit_target_pct must be in (0, 1), got %v", s.ProfitTargetPct)
	}
	if s.SupertrendBaseMult < 1.0 || s.SupertrendBaseMult > 5.0 {
		return fmt.Errorf("strategy.supertrend_base_multiplier must be in [1, 5], got %v", s.SupertrendBaseMult)
	}
	return nil
}

func setDefaults() {
	// Environment
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Database
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "swingtrader")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.conn_max_lifetime", "300s")

	// Redis
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Telegram
	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.chat_id", 0)

	// Strategy
	viper.SetDefault("strategy.min_risk_reward", 1.5)
	viper.SetDefault("strategy.stop_loss_pct", 0.03)
	viper.SetDefault("strategy.profit_target_pct", 0.08)
	viper.SetDefault("strategy.risk_per_trade_pct", 0.01)
	viper.SetDefault("strategy.account_size", 100000.0)
	viper.SetDefault("strategy.min_candles", 50)
	viper.SetDefault("strategy.atr_period", 10)
	viper.SetDefault("strategy.supertrend_base_multiplier", 2.5)
	viper.SetDefault("strategy.supertrend_training_period", 50)
	viper.SetDefault("strategy.trend_length_threshold", 5)
	viper.SetDefault("strategy.run_history_cap", 20)

	// Risk gate
	viper.SetDefault("risk.max_position_pct", 0.10)
	viper.SetDefault("risk.max_total_exposure_pct", 0.50)
	viper.SetDefault("risk.manual_approval_count", 30)
	viper.SetDefault("risk.auto_trading_enabled", false)
	viper.SetDefault("risk.circuit_breaker_threshold", 0.5)
	viper.SetDefault("risk.circuit_breaker_window", "1h")
	viper.SetDefault("risk.large_order_pct", 0.05)

	// Paper trading
	viper.SetDefault("paper.starting_capital", 100000.0)
	viper.SetDefault("paper.max_position_pct", 0.10)
	viper.SetDefault("paper.max_exposure_pct", 0.60)
	viper.SetDefault("paper.max_open_positions", 10)
	viper.SetDefault("paper.daily_loss_pct", 0.03)
	viper.SetDefault("paper.max_drawdown_pct", 0.15)
	viper.SetDefault("paper.max_holding_days", 20)

	// Security
	viper.SetDefault("security.jwt_secret", "")
	viper.SetDefault("security.jwt_expiry", "24h")
}
