package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	DSN string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type FeedConfig struct {
	RestURL string
	Symbols []string
}

type SweepConfig struct {
	Interval   time.Duration
	MaxDealAge time.Duration
}

type RatingConfig struct {
	ReconcileInterval time.Duration
}

type TelegramConfig struct {
	Token  string
	ChatID string
}

type LoggingConfig struct {
	Level string
}

type AppConfig struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Feed     FeedConfig
	Sweep    SweepConfig
	Rating   RatingConfig
	Telegram TelegramConfig
	Logging  LoggingConfig
}

func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "3000")
	viper.SetDefault("DATABASE_DSN", "data/arena.db")
	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("FEED_REST_URL", "https://api.binance.com")
	viper.SetDefault("FEED_SYMBOLS", "BTCUSDT,ETHUSDT,SOLUSDT")
	viper.SetDefault("SWEEP_INTERVAL", "5m")
	viper.SetDefault("MAX_DEAL_AGE", "48h")
	viper.SetDefault("RANK_RECONCILE_INTERVAL", "1h")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("TELEGRAM_TOKEN", "")
	viper.SetDefault("TELEGRAM_CHAT_ID", "")

	sweepInterval, err := time.ParseDuration(viper.GetString("SWEEP_INTERVAL"))
	if err != nil {
		return nil, fmt.Errorf("invalid sweep interval: %w", err)
	}
	maxAge, err := time.ParseDuration(viper.GetString("MAX_DEAL_AGE"))
	if err != nil {
		return nil, fmt.Errorf("invalid max deal age: %w", err)
	}
	reconcileInterval, err := time.ParseDuration(viper.GetString("RANK_RECONCILE_INTERVAL"))
	if err != nil {
		return nil, fmt.Errorf("invalid rank reconcile interval: %w", err)
	}

	cfg := &AppConfig{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
		},
		Database: DatabaseConfig{
			DSN: viper.GetString("DATABASE_DSN"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Feed: FeedConfig{
			RestURL: viper.GetString("FEED_REST_URL"),
			Symbols: splitSymbols(viper.GetString("FEED_SYMBOLS")),
		},
		Sweep: SweepConfig{
			Interval:   sweepInterval,
			MaxDealAge: maxAge,
		},
		Rating: RatingConfig{
			ReconcileInterval: reconcileInterval,
		},
		Telegram: TelegramConfig{
			Token:  viper.GetString("TELEGRAM_TOKEN"),
			ChatID: viper.GetString("TELEGRAM_CHAT_ID"),
		},
		Logging: LoggingConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
	}

	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("DATABASE_DSN is required")
	}
	if len(cfg.Feed.Symbols) == 0 {
		return nil, fmt.Errorf("FEED_SYMBOLS is required")
	}

	return cfg, nil
}

func splitSymbols(raw string) []string {
	parts := strings.Split(raw, ",")
	symbols := make([]string, 0, len(parts))
	for _, part := range parts {
		if s := strings.ToUpper(strings.TrimSpace(part)); s != "" {
			symbols = append(symbols, s)
		}
	}
	return symbols
}
