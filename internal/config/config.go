package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Core
	BotToken    string `env:"BOT_TOKEN,required"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	// TON indexer
	TonAPIURL string `env:"TONAPI_URL" envDefault:"https://tonapi.io"`
	TonAPIKey string `env:"TONAPI_KEY"`

	// Admin
	AdminIDs  []int64 `env:"ADMIN_IDS" envSeparator:","`
	JWTSecret string  `env:"JWT_SECRET,required"`

	// Referral program: percentage paid to the ancestor at each level,
	// index 0 = level 1. The slice length bounds the fan-out depth.
	ReferralPercents []int64 `env:"REFERRAL_LEVEL_PERCENTS" envSeparator:"," envDefault:"10,5,3,3,2"`

	// Server
	Port int `env:"PORT" envDefault:"3000"`

	// Telegram logging
	LogTelegramChatID    int64 `env:"LOG_TELEGRAM_CHAT_ID"`
	LogTopicError        int   `env:"LOG_TOPIC_ERROR"`
	LogTopicRegistration int   `env:"LOG_TOPIC_REGISTRATION"`
	LogTopicClaim        int   `env:"LOG_TOPIC_CLAIM"`
	LogTopicBalance      int   `env:"LOG_TOPIC_BALANCE"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	for _, p := range cfg.ReferralPercents {
		if p < 0 || p > 100 {
			return nil, fmt.Errorf("referral percent out of range: %d", p)
		}
	}
	return cfg, nil
}

func (c *Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}
