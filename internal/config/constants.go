package config

import "time"

const (
	// Referral codes
	ReferralCodeLength  = 6
	ReferralCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	// Payout amounts are truncated to this many decimal places. A single
	// rounding rule keeps settlement deterministic across retries.
	PayoutScale = 2

	// External check timeouts
	MembershipCheckTimeout = 10 * time.Second
	TokenCheckTimeout      = 10 * time.Second

	// HTTP server
	ReadTimeout     = 10 * time.Second
	WriteTimeout    = 30 * time.Second
	ShutdownTimeout = 10 * time.Second

	// Admin token lifetime
	AdminTokenTTL = 24 * time.Hour

	// Telegram limits
	MaxTelegramMessageLen = 4096
)
