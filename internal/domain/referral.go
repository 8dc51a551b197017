package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReferralEdge links a user to one of their ancestors in the invite chain.
// Edges are flattened at registration up to the configured depth and are
// read-only afterwards.
type ReferralEdge struct {
	UserID     int64
	ReferrerID int64
	Level      int
}

// ReferralPayout is one ancestor's share of a claimed reward. One row per
// ancestor per settlement, append-only.
type ReferralPayout struct {
	ID           uuid.UUID
	ClaimID      uuid.UUID
	ReferrerID   int64
	SourceUserID int64
	Level        int
	Amount       decimal.Decimal
	CreatedAt    time.Time
}

// ReferralStats aggregates a referrer's downline for display.
type ReferralStats struct {
	TotalCount    int
	CountByLevel  map[int]int
	RewardByLevel map[int]decimal.Decimal
}
