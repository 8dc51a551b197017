package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Claim records that a user completed a task and received its reward.
// At most one claim exists per (task, user) pair; rows are never mutated
// or deleted.
type Claim struct {
	ID        uuid.UUID
	TaskID    int64
	UserID    int64
	Reward    decimal.Decimal
	ClaimedAt time.Time
}
