package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TaskType string

const (
	TaskTypeChannel TaskType = "CHANNEL"
	TaskTypeToken   TaskType = "TOKEN"
)

func (t TaskType) Valid() bool {
	return t == TaskTypeChannel || t == TaskTypeToken
}

// Task is immutable once published except for CurrentParticipants and Active.
// Tasks are never deleted, only deactivated.
type Task struct {
	ID                  int64
	Type                TaskType
	Title               string
	Description         string
	Reward              decimal.Decimal
	MaxParticipants     *int
	CurrentParticipants int

	// CHANNEL tasks
	ChannelUsername string
	ChannelTitle    string

	// TOKEN tasks: minimum holding of the jetton, in token units
	TokenAddress string
	TokenAmount  decimal.Decimal

	Active    bool
	CreatedAt time.Time
}

// Requirement is the external precondition a user must satisfy before the
// task reward can be claimed.
type Requirement interface {
	isRequirement()
}

type ChannelRequirement struct {
	ChannelUsername string
}

type TokenRequirement struct {
	TokenAddress  string
	MinimumAmount decimal.Decimal
}

func (ChannelRequirement) isRequirement() {}
func (TokenRequirement) isRequirement()   {}

// Requirement returns the task's precondition as a tagged variant.
func (t *Task) Requirement() Requirement {
	switch t.Type {
	case TaskTypeToken:
		return TokenRequirement{TokenAddress: t.TokenAddress, MinimumAmount: t.TokenAmount}
	default:
		return ChannelRequirement{ChannelUsername: t.ChannelUsername}
	}
}

// Full reports whether the participant cap has been reached.
func (t *Task) Full() bool {
	return t.MaxParticipants != nil && t.CurrentParticipants >= *t.MaxParticipants
}
