package domain

import "errors"

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrTaskNotFound        = errors.New("task not found")
	ErrTaskAlreadyDone     = errors.New("task already completed")
	ErrTaskCapacity        = errors.New("task participant limit reached")
	ErrRequirementNotMet   = errors.New("task requirement not met")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrSettlementFailed    = errors.New("settlement failed")
)
