package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/set-night/questboard/internal/domain"
	"github.com/set-night/questboard/internal/repository"
)

// ClaimService enforces exactly-once reward issuance. The unique
// (task, user) claim constraint is the correctness anchor: the claim insert,
// the participant counter increment, the balance credit and the referral
// fan-out all commit together or not at all.
type ClaimService struct {
	store       repository.Store
	eligibility *EligibilityService
	referrals   *ReferralService
}

func NewClaimService(store repository.Store, eligibility *EligibilityService, referrals *ReferralService) *ClaimService {
	return &ClaimService{store: store, eligibility: eligibility, referrals: referrals}
}

// ClaimResult describes an accepted claim.
type ClaimResult struct {
	Claim      *domain.Claim
	TaskTitle  string
	NewBalance decimal.Decimal
	Payouts    []domain.ReferralPayout
}

// Claim settles a task reward for the user. Error values:
// ErrTaskAlreadyDone, ErrRequirementNotMet, ErrTaskCapacity (all definitive),
// or ErrSettlementFailed (transient, safe to retry — nothing was persisted).
func (s *ClaimService) Claim(ctx context.Context, telegramID, taskID int64) (*ClaimResult, error) {
	user, err := s.store.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !task.Active {
		return nil, domain.ErrTaskNotFound
	}

	// Fast path: skip the external check for repeat calls. The unique
	// constraint inside the transaction remains the authoritative guard.
	if done, err := s.store.HasClaim(ctx, taskID, user.ID); err == nil && done {
		return nil, domain.ErrTaskAlreadyDone
	}

	// Eligibility is evaluated before the transaction opens so no lock is
	// held across the remote call. Client-supplied flags are never trusted.
	if !s.eligibility.Check(ctx, user, task.Requirement()) {
		return nil, domain.ErrRequirementNotMet
	}

	result := &ClaimResult{}
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		locked, err := tx.GetTaskForUpdate(ctx, taskID)
		if err != nil {
			return fmt.Errorf("lock task: %w", err)
		}
		if locked.Full() {
			return domain.ErrTaskCapacity
		}

		claim := &domain.Claim{
			ID:        uuid.New(),
			TaskID:    taskID,
			UserID:    user.ID,
			Reward:    locked.Reward,
			ClaimedAt: time.Now(),
		}
		if err := tx.CreateClaim(ctx, claim); err != nil {
			return err
		}
		if err := tx.IncrementTaskParticipants(ctx, taskID); err != nil {
			return err
		}

		newBalance, err := tx.AddToBalance(ctx, user.ID, locked.Reward)
		if err != nil {
			return fmt.Errorf("credit reward: %w", err)
		}
		if err := tx.CreateTransaction(ctx, &domain.Transaction{
			UserID:      user.ID,
			Amount:      locked.Reward,
			TxType:      domain.TxTypeCredit,
			Description: fmt.Sprintf("Task reward: %s", locked.Title),
		}); err != nil {
			return fmt.Errorf("record reward transaction: %w", err)
		}

		payouts, err := s.referrals.Settle(ctx, tx, claim)
		if err != nil {
			return fmt.Errorf("referral fan-out: %w", err)
		}

		result.Claim = claim
		result.TaskTitle = locked.Title
		result.NewBalance = newBalance
		result.Payouts = payouts
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTaskAlreadyDone),
			errors.Is(err, domain.ErrTaskCapacity):
			return nil, err
		default:
			// Infrastructure failure mid-settlement: everything rolled
			// back, the caller may retry.
			return nil, fmt.Errorf("%w: %v", domain.ErrSettlementFailed, err)
		}
	}
	return result, nil
}
