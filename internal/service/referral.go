package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/set-night/questboard/internal/config"
	"github.com/set-night/questboard/internal/domain"
	"github.com/set-night/questboard/internal/repository"
)

// ReferralService owns the invite graph: code generation, edge building at
// registration, payout fan-out during settlement, and downline stats.
type ReferralService struct {
	store repository.Store

	// percents[0] is the level-1 percentage. Length bounds fan-out depth.
	percents []int64
}

func NewReferralService(store repository.Store, percents []int64) *ReferralService {
	return &ReferralService{store: store, percents: percents}
}

// MaxLevel is the deepest ancestor level that earns payouts.
func (s *ReferralService) MaxLevel() int {
	return len(s.percents)
}

func generateReferralCode() (string, error) {
	code := make([]byte, config.ReferralCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(config.ReferralCodeCharset))))
		if err != nil {
			return "", fmt.Errorf("random int: %w", err)
		}
		code[i] = config.ReferralCodeCharset[n.Int64()]
	}
	return string(code), nil
}

// GenerateUniqueCode draws codes until one is unused.
func (s *ReferralService) GenerateUniqueCode(ctx context.Context) (string, error) {
	for i := 0; i < 10; i++ {
		code, err := generateReferralCode()
		if err != nil {
			return "", err
		}
		_, err = s.store.GetUserByReferralCode(ctx, code)
		if errors.Is(err, domain.ErrUserNotFound) {
			return code, nil
		}
		if err != nil {
			return "", fmt.Errorf("check referral code: %w", err)
		}
	}
	return "", fmt.Errorf("failed to generate unique referral code after 10 attempts")
}

// BuildEdges flattens the new user's ancestor chain: a direct edge to the
// referrer at level 1, plus one edge per ancestor the referrer already has,
// shifted one level down, capped at MaxLevel. Called once inside the
// registration transaction; edges are read-only afterwards.
func (s *ReferralService) BuildEdges(ctx context.Context, tx repository.Store, userID, referrerID int64) error {
	if err := tx.CreateReferralEdge(ctx, &domain.ReferralEdge{
		UserID:     userID,
		ReferrerID: referrerID,
		Level:      1,
	}); err != nil {
		return err
	}

	ancestors, err := tx.ReferralAncestors(ctx, referrerID)
	if err != nil {
		return err
	}
	for _, a := range ancestors {
		level := a.Level + 1
		if level > s.MaxLevel() {
			break
		}
		if err := tx.CreateReferralEdge(ctx, &domain.ReferralEdge{
			UserID:     userID,
			ReferrerID: a.ReferrerID,
			Level:      level,
		}); err != nil {
			return err
		}
	}
	return nil
}

// PayoutAmount computes one ancestor's share of a reward. Truncation to
// PayoutScale is the single rounding rule; repeated settlements of the same
// inputs always produce the same amounts.
func (s *ReferralService) PayoutAmount(reward decimal.Decimal, level int) decimal.Decimal {
	if level < 1 || level > len(s.percents) {
		return decimal.Zero
	}
	pct := decimal.NewFromInt(s.percents[level-1])
	return reward.Mul(pct).Div(decimal.NewFromInt(100)).RoundDown(config.PayoutScale)
}

// Settle fans a claimed reward out to the claimant's ancestors. It must run
// inside the same transaction as the claim insert: the unique claim
// constraint is what makes the fan-out exactly-once.
func (s *ReferralService) Settle(ctx context.Context, tx repository.Store, claim *domain.Claim) ([]domain.ReferralPayout, error) {
	ancestors, err := tx.ReferralAncestors(ctx, claim.UserID)
	if err != nil {
		return nil, fmt.Errorf("load ancestors: %w", err)
	}

	var payouts []domain.ReferralPayout
	for _, edge := range ancestors {
		if edge.Level > s.MaxLevel() {
			continue
		}
		amount := s.PayoutAmount(claim.Reward, edge.Level)
		if amount.IsZero() {
			continue
		}

		if _, err := tx.AddToBalance(ctx, edge.ReferrerID, amount); err != nil {
			return nil, fmt.Errorf("credit referrer %d: %w", edge.ReferrerID, err)
		}
		if err := tx.CreateTransaction(ctx, &domain.Transaction{
			UserID:      edge.ReferrerID,
			Amount:      amount,
			TxType:      domain.TxTypeCredit,
			Description: fmt.Sprintf("Referral reward (level %d) for task %d", edge.Level, claim.TaskID),
		}); err != nil {
			return nil, fmt.Errorf("record referral transaction: %w", err)
		}

		payout := domain.ReferralPayout{
			ID:           uuid.New(),
			ClaimID:      claim.ID,
			ReferrerID:   edge.ReferrerID,
			SourceUserID: claim.UserID,
			Level:        edge.Level,
			Amount:       amount,
			CreatedAt:    time.Now(),
		}
		if err := tx.CreateReferralPayout(ctx, &payout); err != nil {
			return nil, fmt.Errorf("create referral payout: %w", err)
		}
		payouts = append(payouts, payout)
	}
	return payouts, nil
}

// Stats returns a referrer's downline counts and earned rewards per level,
// keyed for every configured level so the client gets explicit zeroes.
func (s *ReferralService) Stats(ctx context.Context, telegramID int64) (*domain.ReferralStats, error) {
	user, err := s.store.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	stats, err := s.store.ReferralStats(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("referral stats: %w", err)
	}
	for level := 1; level <= s.MaxLevel(); level++ {
		if _, ok := stats.CountByLevel[level]; !ok {
			stats.CountByLevel[level] = 0
		}
		if _, ok := stats.RewardByLevel[level]; !ok {
			stats.RewardByLevel[level] = decimal.Zero
		}
	}
	return stats, nil
}
