package service

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/set-night/questboard/internal/domain"
)

// MembershipChecker reports whether a Telegram user is subscribed to a channel.
type MembershipChecker interface {
	IsChannelMember(ctx context.Context, telegramID int64, channelUsername string) (bool, error)
}

// JettonBalanceChecker reports whether a wallet holds at least the given
// amount of a jetton. The comparison happens in base units on the checker
// side, never in floating point.
type JettonBalanceChecker interface {
	HasJettonBalance(ctx context.Context, walletAddress, tokenAddress string, minimum decimal.Decimal) (bool, error)
}

// EligibilityService evaluates task requirements at claim time. It is
// fail-closed: any transport or upstream error counts as not satisfied. It
// never mutates state and is always called before the settlement transaction
// opens.
type EligibilityService struct {
	membership MembershipChecker
	jettons    JettonBalanceChecker
}

func NewEligibilityService(membership MembershipChecker, jettons JettonBalanceChecker) *EligibilityService {
	return &EligibilityService{membership: membership, jettons: jettons}
}

// CheckSubscription is the display-oriented variant used by the client to
// render requirement state. Results must never authorize a claim; Check is
// re-evaluated inside the claim path.
func (s *EligibilityService) CheckSubscription(ctx context.Context, telegramID int64, channelUsername string) bool {
	ok, err := s.membership.IsChannelMember(ctx, telegramID, channelUsername)
	if err != nil {
		slog.Warn("membership check failed", "telegram_id", telegramID, "channel", channelUsername, "error", err)
		return false
	}
	return ok
}

// CheckTokenBalance is the display-oriented variant for token requirements.
func (s *EligibilityService) CheckTokenBalance(ctx context.Context, walletAddress, tokenAddress string, minimum decimal.Decimal) bool {
	ok, err := s.jettons.HasJettonBalance(ctx, walletAddress, tokenAddress, minimum)
	if err != nil {
		slog.Warn("token balance check failed", "wallet", walletAddress, "token", tokenAddress, "error", err)
		return false
	}
	return ok
}

func (s *EligibilityService) Check(ctx context.Context, user *domain.User, req domain.Requirement) bool {
	switch r := req.(type) {
	case domain.ChannelRequirement:
		ok, err := s.membership.IsChannelMember(ctx, user.TelegramID, r.ChannelUsername)
		if err != nil {
			slog.Warn("membership check failed", "telegram_id", user.TelegramID, "channel", r.ChannelUsername, "error", err)
			return false
		}
		return ok
	case domain.TokenRequirement:
		if !user.HasWallet() {
			return false
		}
		ok, err := s.jettons.HasJettonBalance(ctx, user.WalletAddress, r.TokenAddress, r.MinimumAmount)
		if err != nil {
			slog.Warn("token balance check failed", "wallet", user.WalletAddress, "token", r.TokenAddress, "error", err)
			return false
		}
		return ok
	default:
		return false
	}
}
