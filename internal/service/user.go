package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/set-night/questboard/internal/domain"
	"github.com/set-night/questboard/internal/repository"
)

type UserService struct {
	store     repository.Store
	referrals *ReferralService
}

func NewUserService(store repository.Store, referrals *ReferralService) *UserService {
	return &UserService{store: store, referrals: referrals}
}

// FindOrCreate registers the Telegram user on first contact. A valid
// referral code links the new user into the inviter's chain; an unknown code
// is ignored rather than rejected, matching how deep links behave.
func (s *UserService) FindOrCreate(ctx context.Context, telegramID int64, username, referralCode string) (*domain.User, bool, error) {
	user, err := s.store.GetUserByTelegramID(ctx, telegramID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, false, fmt.Errorf("get user: %w", err)
	}

	code, err := s.referrals.GenerateUniqueCode(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("generate referral code: %w", err)
	}

	var referrerID *int64
	if referralCode != "" {
		referrer, err := s.store.GetUserByReferralCode(ctx, referralCode)
		if err == nil {
			referrerID = &referrer.ID
		}
	}

	var created *domain.User
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		created, err = tx.CreateUser(ctx, &domain.User{
			TelegramID:   telegramID,
			Username:     username,
			ReferralCode: code,
			ReferredByID: referrerID,
		})
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		if referrerID != nil {
			if err := s.referrals.BuildEdges(ctx, tx, created.ID, *referrerID); err != nil {
				return fmt.Errorf("build referral edges: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

func (s *UserService) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	return s.store.GetUserByTelegramID(ctx, telegramID)
}

// LinkWallet binds the TON wallet address used for token-holding checks.
func (s *UserService) LinkWallet(ctx context.Context, telegramID int64, address string) error {
	user, err := s.store.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return err
	}
	return s.store.SetUserWallet(ctx, user.ID, address)
}
