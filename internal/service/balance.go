package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/set-night/questboard/internal/domain"
	"github.com/set-night/questboard/internal/repository"
)

// BalanceService is the only writer of user balances outside claim
// settlement. Every mutation lands together with its audit transaction row
// or not at all.
type BalanceService struct {
	store repository.Store
}

func NewBalanceService(store repository.Store) *BalanceService {
	return &BalanceService{store: store}
}

func (s *BalanceService) Get(ctx context.Context, telegramID int64) (decimal.Decimal, error) {
	user, err := s.store.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return decimal.Zero, err
	}
	return user.Balance, nil
}

// Credit adds amount to the user's balance. Zero and negative amounts are
// rejected with ErrInvalidAmount.
func (s *BalanceService) Credit(ctx context.Context, telegramID int64, amount decimal.Decimal, description string) (decimal.Decimal, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, domain.ErrInvalidAmount
	}

	user, err := s.store.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return decimal.Zero, err
	}

	var newBalance decimal.Decimal
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		newBalance, err = tx.AddToBalance(ctx, user.ID, amount)
		if err != nil {
			return fmt.Errorf("update balance: %w", err)
		}
		return tx.CreateTransaction(ctx, &domain.Transaction{
			UserID:      user.ID,
			Amount:      amount,
			TxType:      domain.TxTypeCredit,
			Description: description,
		})
	})
	if err != nil {
		return decimal.Zero, err
	}
	return newBalance, nil
}

// Debit subtracts amount from the user's balance. A debit exceeding the
// current balance fails with ErrInsufficientBalance and mutates nothing.
func (s *BalanceService) Debit(ctx context.Context, telegramID int64, amount decimal.Decimal, description string) (decimal.Decimal, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, domain.ErrInvalidAmount
	}

	user, err := s.store.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return decimal.Zero, err
	}

	var newBalance decimal.Decimal
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		// Lock the row so the balance check and the write see the same value.
		locked, err := tx.GetUserForUpdate(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("lock user: %w", err)
		}
		if locked.Balance.LessThan(amount) {
			return domain.ErrInsufficientBalance
		}

		newBalance, err = tx.AddToBalance(ctx, user.ID, amount.Neg())
		if err != nil {
			return fmt.Errorf("update balance: %w", err)
		}
		return tx.CreateTransaction(ctx, &domain.Transaction{
			UserID:      user.ID,
			Amount:      amount.Neg(),
			TxType:      domain.TxTypeDebit,
			Description: description,
		})
	})
	if err != nil {
		return decimal.Zero, err
	}
	return newBalance, nil
}

func (s *BalanceService) Transactions(ctx context.Context, telegramID int64) ([]domain.Transaction, error) {
	user, err := s.store.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	return s.store.ListTransactions(ctx, user.ID)
}
