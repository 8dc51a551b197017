package service

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/questboard/internal/domain"
	"github.com/set-night/questboard/internal/repository"
)

func newBalanceEnv(t *testing.T) (*BalanceService, *repository.MemoryStore, *domain.User) {
	t.Helper()
	store := repository.NewMemoryStore()
	user, err := store.CreateUser(context.Background(), &domain.User{TelegramID: 777, Username: "alice"})
	require.NoError(t, err)
	return NewBalanceService(store), store, user
}

func TestCreditAndDebit(t *testing.T) {
	svc, store, user := newBalanceEnv(t)
	ctx := context.Background()

	balance, err := svc.Credit(ctx, user.TelegramID, decimal.NewFromInt(50), "Balance top-up")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(50)))

	balance, err = svc.Debit(ctx, user.TelegramID, decimal.NewFromInt(20), "Withdrawal")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(30)))

	txs, err := store.ListTransactions(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	// Newest first
	assert.Equal(t, domain.TxTypeDebit, txs[0].TxType)
	assert.True(t, txs[0].Amount.Equal(decimal.NewFromInt(-20)))
	assert.Equal(t, domain.TxTypeCredit, txs[1].TxType)
}

func TestDebitInsufficientBalance(t *testing.T) {
	svc, store, user := newBalanceEnv(t)
	ctx := context.Background()

	_, err := svc.Credit(ctx, user.TelegramID, decimal.NewFromInt(10), "Balance top-up")
	require.NoError(t, err)

	_, err = svc.Debit(ctx, user.TelegramID, decimal.NewFromInt(20), "Withdrawal")
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	balance, err := svc.Get(ctx, user.TelegramID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(10)), "failed debit must not change the balance")

	txs, err := store.ListTransactions(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 1, "failed debit must not leave a transaction row")
}

func TestNonPositiveAmountsRejected(t *testing.T) {
	svc, _, user := newBalanceEnv(t)
	ctx := context.Background()

	_, err := svc.Credit(ctx, user.TelegramID, decimal.Zero, "x")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = svc.Credit(ctx, user.TelegramID, decimal.NewFromInt(-5), "x")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = svc.Debit(ctx, user.TelegramID, decimal.Zero, "x")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestBalanceUnknownUser(t *testing.T) {
	svc, _, _ := newBalanceEnv(t)
	_, err := svc.Get(context.Background(), 999999)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestConcurrentCredits(t *testing.T) {
	svc, _, user := newBalanceEnv(t)
	ctx := context.Background()

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Credit(ctx, user.TelegramID, decimal.NewFromInt(5), "Balance top-up")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	balance, err := svc.Get(ctx, user.TelegramID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(workers*5)), "lost update: %s", balance)
}
