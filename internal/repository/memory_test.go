package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/questboard/internal/domain"
)

func TestMemoryStoreTxRollsBackOnError(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	user, err := store.CreateUser(ctx, &domain.User{TelegramID: 1})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = store.InTx(ctx, func(tx Store) error {
		if _, err := tx.AddToBalance(ctx, user.ID, decimal.NewFromInt(50)); err != nil {
			return err
		}
		if err := tx.CreateTransaction(ctx, &domain.Transaction{UserID: user.ID, Amount: decimal.NewFromInt(50), TxType: domain.TxTypeCredit}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	fresh, err := store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, fresh.Balance.IsZero(), "aborted tx must not persist")

	txs, err := store.ListTransactions(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestMemoryStoreTxCommits(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	user, err := store.CreateUser(ctx, &domain.User{TelegramID: 1})
	require.NoError(t, err)

	err = store.InTx(ctx, func(tx Store) error {
		_, err := tx.AddToBalance(ctx, user.ID, decimal.NewFromInt(50))
		return err
	})
	require.NoError(t, err)

	fresh, err := store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, fresh.Balance.Equal(decimal.NewFromInt(50)))
}

func TestMemoryStoreDuplicateClaimRejected(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	claim := &domain.Claim{ID: uuid.New(), TaskID: 1, UserID: 2, Reward: decimal.NewFromInt(10)}
	require.NoError(t, store.CreateClaim(ctx, claim))

	dup := &domain.Claim{ID: uuid.New(), TaskID: 1, UserID: 2, Reward: decimal.NewFromInt(10)}
	assert.ErrorIs(t, store.CreateClaim(ctx, dup), domain.ErrTaskAlreadyDone)

	done, err := store.HasClaim(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestMemoryStoreNegativeBalanceRejected(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	user, err := store.CreateUser(ctx, &domain.User{TelegramID: 1})
	require.NoError(t, err)

	_, err = store.AddToBalance(ctx, user.ID, decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
}
