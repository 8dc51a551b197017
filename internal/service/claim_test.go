package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/questboard/internal/domain"
	"github.com/set-night/questboard/internal/repository"
)

type claimEnv struct {
	store     *repository.MemoryStore
	users     *UserService
	referrals *ReferralService
	claims    *ClaimService
}

func newClaimEnv(member bool) *claimEnv {
	store := repository.NewMemoryStore()
	referrals := NewReferralService(store, []int64{10, 5, 3, 3, 2})
	eligibility := NewEligibilityService(stubMembership{member: member}, stubJettons{})
	return &claimEnv{
		store:     store,
		users:     NewUserService(store, referrals),
		referrals: referrals,
		claims:    NewClaimService(store, eligibility, referrals),
	}
}

func (e *claimEnv) addChannelTask(t *testing.T, reward int64, maxParticipants *int) *domain.Task {
	t.Helper()
	task, err := e.store.CreateTask(context.Background(), &domain.Task{
		Type:            domain.TaskTypeChannel,
		Title:           "Join the channel",
		Reward:          decimal.NewFromInt(reward),
		MaxParticipants: maxParticipants,
		ChannelUsername: "@news",
		Active:          true,
	})
	require.NoError(t, err)
	return task
}

func (e *claimEnv) register(t *testing.T, telegramID int64, referralCode string) *domain.User {
	t.Helper()
	user, _, err := e.users.FindOrCreate(context.Background(), telegramID, fmt.Sprintf("user%d", telegramID), referralCode)
	require.NoError(t, err)
	return user
}

func TestClaimCreditsRewardExactlyOnce(t *testing.T) {
	env := newClaimEnv(true)
	ctx := context.Background()
	task := env.addChannelTask(t, 100, nil)
	user := env.register(t, 1001, "")

	result, err := env.claims.Claim(ctx, user.TelegramID, task.ID)
	require.NoError(t, err)
	assert.True(t, result.NewBalance.Equal(decimal.NewFromInt(100)))
	assert.True(t, result.Claim.Reward.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, "Join the channel", result.TaskTitle)

	_, err = env.claims.Claim(ctx, user.TelegramID, task.ID)
	assert.ErrorIs(t, err, domain.ErrTaskAlreadyDone)

	fresh, err := env.store.GetUserByTelegramID(ctx, user.TelegramID)
	require.NoError(t, err)
	assert.True(t, fresh.Balance.Equal(decimal.NewFromInt(100)))

	txs, err := env.store.ListTransactions(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, domain.TxTypeCredit, txs[0].TxType)

	updated, err := env.store.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.CurrentParticipants)
}

func TestClaimConcurrentSameUser(t *testing.T) {
	env := newClaimEnv(true)
	ctx := context.Background()
	task := env.addChannelTask(t, 100, nil)
	user := env.register(t, 1001, "")

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.claims.Claim(ctx, user.TelegramID, task.ID)
		}(i)
	}
	wg.Wait()

	var accepted int
	for _, err := range errs {
		if err == nil {
			accepted++
		} else {
			assert.ErrorIs(t, err, domain.ErrTaskAlreadyDone)
		}
	}
	assert.Equal(t, 1, accepted)

	fresh, err := env.store.GetUserByTelegramID(ctx, user.TelegramID)
	require.NoError(t, err)
	assert.True(t, fresh.Balance.Equal(decimal.NewFromInt(100)), "balance credited more than once: %s", fresh.Balance)
}

func TestClaimCapacityUnderContention(t *testing.T) {
	env := newClaimEnv(true)
	ctx := context.Background()
	limit := 3
	task := env.addChannelTask(t, 10, &limit)

	const users = 10
	for i := 0; i < users; i++ {
		env.register(t, int64(2000+i), "")
	}

	errs := make([]error, users)
	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.claims.Claim(ctx, int64(2000+i), task.ID)
		}(i)
	}
	wg.Wait()

	var accepted int
	for _, err := range errs {
		if err == nil {
			accepted++
		} else {
			assert.ErrorIs(t, err, domain.ErrTaskCapacity)
		}
	}
	assert.Equal(t, limit, accepted)

	count, err := env.store.CountClaims(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, limit, count)
}

func TestClaimRequirementNotMetLeavesNoTrace(t *testing.T) {
	env := newClaimEnv(false)
	ctx := context.Background()
	task := env.addChannelTask(t, 100, nil)
	user := env.register(t, 1001, "")

	_, err := env.claims.Claim(ctx, user.TelegramID, task.ID)
	assert.ErrorIs(t, err, domain.ErrRequirementNotMet)

	fresh, err := env.store.GetUserByTelegramID(ctx, user.TelegramID)
	require.NoError(t, err)
	assert.True(t, fresh.Balance.IsZero())

	done, err := env.store.HasClaim(ctx, task.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, done)

	updated, err := env.store.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.CurrentParticipants)
}

func TestClaimInactiveTask(t *testing.T) {
	env := newClaimEnv(true)
	ctx := context.Background()
	task := env.addChannelTask(t, 100, nil)
	user := env.register(t, 1001, "")
	require.NoError(t, env.store.SetTaskActive(ctx, task.ID, false))

	_, err := env.claims.Claim(ctx, user.TelegramID, task.ID)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestClaimReferralFanOut(t *testing.T) {
	env := newClaimEnv(true)
	ctx := context.Background()
	task := env.addChannelTask(t, 100, nil)

	grandparent := env.register(t, 3001, "")
	parent := env.register(t, 3002, grandparent.ReferralCode)
	claimant := env.register(t, 3003, parent.ReferralCode)

	result, err := env.claims.Claim(ctx, claimant.TelegramID, task.ID)
	require.NoError(t, err)
	assert.True(t, result.NewBalance.Equal(decimal.NewFromInt(100)))

	require.Len(t, result.Payouts, 2)
	assert.Equal(t, 1, result.Payouts[0].Level)
	assert.True(t, result.Payouts[0].Amount.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, 2, result.Payouts[1].Level)
	assert.True(t, result.Payouts[1].Amount.Equal(decimal.NewFromInt(5)))

	p, err := env.store.GetUserByTelegramID(ctx, parent.TelegramID)
	require.NoError(t, err)
	assert.True(t, p.Balance.Equal(decimal.NewFromInt(10)))

	g, err := env.store.GetUserByTelegramID(ctx, grandparent.TelegramID)
	require.NoError(t, err)
	assert.True(t, g.Balance.Equal(decimal.NewFromInt(5)))

	persisted, err := env.store.ListReferralPayouts(ctx, result.Claim.ID)
	require.NoError(t, err)
	assert.Len(t, persisted, 2)
}

func TestClaimTokenTask(t *testing.T) {
	env := newClaimEnv(false)
	ctx := context.Background()
	claims := NewClaimService(env.store,
		NewEligibilityService(stubMembership{}, stubJettons{has: true}), env.referrals)

	task, err := env.store.CreateTask(ctx, &domain.Task{
		Type:         domain.TaskTypeToken,
		Title:        "Hold the jetton",
		Reward:       decimal.NewFromInt(50),
		TokenAddress: "EQjetton",
		TokenAmount:  decimal.NewFromInt(100),
		Active:       true,
	})
	require.NoError(t, err)

	// Without a linked wallet the holding cannot be verified.
	user := env.register(t, 4001, "")
	_, err = claims.Claim(ctx, user.TelegramID, task.ID)
	assert.ErrorIs(t, err, domain.ErrRequirementNotMet)

	require.NoError(t, env.users.LinkWallet(ctx, user.TelegramID, "EQwallet"))

	result, err := claims.Claim(ctx, user.TelegramID, task.ID)
	require.NoError(t, err)
	assert.True(t, result.NewBalance.Equal(decimal.NewFromInt(50)))

	_, err = claims.Claim(ctx, user.TelegramID, task.ID)
	assert.ErrorIs(t, err, domain.ErrTaskAlreadyDone)

	fresh, err := env.store.GetUserByTelegramID(ctx, user.TelegramID)
	require.NoError(t, err)
	assert.True(t, fresh.Balance.Equal(decimal.NewFromInt(50)))
}

func TestClaimWrapsInfrastructureErrors(t *testing.T) {
	env := newClaimEnv(true)
	ctx := context.Background()
	task := env.addChannelTask(t, 100, nil)
	user := env.register(t, 1001, "")

	// A store that fails mid-settlement must surface ErrSettlementFailed,
	// not the raw infrastructure error.
	failing := &failingStore{Store: env.store}
	claims := NewClaimService(failing, NewEligibilityService(stubMembership{member: true}, stubJettons{}), env.referrals)

	_, err := claims.Claim(ctx, user.TelegramID, task.ID)
	assert.ErrorIs(t, err, domain.ErrSettlementFailed)

	fresh, err := env.store.GetUserByTelegramID(ctx, user.TelegramID)
	require.NoError(t, err)
	assert.True(t, fresh.Balance.IsZero(), "failed settlement must not credit")
}

// failingStore delegates everything but aborts transactions.
type failingStore struct {
	repository.Store
}

func (f *failingStore) InTx(ctx context.Context, fn func(repository.Store) error) error {
	return f.Store.InTx(ctx, func(tx repository.Store) error {
		if err := fn(tx); err != nil {
			return err
		}
		return errors.New("connection reset")
	})
}
