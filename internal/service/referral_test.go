package service

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/questboard/internal/config"
	"github.com/set-night/questboard/internal/domain"
	"github.com/set-night/questboard/internal/repository"
)

func TestPayoutAmount(t *testing.T) {
	svc := NewReferralService(repository.NewMemoryStore(), []int64{10, 5, 3, 3, 2})

	cases := []struct {
		name   string
		reward string
		level  int
		want   string
	}{
		{"level 1", "100", 1, "10"},
		{"level 2", "100", 2, "5"},
		{"level 5", "100", 5, "2"},
		{"truncates toward zero", "0.33", 1, "0.03"},
		{"sub-cent payout truncates to zero", "0.09", 1, "0"},
		{"level beyond config", "100", 6, "0"},
		{"level zero", "100", 0, "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reward := decimal.RequireFromString(tc.reward)
			want := decimal.RequireFromString(tc.want)
			got := svc.PayoutAmount(reward, tc.level)
			assert.True(t, got.Equal(want), "got %s, want %s", got, want)
		})
	}
}

func TestPayoutAmountDeterministic(t *testing.T) {
	svc := NewReferralService(repository.NewMemoryStore(), []int64{10, 5, 3, 3, 2})
	reward := decimal.RequireFromString("7.77")
	first := svc.PayoutAmount(reward, 3)
	for i := 0; i < 100; i++ {
		assert.True(t, first.Equal(svc.PayoutAmount(reward, 3)))
	}
}

func TestBuildEdgesCapsDepth(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewReferralService(store, []int64{10, 5, 3, 3, 2})
	ctx := context.Background()

	// A straight chain of 8 users, each referred by the previous one. The
	// deepest user must carry exactly MaxLevel ancestor edges.
	ids := make([]int64, 8)
	for i := range ids {
		u, err := store.CreateUser(ctx, &domain.User{TelegramID: int64(100 + i)})
		require.NoError(t, err)
		ids[i] = u.ID
		if i > 0 {
			require.NoError(t, store.InTx(ctx, func(tx repository.Store) error {
				return svc.BuildEdges(ctx, tx, ids[i], ids[i-1])
			}))
		}
	}

	edges, err := store.ReferralAncestors(ctx, ids[len(ids)-1])
	require.NoError(t, err)
	require.Len(t, edges, svc.MaxLevel())
	for i, e := range edges {
		assert.Equal(t, i+1, e.Level)
		assert.Equal(t, ids[len(ids)-2-i], e.ReferrerID)
	}
}

func TestStatsFillsAllLevels(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewReferralService(store, []int64{10, 5, 3, 3, 2})
	ctx := context.Background()

	u, err := store.CreateUser(ctx, &domain.User{TelegramID: 500})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, u.TelegramID)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalCount)
	require.Len(t, stats.CountByLevel, 5)
	require.Len(t, stats.RewardByLevel, 5)
	for level := 1; level <= 5; level++ {
		assert.Equal(t, 0, stats.CountByLevel[level])
		assert.True(t, stats.RewardByLevel[level].IsZero())
	}
}

func TestGenerateUniqueCode(t *testing.T) {
	svc := NewReferralService(repository.NewMemoryStore(), []int64{10})

	code, err := svc.GenerateUniqueCode(context.Background())
	require.NoError(t, err)
	assert.Len(t, code, config.ReferralCodeLength)
	for _, r := range code {
		assert.True(t, strings.ContainsRune(config.ReferralCodeCharset, r), "unexpected rune %q", r)
	}

	other, err := svc.GenerateUniqueCode(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, code, other)
}
