package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/set-night/questboard/internal/domain"
)

// Store is the persistence boundary for the reward system. Two
// implementations exist: PostgresStore for production and MemoryStore for
// tests and local development.
//
// InTx runs fn against a transactional view of the store. All writes made by
// fn become visible atomically on success and are discarded if fn returns an
// error. Claim settlement relies on this being all-or-nothing.
type Store interface {
	InTx(ctx context.Context, fn func(Store) error) error

	// Users
	CreateUser(ctx context.Context, u *domain.User) (*domain.User, error)
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error)
	GetUserByReferralCode(ctx context.Context, code string) (*domain.User, error)
	GetUserForUpdate(ctx context.Context, id int64) (*domain.User, error)
	SetUserWallet(ctx context.Context, id int64, address string) error

	// AddToBalance applies a signed delta atomically and returns the new
	// balance. A delta that would take the balance negative fails with
	// domain.ErrInsufficientBalance and leaves the row untouched.
	AddToBalance(ctx context.Context, userID int64, delta decimal.Decimal) (decimal.Decimal, error)

	// Tasks
	CreateTask(ctx context.Context, t *domain.Task) (*domain.Task, error)
	GetTask(ctx context.Context, id int64) (*domain.Task, error)
	GetTaskForUpdate(ctx context.Context, id int64) (*domain.Task, error)
	ListTasks(ctx context.Context, taskType *domain.TaskType) ([]domain.Task, error)
	IncrementTaskParticipants(ctx context.Context, id int64) error
	SetTaskActive(ctx context.Context, id int64, active bool) error

	// Claims
	CreateClaim(ctx context.Context, c *domain.Claim) error
	HasClaim(ctx context.Context, taskID, userID int64) (bool, error)
	CountClaims(ctx context.Context, taskID int64) (int, error)

	// Referrals
	CreateReferralEdge(ctx context.Context, e *domain.ReferralEdge) error
	ReferralAncestors(ctx context.Context, userID int64) ([]domain.ReferralEdge, error)
	ReferralStats(ctx context.Context, referrerID int64) (*domain.ReferralStats, error)
	CreateReferralPayout(ctx context.Context, p *domain.ReferralPayout) error
	ListReferralPayouts(ctx context.Context, claimID uuid.UUID) ([]domain.ReferralPayout, error)

	// Transactions
	CreateTransaction(ctx context.Context, t *domain.Transaction) error
	ListTransactions(ctx context.Context, userID int64) ([]domain.Transaction, error)
}
