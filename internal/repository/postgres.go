package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/set-night/questboard/internal/domain"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx so the same query
// methods serve pooled and transactional calls.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresStore struct {
	pool *pgxpool.Pool
	db   dbtx
	inTx bool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, db: pool}
}

func (s *PostgresStore) InTx(ctx context.Context, fn func(Store) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&PostgresStore{pool: s.pool, db: tx, inTx: true}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// translateErr maps Postgres constraint violations onto domain sentinels.
func translateErr(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch {
	case pgErr.Code == "23505" && pgErr.ConstraintName == "task_claims_task_id_user_id_key":
		return domain.ErrTaskAlreadyDone
	case pgErr.Code == "23514" && pgErr.TableName == "users":
		return domain.ErrInsufficientBalance
	case pgErr.Code == "23514" && pgErr.TableName == "tasks":
		return domain.ErrTaskCapacity
	}
	return err
}

// --- users ---

const userColumns = `id, telegram_id, username, wallet_address, balance, referral_code, referred_by_id, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.TelegramID, &u.Username, &u.WalletAddress, &u.Balance,
		&u.ReferralCode, &u.ReferredByID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, u *domain.User) (*domain.User, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO users (telegram_id, username, wallet_address, referral_code, referred_by_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		u.TelegramID, u.Username, u.WalletAddress, u.ReferralCode, u.ReferredByID)
	created, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", translateErr(err))
	}
	return created, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	return scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *PostgresStore) GetUserByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	return scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE telegram_id = $1`, telegramID))
}

func (s *PostgresStore) GetUserByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	return scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE referral_code = $1`, code))
}

func (s *PostgresStore) GetUserForUpdate(ctx context.Context, id int64) (*domain.User, error) {
	return scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
}

func (s *PostgresStore) SetUserWallet(ctx context.Context, id int64, address string) error {
	tag, err := s.db.Exec(ctx, `UPDATE users SET wallet_address = $2, updated_at = now() WHERE id = $1`, id, address)
	if err != nil {
		return fmt.Errorf("set wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (s *PostgresStore) AddToBalance(ctx context.Context, userID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.db.QueryRow(ctx, `
		UPDATE users SET balance = balance + $2, updated_at = now()
		WHERE id = $1
		RETURNING balance`,
		userID, delta).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, domain.ErrUserNotFound
		}
		return decimal.Zero, translateErr(err)
	}
	return balance, nil
}

// --- tasks ---

const taskColumns = `id, type, title, description, reward, max_participants, current_participants,
	channel_username, channel_title, token_address, token_amount, active, created_at`

func scanTask(row pgx.Row) (*domain.Task, error) {
	var t domain.Task
	err := row.Scan(&t.ID, &t.Type, &t.Title, &t.Description, &t.Reward, &t.MaxParticipants,
		&t.CurrentParticipants, &t.ChannelUsername, &t.ChannelTitle, &t.TokenAddress,
		&t.TokenAmount, &t.Active, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *PostgresStore) CreateTask(ctx context.Context, t *domain.Task) (*domain.Task, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO tasks (type, title, description, reward, max_participants,
			channel_username, channel_title, token_address, token_amount, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+taskColumns,
		t.Type, t.Title, t.Description, t.Reward, t.MaxParticipants,
		t.ChannelUsername, t.ChannelTitle, t.TokenAddress, t.TokenAmount, t.Active)
	created, err := scanTask(row)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	return scanTask(s.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
}

func (s *PostgresStore) GetTaskForUpdate(ctx context.Context, id int64) (*domain.Task, error) {
	return scanTask(s.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE`, id))
}

func (s *PostgresStore) ListTasks(ctx context.Context, taskType *domain.TaskType) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE active ORDER BY id`
	args := []any{}
	if taskType != nil {
		query = `SELECT ` + taskColumns + ` FROM tasks WHERE active AND type = $1 ORDER BY id`
		args = append(args, *taskType)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *PostgresStore) IncrementTaskParticipants(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `UPDATE tasks SET current_participants = current_participants + 1 WHERE id = $1`, id)
	if err != nil {
		return translateErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (s *PostgresStore) SetTaskActive(ctx context.Context, id int64, active bool) error {
	tag, err := s.db.Exec(ctx, `UPDATE tasks SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("set task active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// --- claims ---

func (s *PostgresStore) CreateClaim(ctx context.Context, c *domain.Claim) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO task_claims (id, task_id, user_id, reward, claimed_at)
		VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.TaskID, c.UserID, c.Reward, c.ClaimedAt)
	if err != nil {
		return translateErr(err)
	}
	return nil
}

func (s *PostgresStore) HasClaim(ctx context.Context, taskID, userID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM task_claims WHERE task_id = $1 AND user_id = $2)`,
		taskID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check claim: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) CountClaims(ctx context.Context, taskID int64) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `SELECT count(*) FROM task_claims WHERE task_id = $1`, taskID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count claims: %w", err)
	}
	return n, nil
}

// --- referrals ---

func (s *PostgresStore) CreateReferralEdge(ctx context.Context, e *domain.ReferralEdge) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO referral_edges (user_id, referrer_id, level) VALUES ($1, $2, $3)`,
		e.UserID, e.ReferrerID, e.Level)
	if err != nil {
		return fmt.Errorf("create referral edge: %w", err)
	}
	return nil
}

func (s *PostgresStore) ReferralAncestors(ctx context.Context, userID int64) ([]domain.ReferralEdge, error) {
	rows, err := s.db.Query(ctx,
		`SELECT user_id, referrer_id, level FROM referral_edges WHERE user_id = $1 ORDER BY level`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("referral ancestors: %w", err)
	}
	defer rows.Close()

	var edges []domain.ReferralEdge
	for rows.Next() {
		var e domain.ReferralEdge
		if err := rows.Scan(&e.UserID, &e.ReferrerID, &e.Level); err != nil {
			return nil, fmt.Errorf("scan referral edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func (s *PostgresStore) ReferralStats(ctx context.Context, referrerID int64) (*domain.ReferralStats, error) {
	stats := &domain.ReferralStats{
		CountByLevel:  map[int]int{},
		RewardByLevel: map[int]decimal.Decimal{},
	}

	rows, err := s.db.Query(ctx,
		`SELECT level, count(*) FROM referral_edges WHERE referrer_id = $1 GROUP BY level`,
		referrerID)
	if err != nil {
		return nil, fmt.Errorf("referral counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var level, count int
		if err := rows.Scan(&level, &count); err != nil {
			return nil, fmt.Errorf("scan referral count: %w", err)
		}
		stats.CountByLevel[level] = count
		stats.TotalCount += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.Query(ctx,
		`SELECT level, coalesce(sum(amount), 0) FROM referral_payouts WHERE referrer_id = $1 GROUP BY level`,
		referrerID)
	if err != nil {
		return nil, fmt.Errorf("referral rewards: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var level int
		var amount decimal.Decimal
		if err := rows.Scan(&level, &amount); err != nil {
			return nil, fmt.Errorf("scan referral reward: %w", err)
		}
		stats.RewardByLevel[level] = amount
	}
	return stats, rows.Err()
}

func (s *PostgresStore) CreateReferralPayout(ctx context.Context, p *domain.ReferralPayout) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO referral_payouts (id, claim_id, referrer_id, source_user_id, level, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.ClaimID, p.ReferrerID, p.SourceUserID, p.Level, p.Amount, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("create referral payout: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListReferralPayouts(ctx context.Context, claimID uuid.UUID) ([]domain.ReferralPayout, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, claim_id, referrer_id, source_user_id, level, amount, created_at
		FROM referral_payouts WHERE claim_id = $1 ORDER BY level`,
		claimID)
	if err != nil {
		return nil, fmt.Errorf("list referral payouts: %w", err)
	}
	defer rows.Close()

	var payouts []domain.ReferralPayout
	for rows.Next() {
		var p domain.ReferralPayout
		if err := rows.Scan(&p.ID, &p.ClaimID, &p.ReferrerID, &p.SourceUserID, &p.Level, &p.Amount, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan referral payout: %w", err)
		}
		payouts = append(payouts, p)
	}
	return payouts, rows.Err()
}

// --- transactions ---

func (s *PostgresStore) CreateTransaction(ctx context.Context, t *domain.Transaction) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO transactions (user_id, amount, tx_type, description)
		VALUES ($1, $2, $3, $4)`,
		t.UserID, t.Amount, t.TxType, t.Description)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListTransactions(ctx context.Context, userID int64) ([]domain.Transaction, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, amount, tx_type, description, created_at
		FROM transactions WHERE user_id = $1 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.TxType, &t.Description, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}
