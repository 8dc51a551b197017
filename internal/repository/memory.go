package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/set-night/questboard/internal/domain"
)

// MemoryStore is an in-process Store used by tests and local development.
// InTx serializes writers with a mutex and runs fn against a copy of the
// state, so a failed fn leaves the store untouched, matching the rollback
// behavior of PostgresStore.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
	tx    bool
}

type memState struct {
	users    map[int64]*domain.User
	tasks    map[int64]*domain.Task
	claims   map[int64]map[int64]*domain.Claim // taskID -> userID -> claim
	edges    []domain.ReferralEdge
	payouts  []domain.ReferralPayout
	txs      []domain.Transaction
	nextUser int64
	nextTask int64
	nextTx   int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memState{
		users:    map[int64]*domain.User{},
		tasks:    map[int64]*domain.Task{},
		claims:   map[int64]map[int64]*domain.Claim{},
		nextUser: 1,
		nextTask: 1,
		nextTx:   1,
	}}
}

func (st *memState) clone() *memState {
	c := &memState{
		users:    make(map[int64]*domain.User, len(st.users)),
		tasks:    make(map[int64]*domain.Task, len(st.tasks)),
		claims:   make(map[int64]map[int64]*domain.Claim, len(st.claims)),
		edges:    append([]domain.ReferralEdge(nil), st.edges...),
		payouts:  append([]domain.ReferralPayout(nil), st.payouts...),
		txs:      append([]domain.Transaction(nil), st.txs...),
		nextUser: st.nextUser,
		nextTask: st.nextTask,
		nextTx:   st.nextTx,
	}
	for id, u := range st.users {
		cp := *u
		c.users[id] = &cp
	}
	for id, t := range st.tasks {
		cp := *t
		c.tasks[id] = &cp
	}
	for taskID, byUser := range st.claims {
		m := make(map[int64]*domain.Claim, len(byUser))
		for userID, cl := range byUser {
			cp := *cl
			m[userID] = &cp
		}
		c.claims[taskID] = m
	}
	return c
}

// lock is a no-op inside a transaction: the root's mutex is already held for
// the whole InTx call.
func (s *MemoryStore) lock() func() {
	if s.tx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *MemoryStore) InTx(ctx context.Context, fn func(Store) error) error {
	if s.tx {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(&MemoryStore{state: work, tx: true}); err != nil {
		return err
	}
	s.state = work
	return nil
}

// --- users ---

func (s *MemoryStore) CreateUser(ctx context.Context, u *domain.User) (*domain.User, error) {
	defer s.lock()()
	cp := *u
	cp.ID = s.state.nextUser
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	s.state.nextUser++
	s.state.users[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *MemoryStore) findUser(match func(*domain.User) bool) (*domain.User, error) {
	for _, u := range s.state.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *MemoryStore) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	defer s.lock()()
	return s.findUser(func(u *domain.User) bool { return u.ID == id })
}

func (s *MemoryStore) GetUserByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	defer s.lock()()
	return s.findUser(func(u *domain.User) bool { return u.TelegramID == telegramID })
}

func (s *MemoryStore) GetUserByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	defer s.lock()()
	return s.findUser(func(u *domain.User) bool { return u.ReferralCode == code })
}

func (s *MemoryStore) GetUserForUpdate(ctx context.Context, id int64) (*domain.User, error) {
	return s.GetUserByID(ctx, id)
}

func (s *MemoryStore) SetUserWallet(ctx context.Context, id int64, address string) error {
	defer s.lock()()
	u, ok := s.state.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.WalletAddress = address
	u.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) AddToBalance(ctx context.Context, userID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	defer s.lock()()
	u, ok := s.state.users[userID]
	if !ok {
		return decimal.Zero, domain.ErrUserNotFound
	}
	next := u.Balance.Add(delta)
	if next.IsNegative() {
		return decimal.Zero, domain.ErrInsufficientBalance
	}
	u.Balance = next
	u.UpdatedAt = time.Now()
	return next, nil
}

// --- tasks ---

func (s *MemoryStore) CreateTask(ctx context.Context, in *domain.Task) (*domain.Task, error) {
	defer s.lock()()
	cp := *in
	cp.ID = s.state.nextTask
	cp.CreatedAt = time.Now()
	s.state.nextTask++
	s.state.tasks[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *MemoryStore) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	defer s.lock()()
	task, ok := s.state.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	cp := *task
	return &cp, nil
}

func (s *MemoryStore) GetTaskForUpdate(ctx context.Context, id int64) (*domain.Task, error) {
	return s.GetTask(ctx, id)
}

func (s *MemoryStore) ListTasks(ctx context.Context, taskType *domain.TaskType) ([]domain.Task, error) {
	defer s.lock()()
	var tasks []domain.Task
	for _, task := range s.state.tasks {
		if !task.Active {
			continue
		}
		if taskType != nil && task.Type != *taskType {
			continue
		}
		tasks = append(tasks, *task)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

func (s *MemoryStore) IncrementTaskParticipants(ctx context.Context, id int64) error {
	defer s.lock()()
	task, ok := s.state.tasks[id]
	if !ok {
		return domain.ErrTaskNotFound
	}
	if task.MaxParticipants != nil && task.CurrentParticipants+1 > *task.MaxParticipants {
		return domain.ErrTaskCapacity
	}
	task.CurrentParticipants++
	return nil
}

func (s *MemoryStore) SetTaskActive(ctx context.Context, id int64, active bool) error {
	defer s.lock()()
	task, ok := s.state.tasks[id]
	if !ok {
		return domain.ErrTaskNotFound
	}
	task.Active = active
	return nil
}

// --- claims ---

func (s *MemoryStore) CreateClaim(ctx context.Context, c *domain.Claim) error {
	defer s.lock()()
	byUser := s.state.claims[c.TaskID]
	if byUser == nil {
		byUser = map[int64]*domain.Claim{}
		s.state.claims[c.TaskID] = byUser
	}
	if _, ok := byUser[c.UserID]; ok {
		return domain.ErrTaskAlreadyDone
	}
	cp := *c
	byUser[c.UserID] = &cp
	return nil
}

func (s *MemoryStore) HasClaim(ctx context.Context, taskID, userID int64) (bool, error) {
	defer s.lock()()
	_, ok := s.state.claims[taskID][userID]
	return ok, nil
}

func (s *MemoryStore) CountClaims(ctx context.Context, taskID int64) (int, error) {
	defer s.lock()()
	return len(s.state.claims[taskID]), nil
}

// --- referrals ---

func (s *MemoryStore) CreateReferralEdge(ctx context.Context, e *domain.ReferralEdge) error {
	defer s.lock()()
	s.state.edges = append(s.state.edges, *e)
	return nil
}

func (s *MemoryStore) ReferralAncestors(ctx context.Context, userID int64) ([]domain.ReferralEdge, error) {
	defer s.lock()()
	var edges []domain.ReferralEdge
	for _, e := range s.state.edges {
		if e.UserID == userID {
			edges = append(edges, e)
		}
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].Level < edges[j].Level })
	return edges, nil
}

func (s *MemoryStore) ReferralStats(ctx context.Context, referrerID int64) (*domain.ReferralStats, error) {
	defer s.lock()()
	stats := &domain.ReferralStats{
		CountByLevel:  map[int]int{},
		RewardByLevel: map[int]decimal.Decimal{},
	}
	for _, e := range s.state.edges {
		if e.ReferrerID == referrerID {
			stats.CountByLevel[e.Level]++
			stats.TotalCount++
		}
	}
	for _, p := range s.state.payouts {
		if p.ReferrerID == referrerID {
			cur, ok := stats.RewardByLevel[p.Level]
			if !ok {
				cur = decimal.Zero
			}
			stats.RewardByLevel[p.Level] = cur.Add(p.Amount)
		}
	}
	return stats, nil
}

func (s *MemoryStore) CreateReferralPayout(ctx context.Context, p *domain.ReferralPayout) error {
	defer s.lock()()
	s.state.payouts = append(s.state.payouts, *p)
	return nil
}

func (s *MemoryStore) ListReferralPayouts(ctx context.Context, claimID uuid.UUID) ([]domain.ReferralPayout, error) {
	defer s.lock()()
	var payouts []domain.ReferralPayout
	for _, p := range s.state.payouts {
		if p.ClaimID == claimID {
			payouts = append(payouts, p)
		}
	}
	sort.Slice(payouts, func(i, j int) bool { return payouts[i].Level < payouts[j].Level })
	return payouts, nil
}

// --- transactions ---

func (s *MemoryStore) CreateTransaction(ctx context.Context, in *domain.Transaction) error {
	defer s.lock()()
	cp := *in
	cp.ID = s.state.nextTx
	cp.CreatedAt = time.Now()
	s.state.nextTx++
	s.state.txs = append(s.state.txs, cp)
	return nil
}

func (s *MemoryStore) ListTransactions(ctx context.Context, userID int64) ([]domain.Transaction, error) {
	defer s.lock()()
	var txs []domain.Transaction
	for _, t := range s.state.txs {
		if t.UserID == userID {
			txs = append(txs, t)
		}
	}
	sort.Slice(txs, func(i, j int) bool { return txs[i].ID > txs[j].ID })
	return txs, nil
}
