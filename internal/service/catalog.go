package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/set-night/questboard/internal/domain"
	"github.com/set-night/questboard/internal/repository"
)

// ChannelInfoFetcher resolves public channel metadata for display. Best
// effort only; task creation proceeds without it.
type ChannelInfoFetcher interface {
	FetchChannelTitle(ctx context.Context, channelUsername string) (string, error)
}

// CatalogService is the read path for tasks plus the administrative create
// and deactivate operations. Participant counts served here may trail the
// claim ledger; capacity is re-checked inside the claim transaction and
// never authorized from this view.
type CatalogService struct {
	store       repository.Store
	channelInfo ChannelInfoFetcher
}

func NewCatalogService(store repository.Store, channelInfo ChannelInfoFetcher) *CatalogService {
	return &CatalogService{store: store, channelInfo: channelInfo}
}

func (s *CatalogService) List(ctx context.Context, taskType *domain.TaskType) ([]domain.Task, error) {
	return s.store.ListTasks(ctx, taskType)
}

func (s *CatalogService) Get(ctx context.Context, id int64) (*domain.Task, error) {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if !task.Active {
		return nil, domain.ErrTaskNotFound
	}
	return task, nil
}

// Create publishes a new task. Channel tasks get their display title
// enriched from the public t.me preview when possible.
func (s *CatalogService) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if !task.Type.Valid() {
		return nil, fmt.Errorf("unknown task type %q", task.Type)
	}
	if task.Reward.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidAmount
	}

	if task.Type == domain.TaskTypeChannel && s.channelInfo != nil {
		title, err := s.channelInfo.FetchChannelTitle(ctx, task.ChannelUsername)
		if err != nil {
			slog.Warn("channel info fetch failed", "channel", task.ChannelUsername, "error", err)
		} else {
			task.ChannelTitle = title
		}
	}

	task.Active = true
	return s.store.CreateTask(ctx, task)
}

func (s *CatalogService) Deactivate(ctx context.Context, id int64) error {
	return s.store.SetTaskActive(ctx, id, false)
}
