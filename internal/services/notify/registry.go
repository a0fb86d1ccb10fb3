package notify

import (
	"context"

	"github.com/pkg/errors"

	"github.com/margiana/cargotrack/internal/models"
)

// Registry управляет подписками чатов. Отдельный тип, чтобы бот и API
// не тянули планировщик целиком.
type Registry struct {
	repo Repository
}

func NewRegistry(repo Repository) *Registry {
	return &Registry{repo: repo}
}

func (r *Registry) Subscribe(ctx context.Context, chatID string) error {
	if chatID == "" {
		return errors.New("chatID is required")
	}
	return r.repo.Subscribe(ctx, chatID)
}

func (r *Registry) Unsubscribe(ctx context.Context, chatID string) error {
	if chatID == "" {
		return errors.New("chatID is required")
	}
	return r.repo.Unsubscribe(ctx, chatID)
}

func (r *Registry) Settings(ctx context.Context, chatID string) (*models.Subscription, error) {
	if chatID == "" {
		return nil, errors.New("chatID is required")
	}
	return r.repo.GetSubscription(ctx, chatID)
}

func (r *Registry) UpdateSettings(ctx context.Context, chatID string, settings models.SubscriptionSettings) error {
	if chatID == "" {
		return errors.New("chatID is required")
	}
	if settings.HoursBefore != nil && (*settings.HoursBefore < 1 || *settings.HoursBefore > 168) {
		return errors.New("hours_before must be between 1 and 168")
	}
	return r.repo.UpdateSubscription(ctx, chatID, settings)
}
