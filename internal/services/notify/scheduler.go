// Package notify планирует и доставляет уведомления подписчикам:
// события по вехам заказа, напоминания заранее и немедленные оповещения.
package notify

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/margiana/cargotrack/internal/format"
	"github.com/margiana/cargotrack/internal/models"
)

type Repository interface {
	GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	UpcomingEvents(ctx context.Context, from, to time.Time) ([]*models.UpcomingEvent, error)
	ActiveSubscriptions(ctx context.Context, notifyFlag string) ([]*models.Subscription, error)
	CreateNotifications(ctx context.Context, items []models.NotificationInput) error
	DueNotifications(ctx context.Context, now time.Time, lookahead time.Duration) ([]*models.Notification, error)
	MarkNotificationSent(ctx context.Context, id uint64) error

	Subscribe(ctx context.Context, chatID string) error
	Unsubscribe(ctx context.Context, chatID string) error
	GetSubscription(ctx context.Context, chatID string) (*models.Subscription, error)
	UpdateSubscription(ctx context.Context, chatID string, settings models.SubscriptionSettings) error
}

// eventHorizon — на сколько вперёд планировщик смотрит за один проход.
const eventHorizon = 48 * time.Hour

type Scheduler struct {
	repo Repository
	now  func() time.Time
}

func NewScheduler(repo Repository) *Scheduler {
	return &Scheduler{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// CheckAndCreate находит вехи в ближайшие 48 часов и раскладывает по
// подписчикам уведомления о событии и напоминания. Повторные проходы
// безопасны: дубликаты гасит уникальный индекс в БД.
func (s *Scheduler) CheckAndCreate(ctx context.Context) (int, error) {
	now := s.now()

	events, err := s.repo.UpcomingEvents(ctx, now, now.Add(eventHorizon))
	if err != nil {
		return 0, errors.Wrap(err, "upcoming events")
	}
	if len(events) == 0 {
		return 0, nil
	}

	eventSubs, err := s.repo.ActiveSubscriptions(ctx, "events")
	if err != nil {
		return 0, errors.Wrap(err, "event subscriptions")
	}
	reminderSubs, err := s.repo.ActiveSubscriptions(ctx, "reminders")
	if err != nil {
		return 0, errors.Wrap(err, "reminder subscriptions")
	}

	// Карточки заказов загружаем по одной на номер, а не на событие.
	ordersByNumber := map[string]*models.Order{}
	orderFor := func(number string) (*models.Order, error) {
		if o, ok := ordersByNumber[number]; ok {
			return o, nil
		}
		o, err := s.repo.GetOrderByNumber(ctx, number)
		if err != nil {
			return nil, err
		}
		ordersByNumber[number] = o
		return o, nil
	}

	var batch []models.NotificationInput
	for _, ev := range events {
		o, err := orderFor(ev.OrderNumber)
		if err != nil {
			return 0, errors.Wrap(err, "load order")
		}
		if o == nil {
			continue
		}

		for _, sub := range eventSubs {
			batch = append(batch, models.NotificationInput{
				ChatID:           sub.ChatID,
				Message:          format.EventMessage(o, ev.EventType, ev.EventDate),
				NotificationType: models.NotificationTypeEvent,
				ScheduledTime:    ev.EventDate,
				OrderNumber:      ev.OrderNumber,
				EventKey:         ev.EventKey,
			})
		}

		for _, sub := range reminderSubs {
			hours := sub.HoursBefore
			if hours <= 0 {
				hours = 24
			}
			remindAt := ev.EventDate.Add(-time.Duration(hours) * time.Hour)
			// Напоминание в прошлом не планируем: событие ближе, чем просил подписчик.
			if !remindAt.After(now) {
				continue
			}
			batch = append(batch, models.NotificationInput{
				ChatID:           sub.ChatID,
				Message:          format.ReminderMessage(o, ev.EventType, ev.EventDate, hours),
				NotificationType: models.NotificationTypeReminder,
				ScheduledTime:    remindAt,
				OrderNumber:      ev.OrderNumber,
				EventKey:         ev.EventKey,
			})
		}
	}

	if len(batch) == 0 {
		return 0, nil
	}
	if err := s.repo.CreateNotifications(ctx, batch); err != nil {
		return 0, errors.Wrap(err, "create notifications")
	}
	return len(batch), nil
}

// CreateAlert немедленно рассылает оповещение всем подписчикам alert-типа.
func (s *Scheduler) CreateAlert(ctx context.Context, orderNumber, alertType, text string) (int, error) {
	if orderNumber == "" {
		return 0, errors.New("orderNumber is required")
	}
	if text == "" {
		return 0, errors.New("alert text is required")
	}

	o, err := s.repo.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		return 0, errors.Wrap(err, "load order")
	}
	if o == nil {
		return 0, errors.Errorf("order %s not found", orderNumber)
	}

	subs, err := s.repo.ActiveSubscriptions(ctx, "alerts")
	if err != nil {
		return 0, errors.Wrap(err, "alert subscriptions")
	}
	if len(subs) == 0 {
		return 0, nil
	}

	now := s.now()
	batch := make([]models.NotificationInput, 0, len(subs))
	for _, sub := range subs {
		batch = append(batch, models.NotificationInput{
			ChatID:           sub.ChatID,
			Message:          format.AlertMessage(o, alertType, text),
			NotificationType: models.NotificationTypeAlert,
			ScheduledTime:    now,
			OrderNumber:      orderNumber,
		})
	}
	if err := s.repo.CreateNotifications(ctx, batch); err != nil {
		return 0, errors.Wrap(err, "create notifications")
	}
	return len(batch), nil
}
