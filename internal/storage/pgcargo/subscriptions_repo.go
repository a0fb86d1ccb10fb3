package pgcargo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/margiana/cargotrack/internal/models"
)

// Subscribe идемпотентен: существующая строка реактивируется, новая
// создаётся со всеми флагами и 24-часовым напоминанием.
func (s *Storage) Subscribe(ctx context.Context, chatID string) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(ctx, `
INSERT INTO subscriptions (chat_id, is_active, notify_events, notify_reminders, notify_alerts, hours_before, created_at, updated_at)
VALUES ($1, TRUE, TRUE, TRUE, TRUE, 24, $2, $2)
ON CONFLICT (chat_id)
DO UPDATE SET is_active = TRUE, updated_at = $2
`, chatID, now)
	return errors.Wrap(err, "subscribe")
}

// Unsubscribe снимает is_active, строку не удаляет.
func (s *Storage) Unsubscribe(ctx context.Context, chatID string) error {
	ct, err := s.db.Exec(ctx, `
UPDATE subscriptions SET is_active = FALSE, updated_at = $2 WHERE chat_id = $1
`, chatID, time.Now().UTC())
	if err != nil {
		return errors.Wrap(err, "unsubscribe")
	}
	if ct.RowsAffected() == 0 {
		return errors.New("subscription not found")
	}
	return nil
}

func (s *Storage) GetSubscription(ctx context.Context, chatID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.QueryRow(ctx, `
SELECT id, chat_id, is_active, notify_events, notify_reminders, notify_alerts, hours_before, created_at, updated_at
FROM subscriptions
WHERE chat_id = $1
`, chatID).Scan(
		&sub.ID, &sub.ChatID, &sub.IsActive,
		&sub.NotifyEvents, &sub.NotifyReminders, &sub.NotifyAlerts,
		&sub.HoursBefore, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select subscription")
	}
	return &sub, nil
}

// UpdateSubscription применяет только присланные поля настроек.
func (s *Storage) UpdateSubscription(ctx context.Context, chatID string, settings models.SubscriptionSettings) error {
	sub, err := s.GetSubscription(ctx, chatID)
	if err != nil {
		return err
	}
	if sub == nil {
		return errors.New("subscription not found")
	}

	if settings.NotifyEvents != nil {
		sub.NotifyEvents = *settings.NotifyEvents
	}
	if settings.NotifyReminders != nil {
		sub.NotifyReminders = *settings.NotifyReminders
	}
	if settings.NotifyAlerts != nil {
		sub.NotifyAlerts = *settings.NotifyAlerts
	}
	if settings.HoursBefore != nil {
		sub.HoursBefore = *settings.HoursBefore
	}

	_, err = s.db.Exec(ctx, `
UPDATE subscriptions
SET notify_events = $2, notify_reminders = $3, notify_alerts = $4, hours_before = $5, updated_at = $6
WHERE chat_id = $1
`, chatID, sub.NotifyEvents, sub.NotifyReminders, sub.NotifyAlerts, sub.HoursBefore, time.Now().UTC())
	return errors.Wrap(err, "update subscription")
}

// ActiveSubscriptions возвращает активные подписки с нужным флагом:
// notifyFlag — одна из колонок notify_events/notify_reminders/notify_alerts.
func (s *Storage) ActiveSubscriptions(ctx context.Context, notifyFlag string) ([]*models.Subscription, error) {
	var cond string
	switch notifyFlag {
	case "events":
		cond = "notify_events"
	case "reminders":
		cond = "notify_reminders"
	case "alerts":
		cond = "notify_alerts"
	default:
		return nil, errors.Errorf("unknown notify flag: %s", notifyFlag)
	}

	rows, err := s.db.Query(ctx, `
SELECT id, chat_id, is_active, notify_events, notify_reminders, notify_alerts, hours_before, created_at, updated_at
FROM subscriptions
WHERE is_active AND `+cond+`
ORDER BY id
`)
	if err != nil {
		return nil, errors.Wrap(err, "select subscriptions")
	}
	defer rows.Close()

	var out []*models.Subscription
	for rows.Next() {
		var sub models.Subscription
		if err := rows.Scan(
			&sub.ID, &sub.ChatID, &sub.IsActive,
			&sub.NotifyEvents, &sub.NotifyReminders, &sub.NotifyAlerts,
			&sub.HoursBefore, &sub.CreatedAt, &sub.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan subscription")
		}
		out = append(out, &sub)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
