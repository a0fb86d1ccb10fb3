package pgcargo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/margiana/cargotrack/internal/models"
)

// CreateNotifications вставляет пачку строк одной транзакцией.
// Повторные event/reminder строки (тот же чат, заказ, веха и время)
// молча пропускаются по уникальному индексу.
func (s *Storage) CreateNotifications(ctx context.Context, items []models.NotificationInput) error {
	if len(items) == 0 {
		return nil
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, n := range items {
		_, err := tx.Exec(ctx, `
INSERT INTO notifications (chat_id, message, notification_type, scheduled_time, sent, order_number, event_key, created_at)
VALUES ($1,$2,$3,$4,FALSE,$5,$6,$7)
ON CONFLICT (chat_id, notification_type, order_number, event_key, scheduled_time)
  WHERE event_key <> ''
  DO NOTHING
`, n.ChatID, n.Message, n.NotificationType, n.ScheduledTime.UTC(), n.OrderNumber, n.EventKey, now)
		if err != nil {
			return errors.Wrap(err, "insert notification")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}

// DueNotifications возвращает неотправленные строки со scheduled_time
// не позже now+lookahead. Нижней границы нет: просроченные во время
// простоя строки доставляются следующим же sweep'ом.
func (s *Storage) DueNotifications(ctx context.Context, now time.Time, lookahead time.Duration) ([]*models.Notification, error) {
	rows, err := s.db.Query(ctx, `
SELECT id, chat_id, message, notification_type, scheduled_time, sent, created_at
FROM notifications
WHERE NOT sent AND scheduled_time <= $1
ORDER BY scheduled_time
`, now.UTC().Add(lookahead))
	if err != nil {
		return nil, errors.Wrap(err, "select due notifications")
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(
			&n.ID, &n.ChatID, &n.Message, &n.NotificationType,
			&n.ScheduledTime, &n.Sent, &n.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan notification")
		}
		out = append(out, &n)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// MarkNotificationSent — единственная мутация строки, переход только в
// одну сторону.
func (s *Storage) MarkNotificationSent(ctx context.Context, id uint64) error {
	_, err := s.db.Exec(ctx, `UPDATE notifications SET sent = TRUE WHERE id = $1`, id)
	return errors.Wrap(err, "mark notification sent")
}
