package pgcargo

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS orders (
  id BIGSERIAL PRIMARY KEY,
  order_number TEXT NOT NULL,
  client_name TEXT NOT NULL,
  container_count INT NOT NULL DEFAULT 0,
  goods_type TEXT NOT NULL DEFAULT '',
  route TEXT NOT NULL DEFAULT '',
  transit_port TEXT NOT NULL DEFAULT '',
  document_number TEXT NOT NULL DEFAULT '',
  chinese_transport_company TEXT NOT NULL DEFAULT '',
  iranian_transport_company TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'New',
  status_color TEXT NOT NULL DEFAULT '#FFFFFF',
  creation_date TIMESTAMPTZ NULL,
  loading_date TIMESTAMPTZ NULL,
  departure_date TIMESTAMPTZ NULL,
  arrival_iran_date TIMESTAMPTZ NULL,
  truck_loading_date TIMESTAMPTZ NULL,
  arrival_turkmenistan_date TIMESTAMPTZ NULL,
  client_receiving_date TIMESTAMPTZ NULL,
  arrival_notice_date TIMESTAMPTZ NULL,
  tkm_date TIMESTAMPTZ NULL,
  eta_date TIMESTAMPTZ NULL,
  has_loading_photo BOOLEAN NOT NULL DEFAULT FALSE,
  has_local_charges BOOLEAN NOT NULL DEFAULT FALSE,
  has_tex BOOLEAN NOT NULL DEFAULT FALSE,
  notes TEXT NOT NULL DEFAULT '',
  additional_info TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL,
  sync_timestamp TIMESTAMPTZ NULL,
  UNIQUE (order_number)
)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at DESC)`,
		`
CREATE TABLE IF NOT EXISTS containers (
  id BIGSERIAL PRIMARY KEY,
  order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  container_number TEXT NOT NULL DEFAULT '',
  container_type TEXT NOT NULL DEFAULT '20ft Standard',
  weight DOUBLE PRECISION NOT NULL DEFAULT 0,
  volume DOUBLE PRECISION NOT NULL DEFAULT 0,
  loading_date TIMESTAMPTZ NULL,
  departure_date TIMESTAMPTZ NULL,
  arrival_iran_date TIMESTAMPTZ NULL,
  truck_loading_date TIMESTAMPTZ NULL,
  arrival_turkmenistan_date TIMESTAMPTZ NULL,
  client_receiving_date TIMESTAMPTZ NULL,
  driver_first_name TEXT NOT NULL DEFAULT '',
  driver_last_name TEXT NOT NULL DEFAULT '',
  driver_company TEXT NOT NULL DEFAULT '',
  truck_number TEXT NOT NULL DEFAULT '',
  driver_iran_phone TEXT NOT NULL DEFAULT '',
  driver_turkmenistan_phone TEXT NOT NULL DEFAULT ''
)`,
		`CREATE INDEX IF NOT EXISTS idx_containers_order_id ON containers(order_id)`,
		`
CREATE TABLE IF NOT EXISTS tasks (
  id BIGSERIAL PRIMARY KEY,
  order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  description TEXT NOT NULL,
  assigned_to TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'ToDo',
  priority TEXT NOT NULL DEFAULT 'Medium',
  due_date TIMESTAMPTZ NULL,
  created_date TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_order_id ON tasks(order_id)`,
		`
CREATE TABLE IF NOT EXISTS notifications (
  id BIGSERIAL PRIMARY KEY,
  chat_id TEXT NOT NULL,
  message TEXT NOT NULL,
  notification_type TEXT NOT NULL,
  scheduled_time TIMESTAMPTZ NOT NULL,
  sent BOOLEAN NOT NULL DEFAULT FALSE,
  order_number TEXT NOT NULL DEFAULT '',
  event_key TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_due ON notifications(sent, scheduled_time)`,
		// Часовой sweep за 48 часов видит одни и те же события на каждом
		// тике; уникальный индекс не даёт плодить дубли event/reminder
		// строк. Alert-строки (event_key = '') под индекс не попадают.
		`
CREATE UNIQUE INDEX IF NOT EXISTS uq_notifications_dedup
  ON notifications(chat_id, notification_type, order_number, event_key, scheduled_time)
  WHERE event_key <> ''`,
		`
CREATE TABLE IF NOT EXISTS subscriptions (
  id BIGSERIAL PRIMARY KEY,
  chat_id TEXT NOT NULL,
  is_active BOOLEAN NOT NULL DEFAULT TRUE,
  notify_events BOOLEAN NOT NULL DEFAULT TRUE,
  notify_reminders BOOLEAN NOT NULL DEFAULT TRUE,
  notify_alerts BOOLEAN NOT NULL DEFAULT TRUE,
  hours_before INT NOT NULL DEFAULT 24,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL,
  UNIQUE (chat_id)
)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
