package models

import "time"

// Типы уведомлений.
const (
	NotificationTypeEvent    = "event"
	NotificationTypeReminder = "reminder"
	NotificationTypeAlert    = "alert"
)

// Notification — запланированное сообщение подписчику. Единственная
// мутация после создания — однонаправленный переход sent=false -> true.
type Notification struct {
	ID               uint64    `json:"id"`
	ChatID           string    `json:"chat_id"`
	Message          string    `json:"message"`
	NotificationType string    `json:"notification_type"`
	ScheduledTime    time.Time `json:"scheduled_time"`
	Sent             bool      `json:"sent"`
	CreatedAt        time.Time `json:"created_at"`
}

// Subscription — настройки получателя. Строки не удаляются, отписка
// только снимает is_active.
type Subscription struct {
	ID              uint64    `json:"id"`
	ChatID          string    `json:"chat_id"`
	IsActive        bool      `json:"is_active"`
	NotifyEvents    bool      `json:"notify_events"`
	NotifyReminders bool      `json:"notify_reminders"`
	NotifyAlerts    bool      `json:"notify_alerts"`
	HoursBefore     int       `json:"hours_before"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// SubscriptionSettings — частичное обновление настроек: nil-поля не трогаются.
type SubscriptionSettings struct {
	NotifyEvents    *bool `json:"notify_events,omitempty"`
	NotifyReminders *bool `json:"notify_reminders,omitempty"`
	NotifyAlerts    *bool `json:"notify_alerts,omitempty"`
	HoursBefore     *int  `json:"hours_before,omitempty"`
}

// NotificationInput — строка для вставки планировщиком.
type NotificationInput struct {
	ChatID           string
	Message          string
	NotificationType string
	ScheduledTime    time.Time

	// Ключ дедупликации: заказ + веха. Для alert-уведомлений ключ вехи пуст
	// и дедупликация не применяется.
	OrderNumber string
	EventKey    string
}
