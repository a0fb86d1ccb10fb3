package messages

import "time"

// OrderSynced публикуется cargo-api после каждой принятой синхронизации.
// cargo-notifier по нему рассылает alert-уведомления подписчикам.
type OrderSynced struct {
	OrderID     uint64    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Created     bool      `json:"created"`
	Status      string    `json:"status,omitempty"`
	SyncType    string    `json:"sync_type,omitempty"`
	SyncedAt    time.Time `json:"synced_at"`
}
