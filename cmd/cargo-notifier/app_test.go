package main

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/margiana/cargotrack/config"
	"github.com/margiana/cargotrack/internal/broker/messages"
	"github.com/margiana/cargotrack/internal/models"
	"github.com/margiana/cargotrack/internal/services/notify"
)

type fakeNotifyRepo struct {
	order   *models.Order
	subs    []*models.Subscription
	created []models.NotificationInput
}

func (f *fakeNotifyRepo) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	return f.order, nil
}
func (f *fakeNotifyRepo) UpcomingEvents(ctx context.Context, from, to time.Time) ([]*models.UpcomingEvent, error) {
	return nil, nil
}
func (f *fakeNotifyRepo) ActiveSubscriptions(ctx context.Context, notifyFlag string) ([]*models.Subscription, error) {
	return f.subs, nil
}
func (f *fakeNotifyRepo) CreateNotifications(ctx context.Context, items []models.NotificationInput) error {
	f.created = append(f.created, items...)
	return nil
}
func (f *fakeNotifyRepo) DueNotifications(ctx context.Context, now time.Time, lookahead time.Duration) ([]*models.Notification, error) {
	return nil, nil
}
func (f *fakeNotifyRepo) MarkNotificationSent(ctx context.Context, id uint64) error { return nil }
func (f *fakeNotifyRepo) Subscribe(ctx context.Context, chatID string) error        { return nil }
func (f *fakeNotifyRepo) Unsubscribe(ctx context.Context, chatID string) error      { return nil }
func (f *fakeNotifyRepo) GetSubscription(ctx context.Context, chatID string) (*models.Subscription, error) {
	return nil, nil
}
func (f *fakeNotifyRepo) UpdateSubscription(ctx context.Context, chatID string, settings models.SubscriptionSettings) error {
	return nil
}

func marshal(t *testing.T, m messages.OrderSynced) []byte {
	t.Helper()
	b, err := json.Marshal(m)
	require.NoError(t, err)
	return b
}

func TestHandleOrderSynced_StatusChangeAlert(t *testing.T) {
	repo := &fakeNotifyRepo{
		order: &models.Order{OrderNumber: "ORD-1", ClientName: "Acme", Status: models.StatusInProgressIR},
		subs:  []*models.Subscription{{ChatID: "100"}, {ChatID: "200"}},
	}
	scheduler := notify.NewScheduler(repo)

	msg := marshal(t, messages.OrderSynced{
		OrderNumber: "ORD-1",
		Status:      "In Progress IR",
		SyncType:    "auto",
	})
	require.NoError(t, handleOrderSynced(context.Background(), scheduler, msg))

	require.Len(t, repo.created, 2)
	require.Equal(t, models.NotificationTypeAlert, repo.created[0].NotificationType)
	require.Contains(t, repo.created[0].Message, "Статус заказа изменён на: In Progress IR")
}

func TestHandleOrderSynced_NewOrderAlert(t *testing.T) {
	repo := &fakeNotifyRepo{
		order: &models.Order{OrderNumber: "ORD-1", Status: models.StatusNew},
		subs:  []*models.Subscription{{ChatID: "100"}},
	}
	scheduler := notify.NewScheduler(repo)

	require.NoError(t, handleOrderSynced(context.Background(), scheduler,
		marshal(t, messages.OrderSynced{OrderNumber: "ORD-1", Status: "New", Created: true})))

	require.Len(t, repo.created, 1)
	require.Contains(t, repo.created[0].Message, "NEW_ORDER")
	require.Contains(t, repo.created[0].Message, "Заказ добавлен в систему")
}

func TestHandleOrderSynced_SkipsStatusless(t *testing.T) {
	repo := &fakeNotifyRepo{
		order: &models.Order{OrderNumber: "ORD-1"},
		subs:  []*models.Subscription{{ChatID: "100"}},
	}
	scheduler := notify.NewScheduler(repo)

	// синк без статуса — не оповещаем
	require.NoError(t, handleOrderSynced(context.Background(), scheduler,
		marshal(t, messages.OrderSynced{OrderNumber: "ORD-1"})))

	require.Empty(t, repo.created)
}

func TestHandleOrderSynced_badPayload(t *testing.T) {
	scheduler := notify.NewScheduler(&fakeNotifyRepo{})
	require.Error(t, handleOrderSynced(context.Background(), scheduler, []byte(`{broken`)))
}

func TestDefaultNotifierFactories(t *testing.T) {
	f := defaultNotifierFactories()
	cfg := &config.Config{}
	cfg.Telegram.BotToken = "123:ABC"
	cfg.Kafka.Host = "localhost"
	cfg.Kafka.Port = 9092
	cfg.Redis.Host = "localhost"
	cfg.Redis.Port = 6379

	require.NotNil(t, f.newTelegram(cfg))
	require.NotNil(t, f.newConsumer(cfg, "order.synced"))
	require.NotNil(t, f.newRateLimiter(cfg))
	require.NotNil(t, f.newCache(cfg))
}
