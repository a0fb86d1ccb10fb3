package pgcargo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/margiana/cargotrack/internal/models"
)

func strPtr(s string) *string       { return &s }
func statusPtr(s models.OrderStatus) *models.OrderStatus { return &s }
func intPtr(n int) *int             { return &n }
func boolPtr(b bool) *bool          { return &b }
func timePtr(t time.Time) *time.Time { return &t }

func newTestStorage(t *testing.T) *Storage {
	if testing.Short() {
		t.Skip("skipping container test in -short mode")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "admin",
			"POSTGRES_PASSWORD": "admin",
			"POSTGRES_DB":       "cargotrack_test",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := "postgres://admin:admin@" + host + ":" + port.Port() + "/cargotrack_test?sslmode=disable"
	st, err := New(dsn)
	require.NoError(t, err)
	t.Cleanup(st.Close)
	return st
}

func TestPGCargo_UpsertFlow(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()

	// Первый sync — создание.
	res, err := st.UpsertOrder(ctx, models.OrderSyncInput{
		OrderNumber: "ORD-1001",
		ClientName:  strPtr("Acme"),
		Route:       strPtr("Шанхай - Ашхабад"),
		Status:      statusPtr(models.StatusNew),
		Containers: []models.ContainerSyncInput{
			{ContainerNumber: "MSKU1", Weight: 1000, Volume: 30},
			{ContainerNumber: "MSKU2", Weight: 2000, Volume: 40},
		},
	})
	require.NoError(t, err)
	require.True(t, res.Created)
	require.NotZero(t, res.OrderID)

	o, err := st.GetOrderByNumber(ctx, "ORD-1001")
	require.NoError(t, err)
	require.NotNil(t, o)
	require.Equal(t, "Acme", o.ClientName)
	require.Equal(t, 3000.0, o.TotalWeight)
	require.Equal(t, 70.0, o.TotalVolume)

	byID, err := st.GetOrderByID(ctx, res.OrderID)
	require.NoError(t, err)
	require.Equal(t, o.OrderNumber, byID.OrderNumber)

	// Второй sync того же номера — обновление, merge-patch:
	// client_name не прислан и остаётся прежним.
	res2, err := st.UpsertOrder(ctx, models.OrderSyncInput{
		OrderNumber: "ORD-1001",
		Status:      statusPtr(models.StatusCompleted),
	})
	require.NoError(t, err)
	require.False(t, res2.Created)
	require.Equal(t, res.OrderID, res2.OrderID)

	o, err = st.GetOrderByNumber(ctx, "ORD-1001")
	require.NoError(t, err)
	require.Equal(t, "Acme", o.ClientName)
	require.Equal(t, models.StatusCompleted, o.Status)
	// Контейнеры не присылались — остались.
	cs, err := st.ListContainers(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, cs, 2)

	// Пустой массив контейнеров — явная замена на "ничего".
	_, err = st.UpsertOrder(ctx, models.OrderSyncInput{
		OrderNumber: "ORD-1001",
		Containers:  []models.ContainerSyncInput{},
	})
	require.NoError(t, err)
	cs, err = st.ListContainers(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, cs, 0)
}

func TestPGCargo_UpsertRejectsEmptyNumber(t *testing.T) {
	st := newTestStorage(t)
	_, err := st.UpsertOrder(context.Background(), models.OrderSyncInput{})
	require.Error(t, err)
}

func TestPGCargo_SearchOR(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()

	_, err := st.UpsertOrder(ctx, models.OrderSyncInput{OrderNumber: "ORD-1", ClientName: strPtr("Acme")})
	require.NoError(t, err)
	_, err = st.UpsertOrder(ctx, models.OrderSyncInput{OrderNumber: "ORD-2", ClientName: strPtr("Beta")})
	require.NoError(t, err)

	got, err := st.SearchOrders(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "ORD-1", got[0].OrderNumber)

	got, err = st.SearchOrders(ctx, "ORD")
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestPGCargo_StatisticsWindowAsymmetry(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()

	_, err := st.UpsertOrder(ctx, models.OrderSyncInput{
		OrderNumber: "OLD-1",
		ClientName:  strPtr("Old"),
		Status:      statusPtr(models.StatusInTransitCHNIR),
	})
	require.NoError(t, err)
	// Старим заказ за пределы окна; статус активный.
	_, err = st.db.Exec(ctx, `UPDATE orders SET created_at = now() - interval '30 days', updated_at = now() - interval '30 days' WHERE order_number = 'OLD-1'`)
	require.NoError(t, err)

	_, err = st.UpsertOrder(ctx, models.OrderSyncInput{
		OrderNumber: "NEW-1",
		ClientName:  strPtr("New"),
		Status:      statusPtr(models.StatusCompleted),
		Containers:  []models.ContainerSyncInput{{ContainerNumber: "C1", Weight: 500, Volume: 10}},
	})
	require.NoError(t, err)

	stats, err := st.Statistics(ctx, 7)
	require.NoError(t, err)
	// Активные считаются снимком, без оглядки на окно.
	require.Equal(t, 1, stats.ActiveOrders)
	// Остальное привязано к окну: старый заказ не попадает.
	require.Equal(t, 1, stats.TotalOrders)
	require.Equal(t, 1, stats.CompletedOrders)
	require.Equal(t, 1, stats.TotalContainers)
	require.Equal(t, 500.0, stats.TotalWeight)
}

func TestPGCargo_UpcomingEventsUnpivot(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()

	now := time.Now().UTC()
	_, err := st.UpsertOrder(ctx, models.OrderSyncInput{
		OrderNumber:     "EVT-1",
		ClientName:      strPtr("Acme"),
		DepartureDate:   timePtr(now.Add(10 * time.Hour)),
		ArrivalIranDate: timePtr(now.Add(20 * time.Hour)),
		TKMDate:         timePtr(now.Add(30 * time.Hour)), // не веха, в unpivot не входит
	})
	require.NoError(t, err)

	events, err := st.UpcomingEvents(ctx, now, now.Add(48*time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "departure", events[0].EventKey)
	require.Equal(t, "Отплытие из Китая", events[0].EventType)
	require.Equal(t, "arrival_iran", events[1].EventKey)
	require.Equal(t, "Прибытие в Иран", events[1].EventType)
	require.True(t, events[0].EventDate.Before(events[1].EventDate))
}

func TestPGCargo_NotificationsDedupAndDue(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	in := models.NotificationInput{
		ChatID:           "100",
		Message:          "msg",
		NotificationType: models.NotificationTypeEvent,
		ScheduledTime:    now.Add(2 * time.Minute),
		OrderNumber:      "ORD-1",
		EventKey:         "departure",
	}
	require.NoError(t, st.CreateNotifications(ctx, []models.NotificationInput{in}))
	// Повторный sweep с тем же событием не плодит дубль.
	require.NoError(t, st.CreateNotifications(ctx, []models.NotificationInput{in}))

	// Просроченная неотправленная строка тоже должна выдаваться.
	overdue := models.NotificationInput{
		ChatID:           "100",
		Message:          "late",
		NotificationType: models.NotificationTypeReminder,
		ScheduledTime:    now.Add(-3 * time.Hour),
		OrderNumber:      "ORD-1",
		EventKey:         "arrival_iran",
	}
	require.NoError(t, st.CreateNotifications(ctx, []models.NotificationInput{overdue}))

	due, err := st.DueNotifications(ctx, now, 5*time.Minute)
	require.NoError(t, err)
	require.Len(t, due, 2)
	require.Equal(t, "late", due[0].Message) // сортировка по scheduled_time

	require.NoError(t, st.MarkNotificationSent(ctx, due[0].ID))
	due, err = st.DueNotifications(ctx, now, 5*time.Minute)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, "msg", due[0].Message)
}

func TestPGCargo_SubscriptionLifecycle(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, st.Subscribe(ctx, "42"))
	sub, err := st.GetSubscription(ctx, "42")
	require.NoError(t, err)
	require.NotNil(t, sub)
	require.True(t, sub.IsActive)
	require.Equal(t, 24, sub.HoursBefore)

	require.NoError(t, st.UpdateSubscription(ctx, "42", models.SubscriptionSettings{
		HoursBefore:  intPtr(12),
		NotifyEvents: boolPtr(false),
	}))
	sub, err = st.GetSubscription(ctx, "42")
	require.NoError(t, err)
	require.Equal(t, 12, sub.HoursBefore)
	require.False(t, sub.NotifyEvents)
	require.True(t, sub.NotifyReminders) // не присылали — не тронуто

	require.NoError(t, st.Unsubscribe(ctx, "42"))
	sub, err = st.GetSubscription(ctx, "42")
	require.NoError(t, err)
	require.NotNil(t, sub) // строка не удаляется
	require.False(t, sub.IsActive)

	// Повторная подписка реактивирует и сохраняет настройки.
	require.NoError(t, st.Subscribe(ctx, "42"))
	sub, err = st.GetSubscription(ctx, "42")
	require.NoError(t, err)
	require.True(t, sub.IsActive)
	require.Equal(t, 12, sub.HoursBefore)

	subs, err := st.ActiveSubscriptions(ctx, "reminders")
	require.NoError(t, err)
	require.Len(t, subs, 1)

	subs, err = st.ActiveSubscriptions(ctx, "events")
	require.NoError(t, err)
	require.Len(t, subs, 0) // notify_events выключен
}
