package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/margiana/cargotrack/internal/models"
)

func TestDate(t *testing.T) {
	require.Equal(t, "-", Date(nil))

	ts := time.Date(2026, 3, 7, 14, 30, 0, 0, time.UTC)
	require.Equal(t, "07.03.2026", Date(&ts))
	require.Equal(t, "07.03.2026 14:30", DateTime(&ts))
}

func TestStatusEmoji(t *testing.T) {
	require.Equal(t, "🚢", StatusEmoji(models.StatusInTransitCHNIR))
	require.Equal(t, "✅", StatusEmoji(models.StatusCompleted))
	require.Equal(t, "📋", StatusEmoji(models.OrderStatus("Unknown")))
}

func TestOrderInfo(t *testing.T) {
	dep := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	o := &models.Order{
		OrderNumber:    "ORD-17",
		ClientName:     "Acme",
		Status:         models.StatusInTransitCHNIR,
		Route:          "Shanghai - Ashgabat",
		ContainerCount: 2,
		TotalWeight:    12000,
		DepartureDate:  &dep,
		Notes:          "хрупкий груз",
	}
	msg := OrderInfo(o)
	require.Contains(t, msg, "*ЗАКАЗ: ORD-17*")
	require.Contains(t, msg, "Клиент: Acme")
	require.Contains(t, msg, "Отплытие: 10.01.2026")
	require.Contains(t, msg, "Прибытие: -")
	require.Contains(t, msg, "хрупкий груз")
}

func TestOrderLine(t *testing.T) {
	o := &models.Order{OrderNumber: "ORD-5", ClientName: "Acme", Status: models.StatusNew}
	require.Equal(t, "🆕 *ORD-5* — Acme (New)", OrderLine(o))

	// С будущей ETA строка получает хвост с оставшимися днями.
	eta := time.Now().UTC().Add(72 * time.Hour)
	o.ETADate = &eta
	line := OrderLine(o)
	require.Contains(t, line, "ETA "+eta.Format("02.01.2006"))
	require.Contains(t, line, "дн.)")

	// Прошедшая ETA хвоста не добавляет.
	past := time.Now().UTC().Add(-24 * time.Hour)
	o.ETADate = &past
	require.NotContains(t, OrderLine(o), "ETA")
}

func TestDaysLeft(t *testing.T) {
	require.Equal(t, 0, DaysLeft(nil))

	past := time.Now().Add(-48 * time.Hour)
	require.Equal(t, 0, DaysLeft(&past))

	future := time.Now().Add(73 * time.Hour)
	require.Equal(t, 3, DaysLeft(&future))
}

func TestEventAndReminderMessages(t *testing.T) {
	o := &models.Order{OrderNumber: "ORD-17", ClientName: "Acme", Route: "CHN-TKM"}
	when := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	ev := EventMessage(o, "Отплытие из Китая", when)
	require.Contains(t, ev, "🚢 *СОБЫТИЕ: Отплытие из Китая*")
	require.Contains(t, ev, "01.02.2026 09:00")

	rem := ReminderMessage(o, "Прибытие в Иран", when, 24)
	require.Contains(t, rem, "*НАПОМИНАНИЕ: Прибытие в Иран*")
	require.Contains(t, rem, "Через: 24 часов")
}

func TestAlertMessage(t *testing.T) {
	o := &models.Order{OrderNumber: "ORD-17", ClientName: "Acme", Status: models.StatusInProgressIR}
	msg := AlertMessage(o, "delay", "Задержка на границе")
	require.Contains(t, msg, "⏳ *ОПОВЕЩЕНИЕ: DELAY*")
	require.Contains(t, msg, "Задержка на границе")
	require.Contains(t, msg, "Текущий статус: In Progress IR")
}

func TestParseDate(t *testing.T) {
	for _, in := range []string{"07.03.2026", "07.03.2026 14:30", "2026-03-07", "2026-03-07 14:30:00"} {
		got, ok := ParseDate(in)
		require.True(t, ok, in)
		require.Equal(t, 2026, got.Year())
		require.Equal(t, time.March, got.Month())
	}

	_, ok := ParseDate("вчера")
	require.False(t, ok)
}

func TestValidOrderNumber(t *testing.T) {
	require.True(t, ValidOrderNumber("ORD-17"))
	require.True(t, ValidOrderNumber("a1b"))
	require.False(t, ValidOrderNumber("17"))
	require.False(t, ValidOrderNumber("ORDER"))
	require.False(t, ValidOrderNumber("a1"))
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "короткий", Truncate("короткий", 20))
	require.Equal(t, "очень дл...", Truncate("очень длинный текст", 11))
	require.Equal(t, "оч", Truncate("очень", 2))
	require.Equal(t, "", Truncate("текст", 0))
}
