package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/margiana/cargotrack/internal/format"
	"github.com/margiana/cargotrack/internal/models"
	"github.com/margiana/cargotrack/internal/report"
)

const helpText = `📋 *Команды:*

/active — активные заказы
/completed [дней] — завершённые за период
/today — события сегодня
/upcoming [дней] — ближайшие события
/status <номер> — карточка заказа
/search <текст> — поиск по заказам
/nophotos — заказы без фото загрузки
/nodocs — заказы без документов
/report <номер> — PDF-отчёт по заказу
/summary [дней] — сводный PDF-отчёт
/subscribe — включить уведомления
/unsubscribe — выключить уведомления
/settings — настройки уведомлений
/contacts — контакты
/help — эта справка`

const errorText = "⚠️ Что-то пошло не так, попробуйте позже."

// Телеграм не принимает сообщения длиннее 4096 символов,
// поэтому списки обрезаем, а полное число пишем в подвал.
const (
	maxListOrders = 15
	maxListEvents = 20
)

func (b *Bot) cmdStart(ctx context.Context, chatID string) string {
	// Подписываем сразу, как делает десктопная связка: /start = включить уведомления.
	if err := b.subs.Subscribe(ctx, chatID); err != nil {
		b.log.Error("subscribe on start", "chat_id", chatID, "err", err)
	}
	return "👋 Привет! Я бот отслеживания грузов Китай → Туркменистан.\n\n" +
		"Уведомления включены. /help — список команд."
}

func (b *Bot) cmdContacts() string {
	if b.contacts == "" {
		return "📞 Контакты не настроены."
	}
	return "📞 *Контакты:*\n\n" + b.contacts
}

func (b *Bot) cmdActive(ctx context.Context) string {
	orders, err := b.orders.ActiveOrders(ctx)
	if err != nil {
		b.log.Error("list active orders", "err", err)
		return errorText
	}
	return orderList("🚛 *Активные заказы:*", orders, "Активных заказов нет.")
}

func (b *Bot) cmdCompleted(ctx context.Context, args string) string {
	days := parseDays(args, 30)
	orders, err := b.orders.CompletedOrders(ctx, days)
	if err != nil {
		b.log.Error("list completed orders", "err", err)
		return errorText
	}
	title := fmt.Sprintf("✅ *Завершённые за %d дней:*", days)
	return orderList(title, orders, "Завершённых заказов за период нет.")
}

func (b *Bot) cmdToday(ctx context.Context) string {
	orders, err := b.orders.EventsToday(ctx)
	if err != nil {
		b.log.Error("events today", "err", err)
		return errorText
	}
	return orderList("📅 *События сегодня:*", orders, "Сегодня событий нет.")
}

func (b *Bot) cmdUpcoming(ctx context.Context, args string) string {
	days := parseDays(args, 7)
	events, err := b.orders.UpcomingEvents(ctx, days)
	if err != nil {
		b.log.Error("upcoming events", "err", err)
		return errorText
	}
	if len(events) == 0 {
		return fmt.Sprintf("На ближайшие %d дней событий нет.", days)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📅 *События на %d дней:*\n\n", days)
	shown := events
	if len(shown) > maxListEvents {
		shown = shown[:maxListEvents]
	}
	for _, ev := range shown {
		fmt.Fprintf(&sb, "• %s — *%s*: %s\n", ev.EventDate.Format("02.01"), ev.OrderNumber, ev.EventType)
	}
	if len(events) > maxListEvents {
		fmt.Fprintf(&sb, "\n… и ещё %d", len(events)-maxListEvents)
	}
	return sb.String()
}

func (b *Bot) cmdStatus(ctx context.Context, args string) string {
	if !format.ValidOrderNumber(args) {
		return "Укажите номер заказа: /status ORD-123"
	}
	o, err := b.orders.GetOrder(ctx, args)
	if err != nil {
		b.log.Error("get order", "order_number", args, "err", err)
		return errorText
	}
	if o == nil {
		return fmt.Sprintf("Заказ *%s* не найден.", args)
	}
	return format.OrderInfo(o)
}

func (b *Bot) cmdSearch(ctx context.Context, query string) string {
	if len(query) < 2 {
		return "Укажите текст для поиска: /search Acme"
	}
	orders, err := b.orders.SearchOrders(ctx, query)
	if err != nil {
		b.log.Error("search orders", "query", query, "err", err)
		return errorText
	}
	title := fmt.Sprintf("🔍 *Найдено по «%s»:*", format.Truncate(query, 40))
	return orderList(title, orders, "Ничего не найдено.")
}

func (b *Bot) cmdNoPhotos(ctx context.Context) string {
	orders, err := b.orders.OrdersWithoutPhoto(ctx)
	if err != nil {
		b.log.Error("orders without photo", "err", err)
		return errorText
	}
	return orderList("📷 *Без фото загрузки:*", orders, "У всех активных заказов есть фото.")
}

func (b *Bot) cmdNoDocs(ctx context.Context) string {
	orders, err := b.orders.OrdersWithoutDocs(ctx)
	if err != nil {
		b.log.Error("orders without docs", "err", err)
		return errorText
	}
	return orderList("📄 *Без полного пакета документов:*", orders, "Документы по всем активным заказам собраны.")
}

func (b *Bot) cmdReport(ctx context.Context, chatID, args string) string {
	if !format.ValidOrderNumber(args) {
		return "Укажите номер заказа: /report ORD-123"
	}
	o, err := b.orders.GetOrder(ctx, args)
	if err != nil {
		b.log.Error("get order for report", "order_number", args, "err", err)
		return errorText
	}
	if o == nil {
		return fmt.Sprintf("Заказ *%s* не найден.", args)
	}

	containers, err := b.orders.Containers(ctx, o.ID)
	if err != nil {
		b.log.Error("list containers", "order_id", o.ID, "err", err)
		return errorText
	}
	tasks, err := b.orders.Tasks(ctx, o.ID)
	if err != nil {
		b.log.Error("list tasks", "order_id", o.ID, "err", err)
		return errorText
	}

	pdf, err := report.OrderPDF(o, containers, tasks)
	if err != nil {
		b.log.Error("render order pdf", "order_number", args, "err", err)
		return errorText
	}

	name := fmt.Sprintf("order_%s.pdf", o.OrderNumber)
	if err := b.api.SendDocument(ctx, chatID, name, pdf, "Отчёт по заказу "+o.OrderNumber); err != nil {
		b.log.Error("send order pdf", "chat_id", chatID, "err", err)
		return errorText
	}
	return ""
}

func (b *Bot) cmdSummary(ctx context.Context, chatID, args string) string {
	days := parseDays(args, 30)
	stats, err := b.orders.Statistics(ctx, days)
	if err != nil {
		b.log.Error("statistics", "err", err)
		return errorText
	}
	active, err := b.orders.ActiveOrders(ctx)
	if err != nil {
		b.log.Error("list active orders", "err", err)
		return errorText
	}
	completed, err := b.orders.CompletedOrders(ctx, days)
	if err != nil {
		b.log.Error("list completed orders", "err", err)
		return errorText
	}

	pdf, err := report.SummaryPDF(stats, active, completed)
	if err != nil {
		b.log.Error("render summary pdf", "err", err)
		return errorText
	}

	name := fmt.Sprintf("summary_%dd.pdf", days)
	if err := b.api.SendDocument(ctx, chatID, name, pdf, fmt.Sprintf("Сводка за %d дней", days)); err != nil {
		b.log.Error("send summary pdf", "chat_id", chatID, "err", err)
		return errorText
	}
	return ""
}

func (b *Bot) cmdSubscribe(ctx context.Context, chatID string) string {
	if err := b.subs.Subscribe(ctx, chatID); err != nil {
		b.log.Error("subscribe", "chat_id", chatID, "err", err)
		return errorText
	}
	return "🔔 Уведомления включены. /settings — настройка типов."
}

func (b *Bot) cmdUnsubscribe(ctx context.Context, chatID string) string {
	if err := b.subs.Unsubscribe(ctx, chatID); err != nil {
		b.log.Error("unsubscribe", "chat_id", chatID, "err", err)
		return errorText
	}
	return "🔕 Уведомления выключены. /subscribe — включить обратно."
}

// /settings без аргументов показывает текущие настройки; с аргументами
// меняет: "events on", "reminders off", "alerts on", "hours 48".
func (b *Bot) cmdSettings(ctx context.Context, chatID, args string) string {
	if args == "" {
		sub, err := b.subs.Settings(ctx, chatID)
		if err != nil {
			b.log.Error("get settings", "chat_id", chatID, "err", err)
			return errorText
		}
		if sub == nil {
			return "Вы не подписаны. /subscribe — включить уведомления."
		}
		return settingsText(sub)
	}

	field, value, _ := strings.Cut(args, " ")
	value = strings.TrimSpace(value)

	var settings models.SubscriptionSettings
	switch field {
	case "events", "reminders", "alerts":
		on, ok := parseOnOff(value)
		if !ok {
			return fmt.Sprintf("Используйте: /settings %s on|off", field)
		}
		switch field {
		case "events":
			settings.NotifyEvents = &on
		case "reminders":
			settings.NotifyReminders = &on
		case "alerts":
			settings.NotifyAlerts = &on
		}
	case "hours":
		h, err := strconv.Atoi(value)
		if err != nil {
			return "Используйте: /settings hours <1-168>"
		}
		settings.HoursBefore = &h
	default:
		return "Используйте: /settings [events|reminders|alerts on|off] [hours N]"
	}

	if err := b.subs.UpdateSettings(ctx, chatID, settings); err != nil {
		b.log.Error("update settings", "chat_id", chatID, "err", err)
		return "Не получилось сохранить: " + err.Error()
	}
	return "✅ Настройки сохранены."
}

func settingsText(sub *models.Subscription) string {
	onOff := func(b bool) string {
		if b {
			return "включены"
		}
		return "выключены"
	}
	var sb strings.Builder
	sb.WriteString("⚙️ *Настройки уведомлений:*\n\n")
	fmt.Fprintf(&sb, "📅 События: %s\n", onOff(sub.NotifyEvents))
	fmt.Fprintf(&sb, "🔔 Напоминания: %s\n", onOff(sub.NotifyReminders))
	fmt.Fprintf(&sb, "⚠️ Оповещения: %s\n", onOff(sub.NotifyAlerts))
	fmt.Fprintf(&sb, "⏳ Напоминать за: %d ч.\n\n", sub.HoursBefore)
	sb.WriteString("Изменить: /settings events on|off, /settings hours 48")
	return sb.String()
}

func orderList(title string, orders []*models.Order, empty string) string {
	if len(orders) == 0 {
		return empty
	}
	var sb strings.Builder
	sb.WriteString(title)
	sb.WriteString("\n\n")
	shown := orders
	if len(shown) > maxListOrders {
		shown = shown[:maxListOrders]
	}
	for _, o := range shown {
		sb.WriteString(format.OrderLine(o))
		sb.WriteString("\n")
	}
	if len(orders) > maxListOrders {
		fmt.Fprintf(&sb, "\n… и ещё %d", len(orders)-maxListOrders)
	}
	fmt.Fprintf(&sb, "\nВсего: %d", len(orders))
	return sb.String()
}

func parseDays(args string, def int) int {
	if args == "" {
		return def
	}
	n, err := strconv.Atoi(strings.Fields(args)[0])
	if err != nil || n <= 0 || n > 365 {
		return def
	}
	return n
}

func parseOnOff(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "on", "да", "вкл":
		return true, true
	case "off", "нет", "выкл":
		return false, true
	}
	return false, false
}
