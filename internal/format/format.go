// Package format собирает тексты для Telegram: карточки заказов,
// события, напоминания, оповещения. Разметка — Telegram Markdown.
package format

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/margiana/cargotrack/internal/models"
)

const (
	dateLayout     = "02.01.2006"
	dateTimeLayout = "02.01.2006 15:04"
)

// Date форматирует дату, "-" для nil.
func Date(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(dateLayout)
}

func DateTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(dateTimeLayout)
}

func StatusEmoji(status models.OrderStatus) string {
	switch status {
	case models.StatusNew:
		return "🆕"
	case models.StatusInProgressCHN, models.StatusInProgressIR:
		return "🏭"
	case models.StatusInTransitCHNIR:
		return "🚢"
	case models.StatusInTransitIRTKM:
		return "🚛"
	case models.StatusCompleted:
		return "✅"
	case models.StatusCancelled:
		return "❌"
	}
	return "📋"
}

func eventEmoji(eventType string) string {
	switch eventType {
	case "Отплытие из Китая":
		return "🚢"
	case "Прибытие в Иран", "Прибытие в Туркменистан":
		return "🏁"
	case "Погрузка на грузовик":
		return "🚛"
	case "Получение клиентом":
		return "✅"
	}
	return "📅"
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// OrderInfo — полная карточка заказа для бота.
func OrderInfo(o *models.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s *ЗАКАЗ: %s*\n\n", StatusEmoji(o.Status), o.OrderNumber)

	fmt.Fprintf(&b, "*Основная информация:*\n")
	fmt.Fprintf(&b, "👤 Клиент: %s\n", o.ClientName)
	fmt.Fprintf(&b, "📦 Контейнеров: %d\n", o.ContainerCount)
	fmt.Fprintf(&b, "⚖️ Вес: %.0f кг\n", o.TotalWeight)
	fmt.Fprintf(&b, "📏 Объем: %.1f м³\n", o.TotalVolume)
	fmt.Fprintf(&b, "📍 Маршрут: %s\n", dash(o.Route))
	fmt.Fprintf(&b, "🏁 Транзитный порт: %s\n", dash(o.TransitPort))
	fmt.Fprintf(&b, "📦 Груз: %s\n", dash(o.GoodsType))
	fmt.Fprintf(&b, "📄 Документ: %s\n\n", dash(o.DocumentNumber))

	fmt.Fprintf(&b, "*Статус и даты:*\n")
	fmt.Fprintf(&b, "📝 Статус: %s\n", o.Status)
	fmt.Fprintf(&b, "📅 Создан: %s\n", Date(o.CreationDate))
	fmt.Fprintf(&b, "⏳ ETA: %s\n\n", Date(o.ETADate))

	fmt.Fprintf(&b, "*Китайская сторона:*\n")
	fmt.Fprintf(&b, "🏢 Компания: %s\n", dash(o.ChineseTransportCompany))
	fmt.Fprintf(&b, "🚢 Отплытие: %s\n\n", Date(o.DepartureDate))

	fmt.Fprintf(&b, "*Иранская сторона:*\n")
	fmt.Fprintf(&b, "🏢 Компания: %s\n", dash(o.IranianTransportCompany))
	fmt.Fprintf(&b, "🏁 Прибытие: %s\n", Date(o.ArrivalIranDate))
	fmt.Fprintf(&b, "🚛 Погрузка: %s\n\n", Date(o.TruckLoadingDate))

	fmt.Fprintf(&b, "*Туркменистан:*\n")
	fmt.Fprintf(&b, "🏁 Прибытие: %s\n", Date(o.ArrivalTurkmenistanDate))
	fmt.Fprintf(&b, "✅ Получение: %s\n\n", Date(o.ClientReceivingDate))

	fmt.Fprintf(&b, "*Документы:*\n")
	fmt.Fprintf(&b, "📷 Фото загрузки: %s\n", yesNo(o.HasLoadingPhoto))
	fmt.Fprintf(&b, "💰 Местные сборы: %s\n", yesNo(o.HasLocalCharges))
	fmt.Fprintf(&b, "📠 TLX: %s\n\n", yesNo(o.HasTex))

	fmt.Fprintf(&b, "*Дополнительно:*\n")
	fmt.Fprintf(&b, "📅 AN: %s\n", Date(o.ArrivalNoticeDate))
	fmt.Fprintf(&b, "📅 TKM: %s\n", Date(o.TKMDate))

	if o.Notes != "" {
		fmt.Fprintf(&b, "\n*Заметки:*\n%s\n", o.Notes)
	}
	return b.String()
}

// OrderLine — короткая строка для списков.
func OrderLine(o *models.Order) string {
	line := fmt.Sprintf("%s *%s* — %s (%s)", StatusEmoji(o.Status), o.OrderNumber, o.ClientName, o.Status)
	if d := DaysLeft(o.ETADate); d > 0 {
		line += fmt.Sprintf(", ETA %s (%d дн.)", Date(o.ETADate), d)
	}
	return line
}

func yesNo(b bool) string {
	if b {
		return "✅"
	}
	return "❌"
}

// EventMessage — уведомление о наступившем событии.
func EventMessage(o *models.Order, eventType string, eventDate time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s *СОБЫТИЕ: %s*\n\n", eventEmoji(eventType), eventType)
	fmt.Fprintf(&b, "📦 Заказ: *%s*\n", o.OrderNumber)
	fmt.Fprintf(&b, "👤 Клиент: %s\n", o.ClientName)
	fmt.Fprintf(&b, "📅 Дата: %s\n", eventDate.Format(dateTimeLayout))
	fmt.Fprintf(&b, "📍 Маршрут: %s\n\n", dash(o.Route))
	fmt.Fprintf(&b, "🔄 Статус обновлен автоматически.")
	return b.String()
}

// ReminderMessage — напоминание за hoursBefore часов до события.
func ReminderMessage(o *models.Order, eventType string, eventDate time.Time, hoursBefore int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s *НАПОМИНАНИЕ: %s*\n\n", eventEmoji(eventType), eventType)
	fmt.Fprintf(&b, "📦 Заказ: *%s*\n", o.OrderNumber)
	fmt.Fprintf(&b, "👤 Клиент: %s\n", o.ClientName)
	fmt.Fprintf(&b, "📅 Событие: %s\n", eventDate.Format(dateTimeLayout))
	fmt.Fprintf(&b, "⏳ Через: %d часов\n\n", hoursBefore)
	fmt.Fprintf(&b, "📍 Маршрут: %s\n", dash(o.Route))
	fmt.Fprintf(&b, "📦 Контейнеров: %d\n\n", o.ContainerCount)
	fmt.Fprintf(&b, "🔔 Не забудьте подготовиться к событию!")
	return b.String()
}

// AlertMessage — оповещение об изменении статуса или проблеме.
func AlertMessage(o *models.Order, alertType, alertText string) string {
	emoji := "🔔"
	switch alertType {
	case "status_change":
		emoji = "🔄"
	case "new_order":
		emoji = "🆕"
	case "problem":
		emoji = "⚠️"
	case "update":
		emoji = "📝"
	case "delay":
		emoji = "⏳"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *ОПОВЕЩЕНИЕ: %s*\n\n", emoji, strings.ToUpper(alertType))
	fmt.Fprintf(&b, "📦 Заказ: *%s*\n", o.OrderNumber)
	fmt.Fprintf(&b, "👤 Клиент: %s\n\n", o.ClientName)
	fmt.Fprintf(&b, "📝 Сообщение:\n%s\n\n", alertText)
	fmt.Fprintf(&b, "📋 Текущий статус: %s", o.Status)
	return b.String()
}

// ParseDate принимает форматы, в которых даты приходят из чата.
func ParseDate(s string) (time.Time, bool) {
	layouts := []string{
		"02.01.2006",
		"02.01.2006 15:04",
		"2006-01-02",
		"2006-01-02 15:04:05",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ValidOrderNumber — номер заказа содержит и буквы, и цифры, длина от 3.
func ValidOrderNumber(s string) bool {
	if len(s) < 3 {
		return false
	}
	hasLetter, hasDigit := false, false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
		}
		if unicode.IsDigit(r) {
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

// Truncate обрезает текст с многоточием; длина в рунах.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

// DaysLeft — дней до даты, не меньше нуля.
func DaysLeft(target *time.Time) int {
	if target == nil {
		return 0
	}
	d := int(time.Until(*target).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}
