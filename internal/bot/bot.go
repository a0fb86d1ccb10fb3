// Package bot — Telegram-интерфейс поверх сервиса заказов: команды
// просмотра, поиска, отчётов и управления подпиской.
package bot

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/margiana/cargotrack/internal/integrations/telegram"
	"github.com/margiana/cargotrack/internal/models"
)

type OrdersService interface {
	GetOrder(ctx context.Context, orderNumber string) (*models.Order, error)
	ActiveOrders(ctx context.Context) ([]*models.Order, error)
	CompletedOrders(ctx context.Context, days int) ([]*models.Order, error)
	SearchOrders(ctx context.Context, query string) ([]*models.Order, error)
	OrdersWithoutPhoto(ctx context.Context) ([]*models.Order, error)
	OrdersWithoutDocs(ctx context.Context) ([]*models.Order, error)
	Containers(ctx context.Context, orderID uint64) ([]*models.Container, error)
	Tasks(ctx context.Context, orderID uint64) ([]*models.Task, error)
	EventsToday(ctx context.Context) ([]*models.Order, error)
	UpcomingEvents(ctx context.Context, days int) ([]*models.UpcomingEvent, error)
	Statistics(ctx context.Context, days int) (*models.Statistics, error)
}

type Subscriptions interface {
	Subscribe(ctx context.Context, chatID string) error
	Unsubscribe(ctx context.Context, chatID string) error
	Settings(ctx context.Context, chatID string) (*models.Subscription, error)
	UpdateSettings(ctx context.Context, chatID string, settings models.SubscriptionSettings) error
}

// API — нужная боту часть telegram-клиента.
type API interface {
	SendMessage(ctx context.Context, chatID, text string) error
	SendDocument(ctx context.Context, chatID, filename string, data []byte, caption string) error
	GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]telegram.Update, error)
}

type Bot struct {
	api      API
	orders   OrdersService
	subs     Subscriptions
	contacts string
	log      *slog.Logger

	pollTimeoutSec int
}

func New(api API, orders OrdersService, subs Subscriptions, contacts string, log *slog.Logger) *Bot {
	if log == nil {
		log = slog.Default()
	}
	return &Bot{
		api:            api,
		orders:         orders,
		subs:           subs,
		contacts:       contacts,
		log:            log,
		pollTimeoutSec: 30,
	}
}

// Run крутит long polling до отмены контекста. Ошибка одного апдейта
// не роняет цикл.
func (b *Bot) Run(ctx context.Context) error {
	var offset int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		updates, err := b.api.GetUpdates(ctx, offset, b.pollTimeoutSec)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.log.Error("get updates", "err", err)
			time.Sleep(3 * time.Second)
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			if u.Message == nil || u.Message.Text == "" {
				continue
			}
			b.handleMessage(ctx, u.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *telegram.Message) {
	chatID := strconv.FormatInt(msg.Chat.ID, 10)

	cmd, args := splitCommand(msg.Text)
	reply := b.dispatch(ctx, chatID, cmd, args)
	if reply == "" {
		return
	}
	if err := b.api.SendMessage(ctx, chatID, reply); err != nil {
		b.log.Error("send reply", "chat_id", chatID, "cmd", cmd, "err", err)
	}
}

// splitCommand выделяет команду и хвост: "/status ORD-1" -> ("/status", "ORD-1").
// Суффикс @botname отбрасывается.
func splitCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	cmd, args, _ := strings.Cut(text, " ")
	if i := strings.Index(cmd, "@"); i > 0 {
		cmd = cmd[:i]
	}
	return cmd, strings.TrimSpace(args)
}

func (b *Bot) dispatch(ctx context.Context, chatID, cmd, args string) string {
	switch cmd {
	case "/start":
		return b.cmdStart(ctx, chatID)
	case "/help":
		return helpText
	case "/contacts":
		return b.cmdContacts()
	case "/active":
		return b.cmdActive(ctx)
	case "/completed":
		return b.cmdCompleted(ctx, args)
	case "/today":
		return b.cmdToday(ctx)
	case "/upcoming":
		return b.cmdUpcoming(ctx, args)
	case "/status":
		return b.cmdStatus(ctx, args)
	case "/search":
		return b.cmdSearch(ctx, args)
	case "/nophotos":
		return b.cmdNoPhotos(ctx)
	case "/nodocs":
		return b.cmdNoDocs(ctx)
	case "/report":
		return b.cmdReport(ctx, chatID, args)
	case "/summary":
		return b.cmdSummary(ctx, chatID, args)
	case "/subscribe":
		return b.cmdSubscribe(ctx, chatID)
	case "/unsubscribe":
		return b.cmdUnsubscribe(ctx, chatID)
	case "/settings":
		return b.cmdSettings(ctx, chatID, args)
	}
	if strings.HasPrefix(cmd, "/") {
		return "Неизвестная команда. /help — список команд."
	}
	// Голый текст трактуем как поиск.
	return b.cmdSearch(ctx, strings.TrimSpace(cmd+" "+args))
}
