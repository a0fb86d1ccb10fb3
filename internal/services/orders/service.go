package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/margiana/cargotrack/internal/broker/messages"
	"github.com/margiana/cargotrack/internal/cache"
	"github.com/margiana/cargotrack/internal/format"
	"github.com/margiana/cargotrack/internal/models"
	"github.com/margiana/cargotrack/internal/storage/pgcargo"
)

type Repository interface {
	UpsertOrder(ctx context.Context, in models.OrderSyncInput) (pgcargo.UpsertResult, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListOrders(ctx context.Context, limit int) ([]*models.Order, error)
	ListOrdersByStatuses(ctx context.Context, statuses []models.OrderStatus) ([]*models.Order, error)
	ListActiveOrders(ctx context.Context) ([]*models.Order, error)
	ListCompletedOrders(ctx context.Context, from time.Time) ([]*models.Order, error)
	SearchOrders(ctx context.Context, text string) ([]*models.Order, error)
	ListOrdersWithoutPhoto(ctx context.Context) ([]*models.Order, error)
	ListOrdersWithoutDocs(ctx context.Context) ([]*models.Order, error)
	ListContainers(ctx context.Context, orderID uint64) ([]*models.Container, error)
	ListTasks(ctx context.Context, orderID uint64) ([]*models.Task, error)
	UpcomingEvents(ctx context.Context, from, to time.Time) ([]*models.UpcomingEvent, error)
	OrdersWithEventsToday(ctx context.Context) ([]*models.Order, error)
	Statistics(ctx context.Context, days int) (*models.Statistics, error)
}

// Publisher — продюсер событий синхронизации (kafka).
type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
}

// ErrValidation помечает отказ по входным данным. Транспорт отличает
// его от сбоя хранилища через errors.Is и отвечает 400, а не 500.
var ErrValidation = errors.New("validation failed")

type SyncResult struct {
	OrderID uint64
	Created bool
}

type Service struct {
	repo       Repository
	events     Publisher
	cache      cache.BytesCache
	currentTTL time.Duration
	log        *slog.Logger
}

func New(repo Repository, events Publisher, c cache.BytesCache, currentTTL time.Duration, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, events: events, cache: c, currentTTL: currentTTL, log: log}
}

// SyncOrder применяет частичное обновление заказа из десктопа.
// Непереданные поля не трогаются; контейнеры и задачи заменяются целиком,
// если массив прислан.
func (s *Service) SyncOrder(ctx context.Context, in models.OrderSyncInput, syncType string) (SyncResult, error) {
	if !format.ValidOrderNumber(in.OrderNumber) {
		return SyncResult{}, errors.Wrap(ErrValidation, "invalid order_number")
	}
	if in.Status != nil && !in.Status.Valid() {
		return SyncResult{}, errors.Wrapf(ErrValidation, "unknown status %q", *in.Status)
	}
	if in.ContainerCount != nil && *in.ContainerCount < 0 {
		return SyncResult{}, errors.Wrap(ErrValidation, "container_count must be non-negative")
	}

	res, err := s.repo.UpsertOrder(ctx, in)
	if err != nil {
		return SyncResult{}, errors.Wrap(err, "upsert order")
	}

	// Кэш текущего состояния устарел — сбрасываем.
	if s.cache != nil {
		_ = s.cache.Del(ctx, currentKey(in.OrderNumber))
	}

	s.publishSynced(ctx, res, in, syncType)

	return SyncResult{OrderID: res.OrderID, Created: res.Created}, nil
}

// publishSynced шлёт событие в kafka; ошибка не валит синхронизацию.
func (s *Service) publishSynced(ctx context.Context, res pgcargo.UpsertResult, in models.OrderSyncInput, syncType string) {
	if s.events == nil {
		return
	}
	msg := messages.OrderSynced{
		OrderID:     res.OrderID,
		OrderNumber: in.OrderNumber,
		Created:     res.Created,
		SyncType:    syncType,
		SyncedAt:    time.Now().UTC(),
	}
	if in.Status != nil {
		msg.Status = string(*in.Status)
	}
	b, err := json.Marshal(msg)
	if err != nil {
		s.log.Error("marshal order_synced", "err", err)
		return
	}
	if err := s.events.Publish(ctx, []byte(in.OrderNumber), b); err != nil {
		s.log.Error("publish order_synced", "order_number", in.OrderNumber, "err", err)
	}
}

// GetOrder читает заказ по номеру; "лучшее усилие" через redis.
func (s *Service) GetOrder(ctx context.Context, orderNumber string) (*models.Order, error) {
	if orderNumber == "" {
		return nil, errors.Wrap(ErrValidation, "orderNumber is required")
	}

	if s.cache != nil && s.currentTTL > 0 {
		if b, ok, err := s.cache.Get(ctx, currentKey(orderNumber)); err == nil && ok {
			var o models.Order
			if json.Unmarshal(b, &o) == nil {
				return &o, nil
			}
		}
	}

	o, err := s.repo.GetOrderByNumber(ctx, orderNumber)
	if err != nil || o == nil {
		return o, err
	}

	if s.cache != nil && s.currentTTL > 0 {
		if b, err := json.Marshal(o); err == nil {
			_ = s.cache.Set(ctx, currentKey(orderNumber), b, s.currentTTL)
		}
	}
	return o, nil
}

func (s *Service) ListOrders(ctx context.Context, limit int) ([]*models.Order, error) {
	return s.repo.ListOrders(ctx, limit)
}

func (s *Service) OrdersByStatus(ctx context.Context, status models.OrderStatus) ([]*models.Order, error) {
	if !status.Valid() {
		return nil, errors.Wrapf(ErrValidation, "unknown status %q", status)
	}
	return s.repo.ListOrdersByStatuses(ctx, []models.OrderStatus{status})
}

func (s *Service) ActiveOrders(ctx context.Context) ([]*models.Order, error) {
	return s.repo.ListActiveOrders(ctx)
}

// CompletedOrders — завершённые за последние days дней.
func (s *Service) CompletedOrders(ctx context.Context, days int) ([]*models.Order, error) {
	if days <= 0 {
		days = 30
	}
	from := time.Now().UTC().AddDate(0, 0, -days)
	return s.repo.ListCompletedOrders(ctx, from)
}

func (s *Service) SearchOrders(ctx context.Context, query string) ([]*models.Order, error) {
	if len(query) < 2 {
		return nil, errors.Wrap(ErrValidation, "query too short (min 2 chars)")
	}
	return s.repo.SearchOrders(ctx, query)
}

func (s *Service) OrdersWithoutPhoto(ctx context.Context) ([]*models.Order, error) {
	return s.repo.ListOrdersWithoutPhoto(ctx)
}

func (s *Service) OrdersWithoutDocs(ctx context.Context) ([]*models.Order, error) {
	return s.repo.ListOrdersWithoutDocs(ctx)
}

func (s *Service) Containers(ctx context.Context, orderID uint64) ([]*models.Container, error) {
	return s.repo.ListContainers(ctx, orderID)
}

func (s *Service) Tasks(ctx context.Context, orderID uint64) ([]*models.Task, error) {
	return s.repo.ListTasks(ctx, orderID)
}

// EventsToday — заказы, у которых хотя бы одна контрольная дата сегодня.
func (s *Service) EventsToday(ctx context.Context) ([]*models.Order, error) {
	return s.repo.OrdersWithEventsToday(ctx)
}

// UpcomingEvents — события-вехи в ближайшие days дней.
func (s *Service) UpcomingEvents(ctx context.Context, days int) ([]*models.UpcomingEvent, error) {
	if days <= 0 {
		days = 7
	}
	return s.UpcomingEventsWithin(ctx, time.Duration(days)*24*time.Hour)
}

// UpcomingEventsWithin — то же окно, но в часах (для API).
func (s *Service) UpcomingEventsWithin(ctx context.Context, within time.Duration) ([]*models.UpcomingEvent, error) {
	if within <= 0 {
		within = 48 * time.Hour
	}
	now := time.Now().UTC()
	return s.repo.UpcomingEvents(ctx, now, now.Add(within))
}

func (s *Service) Statistics(ctx context.Context, days int) (*models.Statistics, error) {
	if days <= 0 {
		days = 30
	}
	return s.repo.Statistics(ctx, days)
}

func currentKey(orderNumber string) string {
	return fmt.Sprintf("order:%s:current", orderNumber)
}
