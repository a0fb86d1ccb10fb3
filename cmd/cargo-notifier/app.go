package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/margiana/cargotrack/config"
	"github.com/margiana/cargotrack/internal/bot"
	"github.com/margiana/cargotrack/internal/broker/kafka"
	"github.com/margiana/cargotrack/internal/broker/messages"
	"github.com/margiana/cargotrack/internal/cache"
	"github.com/margiana/cargotrack/internal/cache/rediscache"
	"github.com/margiana/cargotrack/internal/integrations/telegram"
	"github.com/margiana/cargotrack/internal/services/notify"
	"github.com/margiana/cargotrack/internal/services/orders"
	"github.com/margiana/cargotrack/internal/storage/pgcargo"
)

// Storage покрывает и планировщик уведомлений, и сервис заказов.
type Storage interface {
	notify.Repository
	orders.Repository
}

type kafkaConsumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
}

// TelegramAPI — telegram-клиент целиком: доставка для свипера и
// канал команд для бота.
type TelegramAPI interface {
	notify.Sender
	bot.API
}

type notifierFactories struct {
	newStorage     func(cfg *config.Config) (Storage, func(), error)
	newConsumer    func(cfg *config.Config, topic string) kafkaConsumer
	newTelegram    func(cfg *config.Config) TelegramAPI
	newRateLimiter func(cfg *config.Config) notify.RateLimiter
	newCache       func(cfg *config.Config) cache.BytesCache
}

func defaultNotifierFactories() notifierFactories {
	return notifierFactories{
		newStorage: func(cfg *config.Config) (Storage, func(), error) {
			sslMode := cfg.Database.SSLMode
			if sslMode == "" {
				sslMode = "disable"
			}
			connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
				cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
			st, err := pgcargo.New(connString)
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newConsumer: func(cfg *config.Config, topic string) kafkaConsumer {
			brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
			group := cfg.CargoTrack.KafkaConsumerGroup
			if group == "" {
				group = "cargo-notifier"
			}
			return kafka.NewConsumer(brokers, topic, group)
		},
		newTelegram: func(cfg *config.Config) TelegramAPI {
			return telegram.New(cfg.Telegram.BaseURL, cfg.Telegram.BotToken)
		},
		newRateLimiter: func(cfg *config.Config) notify.RateLimiter {
			redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
			return rediscache.NewRateLimiter(redisAddr)
		},
		newCache: func(cfg *config.Config) cache.BytesCache {
			redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
			return rediscache.New(redisAddr)
		},
	}
}

func RunCargoNotifier(ctx context.Context, cfg *config.Config, f notifierFactories) error {
	topic := cfg.Kafka.OrderSyncedTopicName
	if topic == "" {
		topic = "order.synced"
	}
	scheduleInterval := time.Duration(cfg.CargoTrack.ScheduleIntervalSeconds) * time.Second
	deliverInterval := time.Duration(cfg.CargoTrack.DeliverIntervalSeconds) * time.Second
	lookahead := time.Duration(cfg.CargoTrack.DeliverLookaheadSeconds) * time.Second
	cacheTTL := time.Duration(cfg.CargoTrack.CurrentOrderTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}

	st, closeFn, err := f.newStorage(cfg)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}

	tg := f.newTelegram(cfg)
	rl := f.newRateLimiter(cfg)

	scheduler := notify.NewScheduler(st)
	registry := notify.NewRegistry(st)
	sweeper := notify.NewSweeper(scheduler, st, tg, rl).
		WithSettings(scheduleInterval, deliverInterval, lookahead, cfg.CargoTrack.TelegramRatePerMinute)

	ordersSvc := orders.New(st, nil, f.newCache(cfg), cacheTTL, nil)
	chatBot := bot.New(tg, ordersSvc, registry, cfg.Telegram.Contacts, nil)

	consumer := f.newConsumer(cfg, topic)

	sweeperErr := make(chan error, 1)
	go func() { sweeperErr <- sweeper.Run(ctx) }()

	botErr := make(chan error, 1)
	go func() { botErr <- chatBot.Run(ctx) }()

	go func() {
		slog.Info("kafka consumer started", "topic", topic)
		_ = consumer.Consume(ctx, func(_, value []byte) error {
			return handleOrderSynced(ctx, scheduler, value)
		})
	}()

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- runNotifierHTTPServer(ctx, notifierHTTPOpts{
			httpAddr:    cfg.CargoTrack.NotifierHTTPAddr,
			swaggerPath: cfg.CargoTrack.SwaggerPath,
			sweeper:     sweeper,
			cfg:         cfg,
		})
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-sweeperErr:
		return err
	case err := <-botErr:
		return err
	case err := <-httpErr:
		return err
	}
}

// handleOrderSynced превращает событие синхронизации в alert-рассылку.
// Оповещаем только о смене статуса существующего заказа: создание и
// рядовые правки полей шума не стоят.
func handleOrderSynced(ctx context.Context, scheduler *notify.Scheduler, value []byte) error {
	var m messages.OrderSynced
	if err := json.Unmarshal(value, &m); err != nil {
		return err
	}
	if m.OrderNumber == "" {
		return nil
	}
	alertType := "status_change"
	text := fmt.Sprintf("Статус заказа изменён на: %s", m.Status)
	if m.Created {
		alertType = "new_order"
		text = "Заказ добавлен в систему"
	} else if m.Status == "" {
		return nil
	}

	n, err := scheduler.CreateAlert(ctx, m.OrderNumber, alertType, text)
	if err != nil {
		slog.Error("create sync alert", "order_number", m.OrderNumber, "type", alertType, "error", err.Error())
		return err
	}
	if n > 0 {
		slog.Info("sync alert scheduled", "order_number", m.OrderNumber, "type", alertType, "recipients", n)
	}
	return nil
}
