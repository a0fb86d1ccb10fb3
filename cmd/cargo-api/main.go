package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/margiana/cargotrack/config"
	"github.com/margiana/cargotrack/internal/broker/kafka"
	"github.com/margiana/cargotrack/internal/cache/rediscache"
	"github.com/margiana/cargotrack/internal/services/orders"
	"github.com/margiana/cargotrack/internal/storage/pgcargo"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	httpAddr := cfg.CargoTrack.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	if cfg.CargoTrack.APIKey == "" {
		panic("cargotrack.api_key is required")
	}
	topic := cfg.Kafka.OrderSyncedTopicName
	if topic == "" {
		topic = "order.synced"
	}
	cacheTTL := time.Duration(cfg.CargoTrack.CurrentOrderTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}

	sslMode := cfg.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
	st, err := pgcargo.New(connString)
	if err != nil {
		panic(err)
	}
	defer st.Close()

	redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	rc := rediscache.New(redisAddr)

	brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
	producer := kafka.NewProducer(brokers)
	defer func() { _ = producer.Close() }()

	svc := orders.New(st, topicPublisher{producer: producer, topic: topic}, rc, cacheTTL, nil)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := runCargoAPI(ctx, cargoAPIOpts{
		httpAddr:    httpAddr,
		apiKey:      cfg.CargoTrack.APIKey,
		swaggerPath: cfg.CargoTrack.SwaggerPath,
	}, svc); err != nil && err != context.Canceled {
		panic(err)
	}
}
