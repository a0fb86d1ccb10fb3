package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/margiana/cargotrack/internal/api/cargoapi"
	"github.com/margiana/cargotrack/internal/broker/kafka"
	"github.com/margiana/cargotrack/internal/services/orders"
)

type cargoAPIOpts struct {
	httpAddr    string
	apiKey      string
	swaggerPath string

	onListen func(httpAddr string)
}

// topicPublisher привязывает продюсер к одному топику.
type topicPublisher struct {
	producer *kafka.Producer
	topic    string
}

func (tp topicPublisher) Publish(ctx context.Context, key, value []byte) error {
	return tp.producer.Publish(ctx, tp.topic, key, value)
}

func runCargoAPI(ctx context.Context, opts cargoAPIOpts, svc *orders.Service) error {
	api := cargoapi.New(svc, slog.Default())
	router := cargoapi.NewRouter(api, cargoapi.RouterOpts{
		APIKey:      opts.apiKey,
		SwaggerPath: opts.swaggerPath,
	})

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	srv := &http.Server{Handler: router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	slog.Info("cargo-api started", "addr", lis.Addr().String())
	if err := srv.Serve(lis); err != nil && err != http.ErrServerClosed {
		return err
	}
	return ctx.Err()
}
