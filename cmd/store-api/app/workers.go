package app

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/aq2208/gstore-api/configs"
	"github.com/aq2208/gstore-api/internal/adapter/kafka"
	"github.com/aq2208/gstore-api/internal/adapter/queue"
	"github.com/aq2208/gstore-api/internal/logging"
	"github.com/aq2208/gstore-api/internal/usecase"
)

// setupQueue consumes queued notifications on a channel of its own and mails them.
func setupQueue(ctx context.Context, conn *amqp.Connection, sender usecase.Notifier, prefetch int) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open consumer channel: %w", err)
	}

	h := queue.NewNotificationHandler(sender)

	opts := []queue.RouterOption{}
	if prefetch > 0 {
		opts = append(opts, queue.WithPrefetch(prefetch))
	}
	router := queue.NewRouter(ch, opts...)
	router.Register(queue.StatusChangedQueue, queue.JSONHandler[usecase.Notification]{HandleFunc: h.HandleNotification})

	return router.Start(ctx)
}

func setupKafkaListener(ctx context.Context, a *App, cfg configs.Config, catalog *usecase.Catalog) error {
	grp, err := kafka.NewGroup(cfg.Kafka.Brokers, cfg.Kafka.GroupID, kafka.GroupOptions{
		ClientID:    cfg.Kafka.ClientID,
		FromOldest:  cfg.Kafka.FromOldest,
		DialTimeout: cfg.Kafka.DialTimeout,
	})
	if err != nil {
		return fmt.Errorf("kafka group: %w", err)
	}

	h := kafka.NewStockAdjustedHandler(catalog)
	consumer := kafka.NewConsumer(grp, []string{cfg.Kafka.TopicStock}, h.Handle)

	// Run in background until ctx is cancelled
	a.goTracked(func() {
		defer grp.Close()
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logging.New("kafka-consumer").Error("consumer stopped", "err", err)
		}
	})
	return nil
}
