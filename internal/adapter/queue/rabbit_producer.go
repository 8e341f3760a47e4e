package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/aq2208/gstore-api/internal/usecase"
)

const (
	NotificationExchange = "store.notifications"
	StatusChangedKey     = "order.status_changed"
	StatusChangedQueue   = "order.status_changed.q"
)

// Topology is the part of *amqp.Channel used to declare exchanges and queues.
type Topology interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// Publisher is the part of *amqp.Channel the producer publishes through.
type Publisher interface {
	PublishWithDeferredConfirmWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (*amqp.DeferredConfirmation, error)
}

// DeclareTopology sets up the notification exchange, queue and binding. Safe to repeat.
func DeclareTopology(ch Topology) error {
	// 1. declare exchange (topic type, durable)
	if err := ch.ExchangeDeclare(
		NotificationExchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	// 2. declare queue
	q, err := ch.QueueDeclare(
		StatusChangedQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// 3. bind queue → exchange
	if err := ch.QueueBind(q.Name, StatusChangedKey, NotificationExchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	return nil
}

// RabbitProducer implements usecase.Notifier by queueing the message for the mail worker.
type RabbitProducer struct {
	ch Publisher
}

// NewRabbitProducer expects ch to be in confirm mode (see Connect) so Notify
// returns only once the broker has taken the message.
func NewRabbitProducer(ch Publisher) *RabbitProducer {
	return &RabbitProducer{ch: ch}
}

func (p *RabbitProducer) Notify(ctx context.Context, n usecase.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // survive broker restarts
		MessageId:    strconv.FormatInt(n.OrderID, 10) + ":" + n.Status,
		Type:         StatusChangedKey,
		Body:         body,
	}

	conf, err := p.ch.PublishWithDeferredConfirmWithContext(ctx, NotificationExchange, StatusChangedKey, false, false, pub)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	if conf == nil {
		return nil
	}
	acked, err := conf.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("await confirm: %w", err)
	}
	if !acked {
		return fmt.Errorf("publish: broker nacked order %d", n.OrderID)
	}
	return nil
}

var _ usecase.Notifier = (*RabbitProducer)(nil)
