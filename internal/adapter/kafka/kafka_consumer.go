package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"github.com/aq2208/gstore-api/internal/entity"
	"github.com/aq2208/gstore-api/internal/logging"
	"github.com/aq2208/gstore-api/internal/usecase"
)

// HandlerFunc processes a decoded event.
type HandlerFunc func(ctx context.Context, ev usecase.StockAdjustedMsg) error

// Consumer consumes a topic with a single handler.
type Consumer struct {
	Group  sarama.ConsumerGroup
	Topics []string
	Handle HandlerFunc
	Logger *slog.Logger
}

func NewConsumer(group sarama.ConsumerGroup, topics []string, h HandlerFunc) *Consumer {
	return &Consumer{
		Group:  group,
		Topics: topics,
		Handle: h,
		Logger: logging.New("kafka-consumer"),
	}
}

// Start blocks until ctx is cancelled or the group fails.
func (c *Consumer) Start(ctx context.Context) error {
	go func() {
		for err := range c.Group.Errors() {
			c.Logger.Error("consumer group error", "err", err)
		}
	}()

	handler := &cgHandler{handle: c.Handle, logger: c.Logger, retryDelay: retryDelay}
	for {
		if err := c.Group.Consume(ctx, c.Topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		// When Consume returns, it’s because ctx was cancelled or a rebalance happened.
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// retryDelay paces the restarts of a claim whose handler keeps failing.
const retryDelay = time.Second

type cgHandler struct {
	handle     HandlerFunc
	logger     *slog.Logger
	retryDelay time.Duration
}

func (h *cgHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *cgHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *cgHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		log := h.logger.With("topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)

		var ev usecase.StockAdjustedMsg
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			log.Error("kafka decode error", "err", err)
			// mark to avoid reprocessing poison
			sess.MarkMessage(msg, "decode-error")
			continue
		}

		ctx := logging.WithCtx(sess.Context(), log)
		err := h.handle(ctx, ev)
		switch {
		case err == nil:
			sess.MarkMessage(msg, "")
		case permanent(err):
			// retrying cannot fix an unknown product or a bad delta
			log.Warn("event rejected", "product_id", ev.ProductID, "delta", ev.Delta, "err", err)
			sess.MarkMessage(msg, "rejected")
		default:
			log.Error("handler error", "key", string(msg.Key), "err", err)
			// Marking any later offset would commit past this one. End the claim
			// instead so the next session redelivers from the last mark.
			h.pause(sess.Context())
			return fmt.Errorf("offset %d: %w", msg.Offset, err)
		}
	}
	return nil
}

func (h *cgHandler) pause(ctx context.Context) {
	if h.retryDelay <= 0 {
		return
	}
	t := time.NewTimer(h.retryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func permanent(err error) bool {
	return errors.Is(err, entity.ErrNotFound) ||
		errors.Is(err, entity.ErrInvalidRequest) ||
		errors.Is(err, entity.ErrInsufficientStock)
}
