package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aq2208/gstore-api/internal/entity"
	"github.com/aq2208/gstore-api/internal/logging"
	"github.com/aq2208/gstore-api/internal/usecase"
)

type fakeSession struct {
	marked map[int64]string
}

func (s *fakeSession) Claims() map[string][]int32                        { return nil }
func (s *fakeSession) MemberID() string                                  { return "m" }
func (s *fakeSession) GenerationID() int32                               { return 1 }
func (s *fakeSession) MarkOffset(string, int32, int64, string)           {}
func (s *fakeSession) Commit()                                           {}
func (s *fakeSession) ResetOffset(string, int32, int64, string)          {}
func (s *fakeSession) Context() context.Context                          { return context.Background() }
func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, m string) { s.marked[msg.Offset] = m }

type fakeClaim struct{ ch chan *sarama.ConsumerMessage }

func (c fakeClaim) Topic() string                            { return "inventory.stock_adjusted" }
func (c fakeClaim) Partition() int32                         { return 0 }
func (c fakeClaim) InitialOffset() int64                     { return 0 }
func (c fakeClaim) HighWaterMarkOffset() int64               { return 0 }
func (c fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.ch }

type stockRecorder struct {
	calls []usecase.StockAdjustedMsg
	errs  map[int64]error
}

func (r *stockRecorder) AdjustStock(_ context.Context, id int64, delta int) error {
	if err := r.errs[id]; err != nil {
		return err
	}
	r.calls = append(r.calls, usecase.StockAdjustedMsg{ProductID: id, Delta: delta})
	return nil
}

func TestConsumeClaim_MarksHandledRejectedAndPoison(t *testing.T) {
	rec := &stockRecorder{errs: map[int64]error{404: entity.ErrProductNotFound}}
	h := &cgHandler{handle: NewStockAdjustedHandler(rec).Handle, logger: logging.New("test")}

	msgs := make(chan *sarama.ConsumerMessage, 3)
	msgs <- &sarama.ConsumerMessage{Offset: 1, Value: []byte(`{"productId":7,"delta":12,"reason":"restock"}`)}
	msgs <- &sarama.ConsumerMessage{Offset: 2, Value: []byte(`{"productId":404,"delta":1}`)}
	msgs <- &sarama.ConsumerMessage{Offset: 3, Value: []byte(`garbage`)}
	close(msgs)

	sess := &fakeSession{marked: map[int64]string{}}
	require.NoError(t, h.ConsumeClaim(sess, fakeClaim{ch: msgs}))

	assert.Equal(t, []usecase.StockAdjustedMsg{{ProductID: 7, Delta: 12}}, rec.calls)
	assert.Equal(t, "", sess.marked[1])
	assert.Equal(t, "rejected", sess.marked[2])
	assert.Equal(t, "decode-error", sess.marked[3])
}

func TestConsumeClaim_TransientErrorStopsBeforeLaterOffsets(t *testing.T) {
	rec := &stockRecorder{errs: map[int64]error{500: errors.New("db timeout")}}
	h := &cgHandler{handle: NewStockAdjustedHandler(rec).Handle, logger: logging.New("test")}

	msgs := make(chan *sarama.ConsumerMessage, 3)
	msgs <- &sarama.ConsumerMessage{Offset: 1, Value: []byte(`{"productId":7,"delta":2}`)}
	msgs <- &sarama.ConsumerMessage{Offset: 2, Value: []byte(`{"productId":500,"delta":5}`)}
	msgs <- &sarama.ConsumerMessage{Offset: 3, Value: []byte(`{"productId":8,"delta":1}`)}
	close(msgs)

	sess := &fakeSession{marked: map[int64]string{}}
	err := h.ConsumeClaim(sess, fakeClaim{ch: msgs})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db timeout")

	assert.Equal(t, map[int64]string{1: ""}, sess.marked)
	assert.Equal(t, []usecase.StockAdjustedMsg{{ProductID: 7, Delta: 2}}, rec.calls, "later events wait for redelivery")
}

func TestPermanent(t *testing.T) {
	assert.True(t, permanent(entity.ErrProductNotFound))
	assert.True(t, permanent(entity.ErrInsufficientStock))
	assert.True(t, permanent(entity.ErrInvalidRequest))
	assert.False(t, permanent(context.DeadlineExceeded))
}
