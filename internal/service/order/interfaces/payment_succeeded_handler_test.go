package interfaces

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderflow/internal/pkg/mq"
	"orderflow/internal/service/order/domain"
)

// fakeReader 依次返回预置的消息，取完后阻塞到 ctx 取消
type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return kafka.Message{}, io.EOF
	}
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) committedOffsets() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

type recordingHandler struct {
	mu     sync.Mutex
	events []*domain.PaymentSucceeded
	err    error
}

func (h *recordingHandler) HandlePaymentSucceeded(_ context.Context, e *domain.PaymentSucceeded) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
	return h.err
}

type recordingWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) written() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.msgs...)
}

func runConsumer(t *testing.T, reader *fakeReader, handler PaymentEventHandler, dlt *recordingWriter, want int) {
	t.Helper()
	c := NewPaymentSucceededConsumer(reader, handler, mq.NewFailureHandler(dlt))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return len(reader.committedOffsets()) == want }, 2*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestPaymentConsumerDispatchesEvents(t *testing.T) {
	orderID := uuid.NewString()
	reader := &fakeReader{msgs: []kafka.Message{
		{Topic: PaymentSucceededTopic, Offset: 1, Value: []byte(`{"stripePaymentId":"ch_1","orderId":"` + orderID + `","receiptUrl":"https://r"}`)},
	}}
	handler := &recordingHandler{}
	dlt := &recordingWriter{}

	runConsumer(t, reader, handler, dlt, 1)

	require.Len(t, handler.events, 1)
	assert.Equal(t, orderID, handler.events[0].OrderID)
	assert.Equal(t, "ch_1", handler.events[0].PaymentID)
	assert.Equal(t, "https://r", handler.events[0].ReceiptURL)
	assert.Empty(t, dlt.written())
}

func TestPaymentConsumerForwardsMalformedToDLT(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{
		{Topic: PaymentSucceededTopic, Offset: 7, Value: []byte(`not json`)},
		{Topic: PaymentSucceededTopic, Offset: 8, Value: []byte(`{"stripePaymentId":"ch_2"}`)},
		{Topic: PaymentSucceededTopic, Offset: 9, Value: []byte(`{"orderId":"42"}`)},
	}}
	handler := &recordingHandler{}
	dlt := &recordingWriter{}

	runConsumer(t, reader, handler, dlt, 3)

	assert.Empty(t, handler.events)
	written := dlt.written()
	require.Len(t, written, 3)
	assert.Equal(t, PaymentSucceededTopic, mq.Header(written[0].Headers, mq.HeaderOriginalTopic))
	assert.Equal(t, "7", mq.Header(written[0].Headers, mq.HeaderOriginalOffset))
	assert.Contains(t, mq.Header(written[1].Headers, mq.HeaderExceptionMessage), "malformed")
	assert.Equal(t, []int64{7, 8, 9}, reader.committedOffsets())
}

func TestPaymentConsumerForwardsHandlerErrors(t *testing.T) {
	orderID := uuid.NewString()
	reader := &fakeReader{msgs: []kafka.Message{
		{Topic: PaymentSucceededTopic, Offset: 3, Value: []byte(`{"orderId":"` + orderID + `"}`)},
	}}
	handler := &recordingHandler{err: errors.New("database is locked")}
	dlt := &recordingWriter{}

	runConsumer(t, reader, handler, dlt, 1)

	written := dlt.written()
	require.Len(t, written, 1)
	assert.Contains(t, mq.Header(written[0].Headers, mq.HeaderExceptionMessage), "database is locked")
}

func TestPaymentConsumerStopsWhenReaderClosed(t *testing.T) {
	reader := &fakeReader{}
	c := NewPaymentSucceededConsumer(reader, &recordingHandler{}, mq.NewFailureHandler(&recordingWriter{}))
	require.NoError(t, c.Close())
	assert.NoError(t, c.Run(context.Background()))
}

func TestDecodePaymentSucceeded(t *testing.T) {
	id := uuid.NewString()
	event, err := decodePaymentSucceeded([]byte(`{"stripePaymentId":"ch_9","orderId":"` + id + `"}`))
	require.NoError(t, err)
	assert.Equal(t, id, event.OrderID)

	_, err = decodePaymentSucceeded([]byte(`{"orderId":""}`))
	assert.ErrorIs(t, err, ErrMalformedEvent)
}

func TestDltConsumerCommitsDeadLetters(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{
		{Topic: "payment.succeeded.dlt", Offset: 1, Value: []byte(`x`), Headers: []kafka.Header{
			{Key: mq.HeaderOriginalTopic, Value: []byte(PaymentSucceededTopic)},
		}},
	}}
	c := NewDltConsumer(reader, "payment.succeeded.dlt")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return len(reader.committedOffsets()) == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}
