package interfaces

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"orderflow/internal/pkg/logger"
	"orderflow/internal/pkg/mq"
	"orderflow/internal/service/order/domain"
)

const PaymentSucceededTopic = "payment.succeeded"

// MessageReader 是 *kafka.Reader 的子集，便于测试替换
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// PaymentEventHandler 处理反序列化后的支付成功事件
type PaymentEventHandler interface {
	HandlePaymentSucceeded(ctx context.Context, event *domain.PaymentSucceeded) error
}

// FailureHandler 接收处理失败的消息，由 mq.FailureHandler 实现
type FailureHandler interface {
	Handle(ctx context.Context, msg kafka.Message, cause error)
}

// ErrMalformedEvent 表示消息体无法解析或缺少有效的 orderId
var ErrMalformedEvent = errors.New("malformed payment.succeeded event")

// PaymentSucceededConsumer 是一个驱动适配器，它监听 payment.succeeded 并驱动应用服务。
type PaymentSucceededConsumer struct {
	reader         MessageReader
	handler        PaymentEventHandler
	failureHandler FailureHandler
	retryBackoff   time.Duration
}

// NewPaymentSucceededConsumer 创建一个新的 Kafka 消费者适配器。
func NewPaymentSucceededConsumer(reader MessageReader, handler PaymentEventHandler, failureHandler FailureHandler) *PaymentSucceededConsumer {
	return &PaymentSucceededConsumer{
		reader:         reader,
		handler:        handler,
		failureHandler: failureHandler,
		retryBackoff:   time.Second,
	}
}

// Run 阻塞消费直到 ctx 被取消。处理失败的消息交给 FailureHandler 后照常提交 offset。
func (c *PaymentSucceededConsumer) Run(ctx context.Context) error {
	logger.Ctx(ctx).Info().Str("topic", PaymentSucceededTopic).Msg("payment consumer started")
	for {
		// 使用 FetchMessage 而不是 ReadMessage，以便手动控制提交
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			// reader 被关闭时返回 io.EOF
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				logger.Ctx(ctx).Info().Msg("payment consumer shutting down")
				return nil
			}
			logger.Ctx(ctx).Error().Err(err).Msg("could not fetch message, retrying")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.retryBackoff):
			}
			continue
		}

		msgCtx := mq.ExtractTraceContext(ctx, msg.Headers)
		if err := c.processMessage(msgCtx, msg); err != nil {
			c.failureHandler.Handle(msgCtx, msg, err)
		}

		// 无论成功或失败（已移交死信），都提交 offset
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			logger.Ctx(ctx).Error().Err(err).Int64("offset", msg.Offset).Msg("failed to commit message")
		}
	}
}

// Close 关闭底层 reader，使阻塞中的 FetchMessage 返回
func (c *PaymentSucceededConsumer) Close() error {
	return c.reader.Close()
}

// processMessage 反序列化消息并调用应用服务。
func (c *PaymentSucceededConsumer) processMessage(ctx context.Context, msg kafka.Message) error {
	event, err := decodePaymentSucceeded(msg.Value)
	if err != nil {
		paymentEvents.WithLabelValues(outcomeMalformed).Inc()
		return err
	}

	if err := c.handler.HandlePaymentSucceeded(ctx, event); err != nil {
		paymentEvents.WithLabelValues(outcomeFailed).Inc()
		return errors.Wrapf(err, "handle payment for order %s", event.OrderID)
	}
	paymentEvents.WithLabelValues(outcomeProcessed).Inc()
	return nil
}

func decodePaymentSucceeded(value []byte) (*domain.PaymentSucceeded, error) {
	var event domain.PaymentSucceeded
	if err := json.Unmarshal(value, &event); err != nil {
		return nil, errors.Wrapf(ErrMalformedEvent, "decode: %v", err)
	}
	if _, err := uuid.Parse(event.OrderID); err != nil {
		return nil, errors.Wrapf(ErrMalformedEvent, "orderId %q", event.OrderID)
	}
	return &event, nil
}
