// internal/service/order/interfaces/dlt_handler.go
package interfaces

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/segmentio/kafka-go"

	"orderflow/internal/pkg/logger"
	"orderflow/internal/pkg/mq"
)

// DltConsumer 监听死信队列并记录日志
type DltConsumer struct {
	reader MessageReader
	topic  string
}

func NewDltConsumer(reader MessageReader, topic string) *DltConsumer {
	return &DltConsumer{reader: reader, topic: topic}
}

// Run 阻塞消费直到 ctx 被取消
func (a *DltConsumer) Run(ctx context.Context) error {
	logger.Ctx(ctx).Info().Str("topic", a.topic).Msg("DLT consumer started")
	for {
		msg, err := a.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				logger.Ctx(ctx).Info().Str("topic", a.topic).Msg("DLT consumer shutting down")
				return nil
			}
			logger.Ctx(ctx).Error().Err(err).Str("topic", a.topic).Msg("could not fetch dead letter")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		logDeadLetter(mq.ExtractTraceContext(ctx, msg.Headers), msg)

		// 死信只做记录，记录后即视为已处理
		if err := a.reader.CommitMessages(ctx, msg); err != nil {
			logger.Ctx(ctx).Error().Err(err).Msg("failed to commit dead letter")
		}
	}
}

func (a *DltConsumer) Close() error {
	return a.reader.Close()
}

func logDeadLetter(ctx context.Context, msg kafka.Message) {
	logger.Ctx(ctx).Error().
		Str("reason", "dead_letter_message_received").
		Str("original_topic", mq.Header(msg.Headers, mq.HeaderOriginalTopic)).
		Str("original_partition", mq.Header(msg.Headers, mq.HeaderOriginalPartition)).
		Str("original_offset", mq.Header(msg.Headers, mq.HeaderOriginalOffset)).
		Str("exception_fqcn", mq.Header(msg.Headers, mq.HeaderExceptionFqcn)).
		Str("exception_message", mq.Header(msg.Headers, mq.HeaderExceptionMessage)).
		Str("key", string(msg.Key)).
		Str("value", string(msg.Value)).
		Msg("dead letter message received")
}
