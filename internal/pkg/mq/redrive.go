package mq

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/segmentio/kafka-go"

	"orderflow/internal/pkg/logger"
)

const dltHeaderPrefix = "dlt-"

// MessageFetcher 是 *kafka.Reader 的子集
type MessageFetcher interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Redrive 把死信主题中的消息重新投递回原始主题，直到 ctx 结束或达到 limit 条（limit <= 0 表示不限）。
// 没有原始主题头的消息无法投递，只提交不转发。
func Redrive(ctx context.Context, dlt MessageFetcher, writer MessageWriter, limit int) (int, error) {
	redriven := 0
	for limit <= 0 || redriven < limit {
		msg, err := dlt.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return redriven, nil
			}
			return redriven, err
		}

		target := Header(msg.Headers, HeaderOriginalTopic)
		if target == "" {
			logger.Ctx(ctx).Warn().Int64("offset", msg.Offset).Msg("dead letter has no original topic, skipping")
		} else {
			out := kafka.Message{
				Topic:   target,
				Key:     msg.Key,
				Value:   msg.Value,
				Headers: stripDeadLetterHeaders(msg.Headers),
			}
			if err := ProduceMessage(ExtractTraceContext(ctx, msg.Headers), writer, out); err != nil {
				return redriven, err
			}
			redriven++
		}

		if err := dlt.CommitMessages(ctx, msg); err != nil {
			return redriven, err
		}
	}
	return redriven, nil
}

func stripDeadLetterHeaders(headers []kafka.Header) []kafka.Header {
	out := make([]kafka.Header, 0, len(headers))
	for _, h := range headers {
		if strings.HasPrefix(h.Key, dltHeaderPrefix) {
			continue
		}
		out = append(out, h)
	}
	return out
}
