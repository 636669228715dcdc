// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

var (
	mu   sync.RWMutex
	base = zerolog.New(os.Stdout).With().Timestamp().Logger()
)

// Options 控制全局 logger 的行为
type Options struct {
	ServiceName string
	Level       string
	Pretty      bool   // 本地开发时输出彩色的人类可读格式
	Output      io.Writer
}

// Init 初始化全局 logger，应在 main 中最先调用
func Init(opts Options) {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.DateTime}
	}

	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	l := zerolog.New(out).Level(level).With().Timestamp().Str("service", opts.ServiceName).Logger()

	mu.Lock()
	base = l
	mu.Unlock()
}

// L 返回不带请求上下文的全局 logger
func L() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := base
	return &l
}

// Ctx 返回附带 trace_id / span_id 的 logger，便于在 Jaeger 中回溯
func Ctx(ctx context.Context) *zerolog.Logger {
	l := L()
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return l
	}
	withTrace := l.With().
		Str("trace_id", sc.TraceID().String()).
		Str("span_id", sc.SpanID().String()).
		Logger()
	return &withTrace
}
