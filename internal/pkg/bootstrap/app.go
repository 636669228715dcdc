// internal/pkg/bootstrap/app.go
package bootstrap

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"orderflow/internal/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// Worker 是一个随服务启动的后台任务（例如 Kafka 消费者），ctx 取消时应当返回
type Worker func(ctx context.Context) error

// Closer 在关停阶段按注册的逆序执行
type Closer func(ctx context.Context) error

// AppInfo 包含了启动一个微服务所需的所有特定信息。
type AppInfo struct {
	ServiceName      string
	Port             int
	RegisterHandlers func(mux *http.ServeMux) // 允许每个服务注册自己独特的 HTTP 路由
	Workers          []Worker
	Closers          []Closer
}

// StartService 启动 HTTP 服务和所有后台任务，阻塞到 ctx 被取消或任一任务失败，然后优雅关停。
func StartService(ctx context.Context, info AppInfo) error {
	mux := http.NewServeMux()
	if info.RegisterHandlers != nil {
		info.RegisterHandlers(mux)
	}
	server := &http.Server{
		Addr:              ":" + strconv.Itoa(info.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return err
	}
	return serve(ctx, info, server, ln)
}

func serve(ctx context.Context, info AppInfo, server *http.Server, ln net.Listener) error {
	log := logger.L()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("service", info.ServiceName).Str("addr", ln.Addr().String()).Msg("http server listening")
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	for _, w := range info.Workers {
		w := w
		g.Go(func() error { return w(gctx) })
	}

	// 任一任务失败或收到退出信号后，按顺序执行清理操作
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Str("service", info.ServiceName).Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		for i := len(info.Closers) - 1; i >= 0; i-- {
			if err := info.Closers[i](shutdownCtx); err != nil {
				log.Error().Err(err).Msg("error during shutdown")
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})

	err := g.Wait()
	if err == nil {
		log.Info().Str("service", info.ServiceName).Msg("service gracefully shut down")
	}
	return err
}
