// cmd/dlt-redrive/main.go
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"orderflow/internal/pkg/bootstrap"
	"orderflow/internal/pkg/logger"
	"orderflow/internal/pkg/mq"
)

// dlt-redrive 把 payment.succeeded.dlt 中的消息重新投递回原始主题。
// 修复导致失败的问题后手动执行一次。
func main() {
	topic := flag.String("topic", "payment.succeeded.dlt", "dead letter topic to drain")
	limit := flag.Int("limit", 0, "maximum number of messages to redrive (0 = no limit)")
	timeout := flag.Duration("timeout", 30*time.Second, "stop after this long")
	flag.Parse()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := bootstrap.LoadConfig(configPath)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(logger.Options{ServiceName: "dlt-redrive", Level: cfg.Log.Level, Pretty: true})
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	reader := mq.NewKafkaReader(cfg.Infra.Kafka.Brokers, *topic, cfg.Infra.Kafka.GroupID+"-redrive")
	defer reader.Close()
	// 不指定 topic，每条消息写回各自的原始主题
	writer := mq.NewKafkaWriter(cfg.Infra.Kafka.Brokers, "")
	defer writer.Close()

	n, err := mq.Redrive(ctx, reader, writer, *limit)
	if err != nil {
		log.Fatal().Err(err).Int("redriven", n).Msg("redrive stopped with error")
	}
	log.Info().Int("redriven", n).Str("topic", *topic).Msg("redrive finished")
}
