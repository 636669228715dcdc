// cmd/order-service/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"

	"orderflow/internal/pkg/bootstrap"
	"orderflow/internal/pkg/httpclient"
	"orderflow/internal/pkg/logger"
	"orderflow/internal/pkg/mq"
	"orderflow/internal/pkg/redis"
	"orderflow/internal/pkg/tracing"
	"orderflow/internal/service/order/application"
	"orderflow/internal/service/order/domain/port"
	"orderflow/internal/service/order/infrastructure"
	"orderflow/internal/service/order/infrastructure/adapter"
	"orderflow/internal/service/order/interfaces"
)

const (
	serviceName     = "order-service"
	paymentDLTTopic = interfaces.PaymentSucceededTopic + ".dlt"
)

// main 函数是应用的"组装根" (Composition Root)
// 它的核心职责是：创建并组装所有依赖项，然后启动应用。
func main() {
	// 金额以 JSON 数字输出
	decimal.MarshalJSONWithoutQuotes = true

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := bootstrap.LoadConfig(configPath)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(logger.Options{ServiceName: serviceName, Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. 初始化核心技术组件
	tp, err := tracing.InitTracerProvider(serviceName, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracer provider")
	}
	tracer := otel.Tracer(serviceName)

	db, err := infrastructure.OpenDatabase(infrastructure.DatabaseConfig{
		Driver:       cfg.Infra.Database.Driver,
		DSN:          cfg.Infra.Database.DSN,
		MaxOpenConns: cfg.Infra.Database.MaxOpenConns,
		MaxIdleConns: cfg.Infra.Database.MaxIdleConns,
		LogLevel:     cfg.Infra.Database.LogLevel,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to get database handle")
	}

	httpClient := httpclient.NewClient(tracer)
	httpClient.Observe = interfaces.ObserveRemoteCall

	// 2. 出站适配器
	catalog := adapter.NewCatalogHTTPAdapter(httpClient, cfg.Services.CatalogURL)
	payments := adapter.NewPaymentHTTPAdapter(httpClient, cfg.Services.PaymentURL)

	var names port.ProductCatalog = catalog
	var redisClient *redis.Client
	if cfg.Infra.Redis.Addrs != "" {
		redisClient, err = redis.NewClient(cfg.Infra.Redis.Addrs)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize redis client")
		}
		names = adapter.NewCachedCatalog(catalog, redisClient, cfg.Infra.Redis.CacheTTL)
		log.Info().Str("addrs", cfg.Infra.Redis.Addrs).Msg("product name cache enabled")
	}

	// 3. 应用服务
	appSvc := application.NewOrderApplicationService(
		infrastructure.NewGormOrderRepository(db),
		catalog,
		payments,
		tracer,
		application.Options{
			Currency:      cfg.App.Currency,
			RemoteTimeout: cfg.App.RemoteTimeout,
			Names:         names,
		},
	)

	// 4. 驱动适配器：HTTP 与 Kafka 消费者
	brokers := cfg.Infra.Kafka.Brokers
	dltWriter := mq.NewKafkaWriter(brokers, paymentDLTTopic)
	paymentConsumer := interfaces.NewPaymentSucceededConsumer(
		mq.NewKafkaReader(brokers, interfaces.PaymentSucceededTopic, cfg.Infra.Kafka.GroupID),
		appSvc,
		mq.NewFailureHandler(dltWriter),
	)
	dltConsumer := interfaces.NewDltConsumer(
		mq.NewKafkaReader(brokers, paymentDLTTopic, cfg.Infra.Kafka.GroupID+"-dlt"),
		paymentDLTTopic,
	)
	orderHandler := interfaces.NewOrderHandler(appSvc, tracer)

	err = bootstrap.StartService(ctx, bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        cfg.App.Port,
		RegisterHandlers: func(mux *http.ServeMux) {
			orderHandler.RegisterRoutes(mux)
		},
		Workers: []bootstrap.Worker{
			paymentConsumer.Run,
			dltConsumer.Run,
		},
		// 关停顺序与注册顺序相反
		Closers: []bootstrap.Closer{
			tp.Shutdown,
			func(context.Context) error { return sqlDB.Close() },
			func(context.Context) error {
				if redisClient == nil {
					return nil
				}
				return redisClient.Close()
			},
			func(context.Context) error { return dltWriter.Close() },
			func(context.Context) error { return dltConsumer.Close() },
			func(context.Context) error { return paymentConsumer.Close() },
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("order service stopped with error")
	}
}
