// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config 是服务的全部配置，来源于 yaml 文件，并可被环境变量覆盖
type Config struct {
	App      AppConfig      `yaml:"app"`
	Infra    InfraConfig    `yaml:"infra"`
	Services ServicesConfig `yaml:"services"`
	Log      LogConfig      `yaml:"log"`
}

type AppConfig struct {
	Name          string        `yaml:"name"`
	Port          int           `yaml:"port"`
	Currency      string        `yaml:"currency"`
	RemoteTimeout time.Duration `yaml:"remoteTimeout"`
}

type InfraConfig struct {
	Database DatabaseConfig `yaml:"database"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Jaeger   JaegerConfig   `yaml:"jaeger"`
}

type DatabaseConfig struct {
	Driver       string `yaml:"driver"` // mysql / sqlite
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"maxOpenConns"`
	MaxIdleConns int    `yaml:"maxIdleConns"`
	LogLevel     string `yaml:"logLevel"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	GroupID string   `yaml:"groupId"`
}

type RedisConfig struct {
	Addrs    string        `yaml:"addrs"` // 为空时不启用商品名称缓存
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

type JaegerConfig struct {
	Endpoint string `yaml:"endpoint"`
}

// ServicesConfig 是下游服务的地址
type ServicesConfig struct {
	CatalogURL string `yaml:"catalogUrl"`
	PaymentURL string `yaml:"paymentUrl"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// DefaultConfig 返回本地开发可以直接使用的配置
func DefaultConfig() Config {
	return Config{
		App: AppConfig{
			Name:          "order-service",
			Port:          8080,
			Currency:      "usd",
			RemoteTimeout: 5 * time.Second,
		},
		Infra: InfraConfig{
			Database: DatabaseConfig{
				Driver:       "mysql",
				DSN:          "root:root@tcp(localhost:3306)/orders?charset=utf8mb4&parseTime=True&loc=UTC",
				MaxOpenConns: 20,
				MaxIdleConns: 10,
				LogLevel:     "warn",
			},
			Kafka: KafkaConfig{
				Brokers: []string{"localhost:9092"},
				GroupID: "order-service",
			},
			Redis: RedisConfig{CacheTTL: 10 * time.Minute},
		},
		Services: ServicesConfig{
			CatalogURL: "http://localhost:3001",
			PaymentURL: "http://localhost:3003",
		},
		Log: LogConfig{Level: "info"},
	}
}

var current atomic.Pointer[Config]

// GetCurrentConfig 返回最近一次加载的配置；尚未加载时返回默认配置
func GetCurrentConfig() *Config {
	if c := current.Load(); c != nil {
		return c
	}
	c := DefaultConfig()
	return &c
}

// LoadConfig 读取 yaml 文件（文件不存在时跳过），再应用环境变量覆盖，并设为当前配置
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, errors.Wrapf(err, "parse config file %s", path)
			}
		case os.IsNotExist(err):
		default:
			return nil, errors.Wrapf(err, "read config file %s", path)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	current.Store(&cfg)
	return &cfg, nil
}

// Validate 检查启动所必需的配置项
func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return errors.Errorf("invalid http port %d", c.App.Port)
	}
	if c.App.RemoteTimeout <= 0 {
		return errors.New("remote timeout must be positive")
	}
	if c.Infra.Database.DSN == "" {
		return errors.New("database dsn is required")
	}
	if len(c.Infra.Kafka.Brokers) == 0 {
		return errors.New("at least one kafka broker is required")
	}
	if c.Services.CatalogURL == "" || c.Services.PaymentURL == "" {
		return errors.New("catalog and payment service urls are required")
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("HTTP_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "HTTP_PORT=%q", v)
		}
		cfg.App.Port = port
	}
	if v, ok := lookup("REMOTE_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "REMOTE_TIMEOUT=%q", v)
		}
		cfg.App.RemoteTimeout = d
	}
	if v, ok := lookup("KAFKA_BROKERS"); ok && v != "" {
		cfg.Infra.Kafka.Brokers = splitList(v)
	}

	str("CURRENCY", &cfg.App.Currency)
	str("DB_DRIVER", &cfg.Infra.Database.Driver)
	str("DB_DSN", &cfg.Infra.Database.DSN)
	str("REDIS_ADDR", &cfg.Infra.Redis.Addrs)
	str("JAEGER_ENDPOINT", &cfg.Infra.Jaeger.Endpoint)
	str("CATALOG_URL", &cfg.Services.CatalogURL)
	str("PAYMENT_URL", &cfg.Services.PaymentURL)
	str("LOG_LEVEL", &cfg.Log.Level)
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
