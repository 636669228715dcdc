package bootstrap

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "usd", cfg.App.Currency)
	assert.Equal(t, 5*time.Second, cfg.App.RemoteTimeout)
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfigFromYAMLWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  port: 9000
  currency: eur
  remoteTimeout: 2s
infra:
  database:
    driver: sqlite
    dsn: file:orders.db
  kafka:
    brokers: [k1:9092]
services:
  catalogUrl: http://catalog
  paymentUrl: http://payments
`), 0o600))

	t.Setenv("HTTP_PORT", "9100")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092")
	t.Setenv("REMOTE_TIMEOUT", "750ms")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.App.Port)
	assert.Equal(t, "eur", cfg.App.Currency)
	assert.Equal(t, 750*time.Millisecond, cfg.App.RemoteTimeout)
	assert.Equal(t, "sqlite", cfg.Infra.Database.Driver)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Infra.Kafka.Brokers)
	assert.Equal(t, "http://catalog", cfg.Services.CatalogURL)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("HTTP_PORT", "not-a-port")
	_, err := LoadConfig("")
	require.Error(t, err)

	t.Setenv("HTTP_PORT", "8080")
	t.Setenv("REMOTE_TIMEOUT", "0s")
	_, err = LoadConfig("")
	require.Error(t, err)
}

func TestServeRunsWorkersAndShutsDown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	started := make(chan struct{})
	closed := false
	info := AppInfo{
		ServiceName: "test",
		Workers: []Worker{func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return nil
		}},
		Closers: []Closer{func(context.Context) error { closed = true; return nil }},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, info, &http.Server{Handler: mux}, ln) }()

	<-started
	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	require.NoError(t, <-done)
	assert.True(t, closed)
}

func TestServeStopsWhenWorkerFails(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	boom := errors.New("consumer crashed")
	info := AppInfo{
		ServiceName: "test",
		Workers:     []Worker{func(context.Context) error { return boom }},
	}

	err = serve(context.Background(), info, &http.Server{Handler: http.NewServeMux()}, ln)
	assert.ErrorIs(t, err, boom)
}
