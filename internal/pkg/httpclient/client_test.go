package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type echo struct {
	Value string `json:"value"`
}

func TestPostJSONRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var in echo
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_ = json.NewEncoder(w).Encode(echo{Value: in.Value + "!"})
	}))
	defer srv.Close()

	var observed []string
	c := NewClient(noop.NewTracerProvider().Tracer("test"))
	c.Observe = func(target, outcome string, _ time.Duration) {
		observed = append(observed, outcome)
	}

	var out echo
	require.NoError(t, c.PostJSON(context.Background(), srv.URL+"/echo", echo{Value: "hi"}, &out))
	assert.Equal(t, "hi!", out.Value)
	assert.Equal(t, []string{"ok"}, observed)
}

func TestPostJSONNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	var observed []string
	c := NewClient(noop.NewTracerProvider().Tracer("test"))
	c.Observe = func(_, outcome string, _ time.Duration) { observed = append(observed, outcome) }

	err := c.PostJSON(context.Background(), srv.URL, echo{}, nil)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)
	assert.Equal(t, "boom", se.Body)
	assert.Equal(t, []string{"error"}, observed)
}

func TestPostJSONHonoursContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(noop.NewTracerProvider().Tracer("test"))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := c.PostJSON(ctx, srv.URL, echo{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPostJSONInjectsTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer otel.SetTextMapPropagator(prev)

	var traceparent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceparent = r.Header.Get("traceparent")
	}))
	defer srv.Close()

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	c := NewClient(tp.Tracer("test"))
	require.NoError(t, c.PostJSON(context.Background(), srv.URL, echo{}, nil))
	assert.NotEmpty(t, traceparent)
}
