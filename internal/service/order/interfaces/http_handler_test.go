package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"orderflow/internal/service/order/application"
	"orderflow/internal/service/order/domain"
	"orderflow/internal/service/order/domain/port"
)

type stubService struct {
	createReq  *application.CreateOrderRequest
	createErr  error
	pageReq    application.PaginationRequest
	findErr    error
	changeReq  application.ChangeOrderStatusRequest
	changeErr  error
	lastFindID string
}

func (s *stubService) CreateOrder(_ context.Context, req *application.CreateOrderRequest) (*application.CreateOrderResponse, error) {
	s.createReq = req
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &application.CreateOrderResponse{
		Order:          &application.OrderView{ID: "o-1", TotalAmount: decimal.NewFromInt(25), TotalItems: 3, Status: domain.StatusPending},
		PaymentSession: &port.PaymentSession{ID: "cs_1", URL: "https://pay"},
	}, nil
}

func (s *stubService) FindAll(_ context.Context, req application.PaginationRequest) (*application.OrderPage, error) {
	s.pageReq = req
	return &application.OrderPage{
		Data: []*application.OrderView{},
		Meta: application.PageMeta{Total: 23, Page: req.Page, LastPage: 3},
	}, nil
}

func (s *stubService) FindOne(_ context.Context, id string) (*application.OrderView, error) {
	s.lastFindID = id
	if s.findErr != nil {
		return nil, s.findErr
	}
	return &application.OrderView{ID: id, Status: domain.StatusPending}, nil
}

func (s *stubService) ChangeOrderStatus(_ context.Context, req application.ChangeOrderStatusRequest) (*application.OrderView, error) {
	s.changeReq = req
	if s.changeErr != nil {
		return nil, s.changeErr
	}
	return &application.OrderView{ID: req.ID, Status: req.Status}, nil
}

func newTestServer(svc OrderService) http.Handler {
	mux := http.NewServeMux()
	NewOrderHandler(svc, noop.NewTracerProvider().Tracer("test")).RegisterRoutes(mux)
	return mux
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestCreateOrderEndpoint(t *testing.T) {
	svc := &stubService{}
	rec, body := do(t, newTestServer(svc), http.MethodPost, "/orders", `{"items":[{"productId":1,"quantity":2},{"productId":2,"quantity":1}]}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.createReq)
	assert.Equal(t, []application.CreateOrderItem{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 1}}, svc.createReq.Items)
	assert.Contains(t, body, "order")
	assert.Contains(t, body, "paymentSession")
}

func TestCreateOrderEndpointErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		body string
		code int
	}{
		{"bad json", nil, `{"items":`, http.StatusBadRequest},
		{"invalid order", domain.ErrInvalidOrder, `{"items":[]}`, http.StatusBadRequest},
		{"catalog down", domain.NewRemoteCallError("product-catalog", context.DeadlineExceeded), `{"items":[{"productId":1,"quantity":1}]}`, http.StatusBadGateway},
		{"unexpected", assert.AnError, `{"items":[{"productId":1,"quantity":1}]}`, http.StatusInternalServerError},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec, body := do(t, newTestServer(&stubService{createErr: c.err}), http.MethodPost, "/orders", c.body)
			assert.Equal(t, c.code, rec.Code)
			assert.EqualValues(t, c.code, body["status"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestFindAllEndpointParsesQuery(t *testing.T) {
	svc := &stubService{}
	h := newTestServer(svc)

	rec, body := do(t, h, http.MethodGet, "/orders?page=3&limit=10&status=CANCELLED", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, svc.pageReq.Page)
	assert.Equal(t, 10, svc.pageReq.Limit)
	require.NotNil(t, svc.pageReq.Status)
	assert.Equal(t, domain.StatusCancelled, *svc.pageReq.Status)
	meta := body["meta"].(map[string]interface{})
	assert.EqualValues(t, 23, meta["total"])
	assert.EqualValues(t, 3, meta["lastPage"])

	rec, _ = do(t, h, http.MethodGet, "/orders", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, application.DefaultPage, svc.pageReq.Page)
	assert.Equal(t, application.DefaultLimit, svc.pageReq.Limit)
	assert.Nil(t, svc.pageReq.Status)
}

func TestFindAllEndpointCapsLimit(t *testing.T) {
	svc := &stubService{}
	rec, _ := do(t, newTestServer(svc), http.MethodGet, "/orders?limit=1000000", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, application.MaxLimit, svc.pageReq.Limit)

	rec, _ = do(t, newTestServer(svc), http.MethodGet, "/orders?page=99999999999999999999", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "page outside int range")
}

func TestFindAllEndpointRejectsBadQuery(t *testing.T) {
	h := newTestServer(&stubService{})

	rec, body := do(t, h, http.MethodGet, "/orders?status=SHIPPED", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["message"], "Possible status values are: PENDING, CANCELLED, PAID")

	rec, _ = do(t, h, http.MethodGet, "/orders?page=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/orders?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFindOneEndpoint(t *testing.T) {
	id := uuid.NewString()
	svc := &stubService{}
	rec, body := do(t, newTestServer(svc), http.MethodGet, "/orders/"+id, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, svc.lastFindID)
	assert.Equal(t, id, body["id"])
}

func TestFindOneEndpointNotFound(t *testing.T) {
	id := uuid.NewString()
	rec, body := do(t, newTestServer(&stubService{findErr: &domain.NotFoundError{ID: id}}), http.MethodGet, "/orders/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "order with id #"+id+" not found", body["message"])
}

func TestFindOneEndpointRejectsNonUUID(t *testing.T) {
	svc := &stubService{}
	rec, _ := do(t, newTestServer(svc), http.MethodGet, "/orders/42", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.lastFindID)
}

func TestChangeStatusEndpoint(t *testing.T) {
	id := uuid.NewString()
	svc := &stubService{}
	h := newTestServer(svc)

	rec, body := do(t, h, http.MethodPatch, "/orders/"+id+"/status", `{"status":"CANCELLED"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, application.ChangeOrderStatusRequest{ID: id, Status: domain.StatusCancelled}, svc.changeReq)
	assert.Equal(t, "CANCELLED", body["status"])

	rec, body = do(t, h, http.MethodPatch, "/orders/"+id+"/status", `{"status":"cancelled"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["message"], "Possible status values are")
}

func TestChangeStatusEndpointNotFound(t *testing.T) {
	id := uuid.NewString()
	rec, _ := do(t, newTestServer(&stubService{changeErr: &domain.NotFoundError{ID: id}}), http.MethodPatch, "/orders/"+id+"/status", `{"status":"PAID"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestServer(&stubService{})

	rec, _ := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	ordersCreated.Inc()
	rec, _ = do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "order_service_orders_created_total")
	assert.Contains(t, rec.Body.String(), "Orders created through POST /orders whose payment session was opened.")
}

func counterValue(t *testing.T, c interface{ Write(*dto.Metric) error }) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestOrdersCreatedCountsOnlyCompletedCreates(t *testing.T) {
	body := `{"items":[{"productId":1,"quantity":2}]}`
	before := counterValue(t, ordersCreated)

	failed := &stubService{createErr: domain.NewRemoteCallError("payment-service", context.DeadlineExceeded)}
	rec, _ := do(t, newTestServer(failed), http.MethodPost, "/orders", body)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, before, counterValue(t, ordersCreated))

	rec, _ = do(t, newTestServer(&stubService{}), http.MethodPost, "/orders", body)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, before+1, counterValue(t, ordersCreated))
}
