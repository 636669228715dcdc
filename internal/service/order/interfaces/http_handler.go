package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"orderflow/internal/pkg/logger"
	"orderflow/internal/service/order/application"
	"orderflow/internal/service/order/domain"
)

const serviceName = "order-service"

// OrderService 是 HTTP 处理器依赖的用例集合，由 application.OrderApplicationService 实现
type OrderService interface {
	CreateOrder(ctx context.Context, req *application.CreateOrderRequest) (*application.CreateOrderResponse, error)
	FindAll(ctx context.Context, req application.PaginationRequest) (*application.OrderPage, error)
	FindOne(ctx context.Context, id string) (*application.OrderView, error)
	ChangeOrderStatus(ctx context.Context, req application.ChangeOrderStatusRequest) (*application.OrderView, error)
}

// OrderHandler 封装了 order 服务的 HTTP 处理器
type OrderHandler struct {
	service OrderService
	tracer  trace.Tracer
}

// NewOrderHandler 创建一个新的 HTTP 处理器实例
func NewOrderHandler(service OrderService, tracer trace.Tracer) *OrderHandler {
	return &OrderHandler{service: service, tracer: tracer}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *OrderHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /orders", h.createOrderHandler)
	mux.HandleFunc("GET /orders", h.findAllHandler)
	mux.HandleFunc("GET /orders/{id}", h.findOneHandler)
	mux.HandleFunc("PATCH /orders/{id}/status", h.changeStatusHandler)
}

// badRequestError 表示请求本身格式不正确
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...interface{}) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

// startSpan 从请求头中恢复上游的追踪上下文并开启服务端 span
func (h *OrderHandler) startSpan(r *http.Request, name string) (context.Context, trace.Span) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	return h.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", r.Pattern),
		))
}

func (h *OrderHandler) createOrderHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.startSpan(r, "http.CreateOrder")
	defer span.End()

	var req application.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, badRequest("invalid request body: %v", err))
		return
	}

	resp, err := h.service.CreateOrder(ctx, &req)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	ordersCreated.Inc()
	writeJSON(w, http.StatusCreated, resp)
}

func (h *OrderHandler) findAllHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.startSpan(r, "http.FindAllOrders")
	defer span.End()

	req, err := parsePagination(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	page, err := h.service.FindAll(ctx, req)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *OrderHandler) findOneHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.startSpan(r, "http.FindOneOrder")
	defer span.End()

	id, err := pathOrderID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	order, err := h.service.FindOne(ctx, id)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) changeStatusHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.startSpan(r, "http.ChangeOrderStatus")
	defer span.End()

	id, err := pathOrderID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(ctx, w, badRequest("invalid request body: %v", err))
		return
	}
	status, err := domain.ParseStatus(body.Status)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	order, err := h.service.ChangeOrderStatus(ctx, application.ChangeOrderStatusRequest{ID: id, Status: status})
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func pathOrderID(r *http.Request) (string, error) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", badRequest("id %q is not a valid UUID", id)
	}
	return id, nil
}

func parsePagination(r *http.Request) (application.PaginationRequest, error) {
	q := r.URL.Query()
	req := application.PaginationRequest{Page: application.DefaultPage, Limit: application.DefaultLimit}

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return req, badRequest("page must be a positive integer")
		}
		req.Page = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return req, badRequest("limit must be a positive integer")
		}
		req.Limit = min(n, application.MaxLimit)
	}
	if v := q.Get("status"); v != "" {
		st, err := domain.ParseStatus(v)
		if err != nil {
			return req, err
		}
		req.Status = &st
	}
	return req, nil
}

// errorResponse 是统一的错误响应体
type errorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// writeError 将领域错误映射为 HTTP 状态码
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	var br *badRequestError
	code := http.StatusInternalServerError
	msg := "internal server error"

	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		code, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrInvalidStatus), errors.Is(err, domain.ErrInvalidOrder), errors.As(err, &br):
		code, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrRemoteCall):
		code, msg = http.StatusBadGateway, err.Error()
	}

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.Int("http.status_code", code))
	if code >= http.StatusInternalServerError {
		span.RecordError(err)
		logger.Ctx(ctx).Error().Err(err).Int("status", code).Msg("request failed")
	}
	writeJSON(w, code, errorResponse{Status: code, Message: msg})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
