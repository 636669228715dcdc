// internal/service/order/application/service.go
package application

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"orderflow/internal/pkg/logger"
	"orderflow/internal/service/order/domain"
	"orderflow/internal/service/order/domain/port"
)

const (
	catalogServiceName = "product-catalog"
	paymentServiceName = "payment-service"

	defaultCurrency      = "usd"
	defaultRemoteTimeout = 5 * time.Second
)

// Options 是应用服务的可调参数
type Options struct {
	Currency      string
	RemoteTimeout time.Duration    // 单次远程调用的超时上限
	Now           func() time.Time // 测试时可替换

	// Names 用于读取时解析商品名称，可以是带缓存的目录；为空时使用 catalog
	Names port.ProductCatalog
}

// OrderApplicationService 只关注业务流程编排。
// 它本身不持有任何跨请求的可变状态，所有状态都在 OrderRepository 中。
type OrderApplicationService struct {
	orderRepo domain.OrderRepository
	catalog   port.ProductCatalog
	names     port.ProductCatalog
	payments  port.PaymentGateway
	tracer    trace.Tracer

	currency      string
	remoteTimeout time.Duration
	now           func() time.Time
}

func NewOrderApplicationService(orderRepo domain.OrderRepository, catalog port.ProductCatalog, payments port.PaymentGateway, tracer trace.Tracer, opts Options) *OrderApplicationService {
	s := &OrderApplicationService{
		orderRepo: orderRepo, catalog: catalog, names: opts.Names, payments: payments, tracer: tracer,
		currency: opts.Currency, remoteTimeout: opts.RemoteTimeout, now: opts.Now,
	}
	if s.names == nil {
		s.names = catalog
	}
	if s.currency == "" {
		s.currency = defaultCurrency
	}
	if s.remoteTimeout <= 0 {
		s.remoteTimeout = defaultRemoteTimeout
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// CreateOrder 校验商品、计算总价、原子持久化订单，然后创建支付会话。
// 商品校验失败时不会写入任何数据；支付会话失败时订单保持 PENDING。
func (s *OrderApplicationService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.CreateOrder")
	defer span.End()

	if err := req.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid create order request")
		return nil, err
	}

	// 1. 向商品目录校验去重后的商品ID
	ids := distinctProductIDs(req.Items)
	products, err := s.validateProducts(ctx, ids)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Product validation failed")
		logger.Ctx(ctx).Error().Err(err).Ints("productIds", ids).Msg("product validation failed, order not created")
		return nil, err
	}

	// 2. 用权威价格定价，并计算总价
	lines, unresolved := priceLines(req.Items, indexProducts(products))
	if len(unresolved) > 0 {
		// 未解析的商品按 0 元处理而不是拒单，这里留下记录方便排查目录不一致
		logger.Ctx(ctx).Warn().Ints("productIds", unresolved).Msg("products missing from catalog response, priced at zero")
		span.AddEvent("Unresolved products priced at zero", trace.WithAttributes(attribute.IntSlice("product.ids", unresolved)))
	}

	order, err := domain.NewOrder(lines)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	// 3. 订单头和订单行作为一个整体写入
	if err := s.orderRepo.CreateWithItems(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to persist order")
		logger.Ctx(ctx).Error().Err(err).Str("orderId", order.ID).Msg("failed to persist order")
		return nil, err
	}
	span.SetAttributes(
		attribute.String("order.id", order.ID),
		attribute.String("order.total_amount", order.TotalAmount.String()),
		attribute.Int("order.total_items", order.TotalItems),
	)
	span.AddEvent("Order persisted with PENDING status.")

	// 4. 创建支付会话
	session, err := s.createPaymentSession(ctx, order)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Payment session creation failed")
		logger.Ctx(ctx).Error().Err(err).Str("orderId", order.ID).Msg("payment session creation failed, order stays PENDING")
		return nil, err
	}

	logger.Ctx(ctx).Info().
		Str("orderId", order.ID).
		Str("totalAmount", order.TotalAmount.String()).
		Int("totalItems", order.TotalItems).
		Msg("order created")

	return &CreateOrderResponse{
		Order:          ToOrderView(order),
		PaymentSession: session,
	}, nil
}

// FindAll 按状态过滤并分页返回订单头
func (s *OrderApplicationService) FindAll(ctx context.Context, req PaginationRequest) (*OrderPage, error) {
	ctx, span := s.tracer.Start(ctx, "app.FindAll")
	defer span.End()

	req = req.normalized()
	filter := domain.OrderFilter{Status: req.Status}

	total, err := s.orderRepo.Count(ctx, filter)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	last := lastPage(total, req.Limit)
	data := make([]*OrderView, 0)
	// 超过最后一页时不查询，page <= last 保证偏移量不超过 total
	if req.Page <= last {
		orders, err := s.orderRepo.Page(ctx, filter, (req.Page-1)*req.Limit, req.Limit)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		for _, o := range orders {
			data = append(data, ToOrderView(o))
		}
	}

	return &OrderPage{
		Data: data,
		Meta: PageMeta{
			Total:    total,
			Page:     req.Page,
			LastPage: last,
		},
	}, nil
}

// FindOne 返回订单及其订单行，订单行名称从商品目录实时解析
func (s *OrderApplicationService) FindOne(ctx context.Context, id string) (*OrderView, error) {
	ctx, span := s.tracer.Start(ctx, "app.FindOne", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.resolveNames(ctx, order)
	return ToOrderView(order), nil
}

// ChangeOrderStatus 修改订单状态。目标状态与当前状态相同时直接返回，不发生写入。
func (s *OrderApplicationService) ChangeOrderStatus(ctx context.Context, req ChangeOrderStatusRequest) (*OrderView, error) {
	ctx, span := s.tracer.Start(ctx, "app.ChangeOrderStatus", trace.WithAttributes(
		attribute.String("order.id", req.ID),
		attribute.String("order.target_status", string(req.Status)),
	))
	defer span.End()

	order, err := s.orderRepo.FindByID(ctx, req.ID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if order.Status == req.Status {
		span.AddEvent("Status unchanged, no write.")
		s.resolveNames(ctx, order)
		return ToOrderView(order), nil
	}

	if err := s.orderRepo.UpdateStatus(ctx, req.ID, req.Status); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update order status")
		return nil, err
	}
	logger.Ctx(ctx).Info().
		Str("orderId", req.ID).
		Str("from", string(order.Status)).
		Str("to", string(req.Status)).
		Msg("order status changed")

	updated, err := s.orderRepo.FindByID(ctx, req.ID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.resolveNames(ctx, updated)
	return ToOrderView(updated), nil
}

// HandlePaymentSucceeded 处理支付成功事件。
// 事件可能重复投递：已支付的订单直接忽略；未知订单只记录日志，不向消息通道返回错误。
func (s *OrderApplicationService) HandlePaymentSucceeded(ctx context.Context, event *domain.PaymentSucceeded) error {
	ctx, span := s.tracer.Start(ctx, "app.HandlePaymentSucceeded",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attribute.String("order.id", event.OrderID)),
	)
	defer span.End()

	order, err := s.orderRepo.FindByID(ctx, event.OrderID)
	if errors.Is(err, domain.ErrOrderNotFound) {
		logger.Ctx(ctx).Warn().Str("orderId", event.OrderID).Str("paymentId", event.PaymentID).
			Msg("payment succeeded for unknown order, dropping event")
		span.AddEvent("Unknown order, event dropped.")
		return nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to load order")
		return err
	}

	if order.IsPaid() {
		logger.Ctx(ctx).Info().Str("orderId", event.OrderID).Msg("order already paid, duplicate event ignored")
		span.AddEvent("Order already paid, no-op.")
		return nil
	}

	applied, err := s.orderRepo.MarkPaid(ctx, event.OrderID, s.now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to mark order as paid")
		return err
	}
	if !applied {
		// 并发投递时另一条消息已经先写入
		span.AddEvent("Concurrent payment confirmation won, no-op.")
		return nil
	}

	logger.Ctx(ctx).Info().
		Str("orderId", event.OrderID).
		Str("paymentId", event.PaymentID).
		Str("receiptUrl", event.ReceiptURL).
		Msg("order marked as paid")
	span.AddEvent("Order marked as PAID.")
	return nil
}

// validateProducts 在超时控制下调用商品目录，超时和远程错误一律视为 RemoteCallError
func (s *OrderApplicationService) validateProducts(ctx context.Context, ids []int) ([]port.Product, error) {
	return s.lookupProducts(ctx, s.catalog, ids)
}

func (s *OrderApplicationService) lookupProducts(ctx context.Context, catalog port.ProductCatalog, ids []int) ([]port.Product, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.remoteTimeout)
	defer cancel()

	products, err := catalog.ValidateProducts(callCtx, ids)
	if err != nil {
		return nil, domain.NewRemoteCallError(catalogServiceName, err)
	}
	return products, nil
}

func (s *OrderApplicationService) createPaymentSession(ctx context.Context, order *domain.Order) (*port.PaymentSession, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.remoteTimeout)
	defer cancel()

	session, err := s.payments.CreateSession(callCtx, port.PaymentSessionRequest{
		OrderID:  order.ID,
		Currency: s.currency,
		Items:    paymentItems(order.Items),
	})
	if err != nil {
		return nil, domain.NewRemoteCallError(paymentServiceName, err)
	}
	return session, nil
}

// resolveNames 尽力为订单行补上名称，商品目录不可用时名称保持为空
func (s *OrderApplicationService) resolveNames(ctx context.Context, order *domain.Order) {
	ids := order.ProductIDs()
	if len(ids) == 0 {
		return
	}
	products, err := s.lookupProducts(ctx, s.names, ids)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("orderId", order.ID).Msg("could not resolve product names")
		trace.SpanFromContext(ctx).AddEvent("Product names unresolved.")
		return
	}
	applyNames(order.Items, indexProducts(products))
}

func lastPage(total int64, limit int) int {
	if total <= 0 {
		return 0
	}
	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	return int(pages)
}
