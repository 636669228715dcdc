// internal/service/order/application/dto.go
package application

import (
	"time"

	"github.com/shopspring/decimal"

	"orderflow/internal/service/order/domain"
	"orderflow/internal/service/order/domain/port"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// CreateOrderItem 是客户端提交的一行：商品ID和数量，价格永远由服务端决定
type CreateOrderItem struct {
	ProductID int `json:"productId"`
	Quantity  int `json:"quantity"`
}

// CreateOrderRequest 是创建订单用例的输入数据
type CreateOrderRequest struct {
	Items []CreateOrderItem `json:"items"`
}

// Validate 只做形状校验，商品是否存在由商品目录决定
func (r *CreateOrderRequest) Validate() error {
	if len(r.Items) == 0 {
		return domain.ErrInvalidOrder
	}
	for _, it := range r.Items {
		if it.Quantity <= 0 {
			return domain.ErrInvalidOrder
		}
	}
	return nil
}

// CreateOrderResponse 是创建订单用例的输出数据
type CreateOrderResponse struct {
	Order          *OrderView           `json:"order"`
	PaymentSession *port.PaymentSession `json:"paymentSession"`
}

// PaginationRequest 是订单列表的查询参数，零值使用默认分页，limit 最大为 MaxLimit
type PaginationRequest struct {
	Page   int
	Limit  int
	Status *domain.Status
}

func (p PaginationRequest) normalized() PaginationRequest {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// PageMeta 是分页元数据
type PageMeta struct {
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	LastPage int   `json:"lastPage"`
}

// OrderPage 是一页订单
type OrderPage struct {
	Data []*OrderView `json:"data"`
	Meta PageMeta     `json:"meta"`
}

// ChangeOrderStatusRequest 是修改订单状态的输入
type ChangeOrderStatusRequest struct {
	ID     string        `json:"id"`
	Status domain.Status `json:"status"`
}

// OrderView 是返回给调用方的订单表示
type OrderView struct {
	ID          string          `json:"id"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	TotalItems  int             `json:"totalItems"`
	Status      domain.Status   `json:"status"`
	Paid        bool            `json:"paid"`
	PaidAt      *time.Time      `json:"paidAt"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	Items       []OrderItemView `json:"items,omitempty"`
}

// OrderItemView 是带名称的订单行
type OrderItemView struct {
	ProductID int             `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Name      string          `json:"name"`
}

// ToOrderView 将领域对象转换为输出 DTO
func ToOrderView(o *domain.Order) *OrderView {
	if o == nil {
		return nil
	}
	v := &OrderView{
		ID:          o.ID,
		TotalAmount: o.TotalAmount,
		TotalItems:  o.TotalItems,
		Status:      o.Status,
		Paid:        o.Paid,
		PaidAt:      o.PaidAt,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	for _, it := range o.Items {
		v.Items = append(v.Items, OrderItemView{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
			Name:      it.Name,
		})
	}
	return v
}
