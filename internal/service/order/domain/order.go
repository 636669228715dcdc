// internal/service/order/domain/order.go
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order 是订单聚合的根实体。
// 订单行在创建时与订单一起原子写入，之后不可修改。
type Order struct {
	ID          string
	TotalAmount decimal.Decimal
	TotalItems  int
	Status      Status
	Paid        bool
	PaidAt      *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Items []LineItem
}

// LineItem 是订单中的一行：一个外部商品、数量以及下单时的单价快照
type LineItem struct {
	ProductID int
	Quantity  int
	Price     decimal.Decimal

	// Name 在读取时从商品目录解析，不落库
	Name string
}

// Subtotal 返回该行的小计
func (li LineItem) Subtotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// NewOrder 用已定价的订单行创建一个新的订单实例，总价与总数量由服务端计算
func NewOrder(items []LineItem) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrInvalidOrder
	}
	total := decimal.Zero
	count := 0
	for _, it := range items {
		if it.Quantity <= 0 || it.Price.IsNegative() {
			return nil, ErrInvalidOrder
		}
		total = total.Add(it.Subtotal())
		count += it.Quantity
	}

	now := time.Now().UTC()
	return &Order{
		ID:          uuid.NewString(),
		TotalAmount: total,
		TotalItems:  count,
		Status:      StatusPending, // 初始状态
		CreatedAt:   now,
		UpdatedAt:   now,
		Items:       items,
	}, nil
}

// IsPaid 报告支付确认是否已经生效
func (o *Order) IsPaid() bool {
	return o.Paid && o.PaidAt != nil
}

// ProductIDs 返回订单行引用的商品ID（去重，保持首次出现的顺序）
func (o *Order) ProductIDs() []int {
	seen := make(map[int]struct{}, len(o.Items))
	ids := make([]int, 0, len(o.Items))
	for _, it := range o.Items {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
	}
	return ids
}
