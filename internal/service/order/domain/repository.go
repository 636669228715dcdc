// internal/service/order/domain/repository.go
package domain

import (
	"context"
	"time"
)

// OrderFilter 是列表与计数查询的过滤条件，Status 为空时匹配全部订单
type OrderFilter struct {
	Status *Status
}

// OrderRepository 定义了订单聚合的持久化接口。
// 它位于领域层，但由基础设施层实现。
type OrderRepository interface {
	// CreateWithItems 原子地写入订单头和全部订单行，要么全部成功，要么什么都不留下。
	CreateWithItems(ctx context.Context, order *Order) error

	// Count 返回匹配过滤条件的订单数量。
	Count(ctx context.Context, filter OrderFilter) (int64, error)

	// Page 按插入顺序跳过 offset 条后最多取 limit 条订单头（不含订单行）。
	Page(ctx context.Context, filter OrderFilter, offset, limit int) ([]*Order, error)

	// FindByID 根据 ID 查找订单聚合，不存在时返回 *NotFoundError。
	FindByID(ctx context.Context, id string) (*Order, error)

	// UpdateStatus 只更新状态字段。
	UpdateStatus(ctx context.Context, id string, status Status) error

	// MarkPaid 在订单尚未支付时设置 paid、paidAt 和 PAID 状态。
	// applied 为 false 表示订单已经是已支付状态，本次调用没有写入。
	MarkPaid(ctx context.Context, id string, at time.Time) (applied bool, err error)
}
