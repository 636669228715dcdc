package infrastructure

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"orderflow/internal/service/order/domain"
)

// GormOrderRepository 是 OrderRepository 的 GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository 创建一个新的 GORM 仓储实例
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// CreateWithItems 在一个事务里写入订单头和订单行
func (r *GormOrderRepository) CreateWithItems(ctx context.Context, order *domain.Order) error {
	model := FromDomainOrder(order)
	items := model.Items
	model.Items = nil

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
			return errors.Wrap(err, "insert order")
		}
		if len(items) == 0 {
			return nil
		}
		if err := tx.Create(&items).Error; err != nil {
			return errors.Wrap(err, "insert order items")
		}
		return nil
	})
	return errors.Wrapf(err, "create order %s", order.ID)
}

func (r *GormOrderRepository) filtered(ctx context.Context, filter domain.OrderFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&OrderModel{})
	if filter.Status != nil {
		q = q.Where("status = ?", string(*filter.Status))
	}
	return q
}

// Count 返回匹配过滤条件的订单数量
func (r *GormOrderRepository) Count(ctx context.Context, filter domain.OrderFilter) (int64, error) {
	var total int64
	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return 0, errors.Wrap(err, "count orders")
	}
	return total, nil
}

// Page 按插入顺序返回一页订单头，不加载订单行
func (r *GormOrderRepository) Page(ctx context.Context, filter domain.OrderFilter, offset, limit int) ([]*domain.Order, error) {
	var models []*OrderModel
	err := r.filtered(ctx, filter).
		Order("created_at ASC").
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "page orders")
	}

	orders := make([]*domain.Order, len(models))
	for i, m := range models {
		orders[i] = ToDomainOrder(m)
	}
	return orders, nil
}

// FindByID 使用 GORM 从数据库中查找订单，并预加载订单行
func (r *GormOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{ID: id}
		}
		return nil, errors.Wrapf(err, "find order %s", id)
	}
	return ToDomainOrder(&model), nil
}

// UpdateStatus 只更新状态和更新时间
func (r *GormOrderRepository) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	res := r.db.WithContext(ctx).Model(&OrderModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     string(status),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "update status of order %s", id)
	}
	if res.RowsAffected == 0 {
		return &domain.NotFoundError{ID: id}
	}
	return nil
}

// MarkPaid 是一次条件更新：只有 paid = false 的订单会被写入，先到的确认生效
func (r *GormOrderRepository) MarkPaid(ctx context.Context, id string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&OrderModel{}).
		Where("id = ? AND paid = ?", id, false).
		Updates(map[string]interface{}{
			"paid":       true,
			"paid_at":    at,
			"status":     string(domain.StatusPaid),
			"updated_at": at,
		})
	if res.Error != nil {
		return false, errors.Wrapf(res.Error, "mark order %s paid", id)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	// 没有写入：要么订单不存在，要么已经支付
	var count int64
	if err := r.db.WithContext(ctx).Model(&OrderModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, errors.Wrapf(err, "check order %s", id)
	}
	if count == 0 {
		return false, &domain.NotFoundError{ID: id}
	}
	return false, nil
}
