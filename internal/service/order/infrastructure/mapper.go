package infrastructure

import (
	"orderflow/internal/service/order/domain"
)

// ToDomainOrder 将数据库模型转换为领域模型，未预加载订单行时 Items 为空
func ToDomainOrder(model *OrderModel) *domain.Order {
	if model == nil {
		return nil
	}
	o := &domain.Order{
		ID:          model.ID,
		TotalAmount: model.TotalAmount,
		TotalItems:  model.TotalItems,
		Status:      domain.Status(model.Status),
		Paid:        model.Paid,
		PaidAt:      model.PaidAt,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
	if len(model.Items) > 0 {
		o.Items = make([]domain.LineItem, 0, len(model.Items))
		for _, it := range model.Items {
			o.Items = append(o.Items, domain.LineItem{
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
				Price:     it.Price,
			})
		}
	}
	return o
}

// FromDomainOrder 将领域模型转换为数据库模型 (用于插入)
// 订单行的名称只在读取时解析，不会写入。
func FromDomainOrder(o *domain.Order) *OrderModel {
	if o == nil {
		return nil
	}
	model := &OrderModel{
		ID:          o.ID,
		TotalAmount: o.TotalAmount,
		TotalItems:  o.TotalItems,
		Status:      string(o.Status),
		Paid:        o.Paid,
		PaidAt:      o.PaidAt,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	model.Items = make([]OrderItemModel, 0, len(o.Items))
	for _, it := range o.Items {
		model.Items = append(model.Items, OrderItemModel{
			OrderID:   o.ID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}
	return model
}
