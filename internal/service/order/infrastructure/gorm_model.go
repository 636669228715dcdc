package infrastructure

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderModel 对应数据库中的 orders 表
type OrderModel struct {
	ID          string          `gorm:"primaryKey;type:char(36)"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	TotalItems  int             `gorm:"not null"`
	Status      string          `gorm:"type:varchar(16);not null;default:PENDING;index"`
	Paid        bool            `gorm:"not null;default:false"`
	PaidAt      *time.Time
	CreatedAt   time.Time `gorm:"index"`
	UpdatedAt   time.Time
	// 关联关系
	Items []OrderItemModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// TableName 指定 GORM 应该使用的表名
func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel 对应数据库中的 order_items 表，订单行写入后不再修改
type OrderItemModel struct {
	ID        uint            `gorm:"primaryKey;autoIncrement"`
	OrderID   string          `gorm:"type:char(36);not null;index"`
	ProductID int             `gorm:"not null"`
	Quantity  int             `gorm:"not null"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null"`
}

// TableName 指定 GORM 应该使用的表名
func (OrderItemModel) TableName() string {
	return "order_items"
}
