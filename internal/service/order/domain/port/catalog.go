package port

import (
	"context"

	"github.com/shopspring/decimal"
)

// Product 是商品目录返回的权威商品记录
type Product struct {
	ID    int             `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// ProductCatalog 是商品目录服务的出站端口。
type ProductCatalog interface {
	// ValidateProducts 返回请求ID中有效的那部分商品。
	// 结果可能是请求集合的真子集，但不会包含未请求的ID。
	ValidateProducts(ctx context.Context, ids []int) ([]Product, error)
}
