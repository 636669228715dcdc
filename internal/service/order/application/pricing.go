package application

import (
	"github.com/shopspring/decimal"

	"orderflow/internal/service/order/domain"
	"orderflow/internal/service/order/domain/port"
)

// distinctProductIDs 返回请求中出现过的商品ID，去重并保持顺序
func distinctProductIDs(items []CreateOrderItem) []int {
	seen := make(map[int]struct{}, len(items))
	ids := make([]int, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
	}
	return ids
}

func indexProducts(products []port.Product) map[int]port.Product {
	idx := make(map[int]port.Product, len(products))
	for _, p := range products {
		idx[p.ID] = p
	}
	return idx
}

// priceLines 用商品目录的价格为每一行定价。
// 价格按分取整，与数据库中 decimal(10,2) 的列一致。
// 目录中不存在的商品按 0 元定价、名称为空，并通过 unresolved 返回给调用方记录。
func priceLines(items []CreateOrderItem, catalog map[int]port.Product) (lines []domain.LineItem, unresolved []int) {
	lines = make([]domain.LineItem, 0, len(items))
	for _, it := range items {
		price := decimal.Zero
		name := ""
		if p, ok := catalog[it.ProductID]; ok {
			price = p.Price.Round(2)
			name = p.Name
		} else {
			unresolved = append(unresolved, it.ProductID)
		}
		lines = append(lines, domain.LineItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     price,
			Name:      name,
		})
	}
	return lines, unresolved
}

// applyNames 在读取时为订单行补上当前的商品名称
func applyNames(items []domain.LineItem, catalog map[int]port.Product) {
	for i := range items {
		items[i].Name = catalog[items[i].ProductID].Name
	}
}

func paymentItems(items []domain.LineItem) []port.PaymentSessionItem {
	out := make([]port.PaymentSessionItem, 0, len(items))
	for _, it := range items {
		out = append(out, port.PaymentSessionItem{
			Name:     it.Name,
			Price:    it.Price,
			Quantity: it.Quantity,
		})
	}
	return out
}
