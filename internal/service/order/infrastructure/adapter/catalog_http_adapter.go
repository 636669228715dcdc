package adapter

import (
	"context"
	"strings"

	"orderflow/internal/pkg/httpclient"
	"orderflow/internal/service/order/domain/port"
)

const catalogValidatePath = "/products/validate"

// CatalogHTTPAdapter 实现了 port.ProductCatalog 接口，调用商品目录服务的校验接口。
type CatalogHTTPAdapter struct {
	client  *httpclient.Client
	baseURL string
}

// NewCatalogHTTPAdapter 创建一个新的商品目录适配器。
func NewCatalogHTTPAdapter(client *httpclient.Client, baseURL string) *CatalogHTTPAdapter {
	return &CatalogHTTPAdapter{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

type validateProductsRequest struct {
	IDs []int `json:"ids"`
}

// ValidateProducts 返回目录认可的商品。目录可能返回请求集合的子集。
func (a *CatalogHTTPAdapter) ValidateProducts(ctx context.Context, ids []int) ([]port.Product, error) {
	var products []port.Product
	if err := a.client.PostJSON(ctx, a.baseURL+catalogValidatePath, validateProductsRequest{IDs: ids}, &products); err != nil {
		return nil, err
	}
	return keepRequested(ids, products), nil
}

// keepRequested 丢弃目录返回的、未被请求的商品
func keepRequested(ids []int, products []port.Product) []port.Product {
	requested := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		requested[id] = struct{}{}
	}
	out := products[:0]
	for _, p := range products {
		if _, ok := requested[p.ID]; ok {
			out = append(out, p)
		}
	}
	return out
}
