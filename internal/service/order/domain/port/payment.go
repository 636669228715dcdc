package port

import (
	"context"

	"github.com/shopspring/decimal"
)

// PaymentSessionItem 是支付会话中的一行
type PaymentSessionItem struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// PaymentSessionRequest 是创建支付会话的请求
type PaymentSessionRequest struct {
	OrderID  string               `json:"orderId"`
	Currency string               `json:"currency"`
	Items    []PaymentSessionItem `json:"items"`
}

// PaymentSession 是支付服务返回的会话句柄，客户端凭 URL 完成支付
type PaymentSession struct {
	ID         string `json:"id"`
	URL        string `json:"url,omitempty"`
	SuccessURL string `json:"successUrl,omitempty"`
	CancelURL  string `json:"cancelUrl,omitempty"`
}

// PaymentGateway 是支付服务的出站端口。
type PaymentGateway interface {
	CreateSession(ctx context.Context, req PaymentSessionRequest) (*PaymentSession, error)
}
