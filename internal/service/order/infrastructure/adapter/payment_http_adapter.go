package adapter

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"orderflow/internal/pkg/httpclient"
	"orderflow/internal/service/order/domain/port"
)

const paymentSessionPath = "/payments/create-payment-session"

// PaymentHTTPAdapter 实现了 port.PaymentGateway 接口。
type PaymentHTTPAdapter struct {
	client  *httpclient.Client
	baseURL string
}

// NewPaymentHTTPAdapter 创建一个新的支付服务适配器。
func NewPaymentHTTPAdapter(client *httpclient.Client, baseURL string) *PaymentHTTPAdapter {
	return &PaymentHTTPAdapter{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// CreateSession 为订单创建支付会话
func (a *PaymentHTTPAdapter) CreateSession(ctx context.Context, req port.PaymentSessionRequest) (*port.PaymentSession, error) {
	var session port.PaymentSession
	if err := a.client.PostJSON(ctx, a.baseURL+paymentSessionPath, req, &session); err != nil {
		return nil, err
	}
	if session.ID == "" && session.URL == "" {
		return nil, errors.Errorf("payment service returned an empty session for order %s", req.OrderID)
	}
	return &session, nil
}
