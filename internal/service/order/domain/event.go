// internal/service/order/domain/event.go
package domain

// PaymentSucceeded 是支付服务在支付完成后发布的事件 (topic: payment.succeeded)
// 字段名与支付服务的消息格式保持一致。
type PaymentSucceeded struct {
	PaymentID  string `json:"stripePaymentId"`
	OrderID    string `json:"orderId"`
	ReceiptURL string `json:"receiptUrl,omitempty"`
}
