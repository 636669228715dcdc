// internal/service/order/domain/state.go
package domain

import (
	"fmt"
	"strings"
)

// Status 定义了订单的生命周期状态
type Status string

const (
	StatusPending   Status = "PENDING"   // 订单已创建，等待支付
	StatusCancelled Status = "CANCELLED" // 已取消
	StatusPaid      Status = "PAID"      // 支付服务已确认
)

// StatusList 是边界层允许接受的全部状态值（闭集）
var StatusList = []Status{StatusPending, StatusCancelled, StatusPaid}

// ParseStatus 将外部输入转换为 Status，任何不在 StatusList 中的字面量都会被拒绝
func ParseStatus(s string) (Status, error) {
	for _, st := range StatusList {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q. Possible status values are: %s", ErrInvalidStatus, s, statusListString())
}

func statusListString() string {
	names := make([]string, len(StatusList))
	for i, st := range StatusList {
		names[i] = string(st)
	}
	return strings.Join(names, ", ")
}
