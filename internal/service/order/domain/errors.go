package domain

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrRemoteCall    = errors.New("remote call failed")
	ErrInvalidStatus = errors.New("invalid order status")
	ErrInvalidOrder  = errors.New("order must contain at least one item with a positive quantity")
)

// NotFoundError 携带未找到的订单ID，errors.Is(err, ErrOrderNotFound) 为 true
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("order with id #%s not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrOrderNotFound
}

// RemoteCallError 表示对商品目录或支付服务的调用失败（包括超时）
type RemoteCallError struct {
	Service string
	Err     error
}

func (e *RemoteCallError) Error() string {
	return fmt.Sprintf("%s call failed: %v", e.Service, e.Err)
}

func (e *RemoteCallError) Unwrap() error {
	return e.Err
}

func (e *RemoteCallError) Is(target error) bool {
	return target == ErrRemoteCall
}

// NewRemoteCallError 包装一个远程调用错误；已经是 RemoteCallError 的错误原样返回
func NewRemoteCallError(service string, err error) error {
	if err == nil {
		return nil
	}
	var rce *RemoteCallError
	if errors.As(err, &rce) {
		return err
	}
	return &RemoteCallError{Service: service, Err: err}
}
