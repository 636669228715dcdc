// internal/pkg/redis/client.go
package redis

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
)

// Client 封装了 go-redis 的 UniversalClient，单节点和集群地址都可以使用
type Client struct {
	client goredis.UniversalClient
}

// NewClient 根据逗号分隔的地址列表创建客户端，并在返回前执行一次 PING
func NewClient(addrs string) (*Client, error) {
	list := strings.Split(addrs, ",")
	for i := range list {
		list[i] = strings.TrimSpace(list[i])
	}

	c := goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:        list,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, errors.Wrapf(err, "redis: ping %s", addrs)
	}
	return NewFromUniversal(c), nil
}

// NewFromUniversal 用已有的 go-redis 客户端构造 Client
func NewFromUniversal(c goredis.UniversalClient) *Client {
	return &Client{client: c}
}

// GetClient 返回底层的 go-redis 客户端
func (c *Client) GetClient() goredis.UniversalClient {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}
