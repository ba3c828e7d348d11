package notify

import (
	"context"
	"fmt"
)

// Channel 通知通道
// 新增通道只需实现该接口并注册到 Manager, 无需改动已有代码
type Channel interface {
	// Send 投递一条文本消息
	Send(ctx context.Context, message string) error
	// Type 返回通道的可读类型名, 如 "Email"
	Type() string
}

// ChannelError 单个通道的投递失败
type ChannelError struct {
	Channel string
	Err     error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("[%s] 投递失败: %v", e.Channel, e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}
