package sms

import (
	"context"
	"fmt"
	"io"
)

// TypeLabel 短信通道类型名
const TypeLabel = "SMS"

// ConsoleChannel 把短信通知打印到 out
type ConsoleChannel struct {
	out io.Writer
}

// NewConsole 创建控制台短信通道
func NewConsole(out io.Writer) *ConsoleChannel {
	return &ConsoleChannel{out: out}
}

// Send 输出 "SMS: <message>"
func (channel *ConsoleChannel) Send(_ context.Context, message string) error {
	_, err := fmt.Fprintf(channel.out, "%s: %s\n", TypeLabel, message)
	return err
}

// Type 返回通道类型名
func (channel *ConsoleChannel) Type() string {
	return TypeLabel
}
