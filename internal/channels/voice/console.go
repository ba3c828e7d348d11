package voice

import (
	"context"
	"fmt"
	"io"
)

// TypeLabel 语音通道类型名
const TypeLabel = "Voice"

// ConsoleChannel 把语音通知打印到 out
type ConsoleChannel struct {
	out io.Writer
}

// NewConsole 创建控制台语音通道
func NewConsole(out io.Writer) *ConsoleChannel {
	return &ConsoleChannel{out: out}
}

// Send 输出 "Voice: <message>"
func (channel *ConsoleChannel) Send(_ context.Context, message string) error {
	_, err := fmt.Fprintf(channel.out, "%s: %s\n", TypeLabel, message)
	return err
}

// Type 返回通道类型名
func (channel *ConsoleChannel) Type() string {
	return TypeLabel
}
