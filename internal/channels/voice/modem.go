package voice

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// ErrNoTarget 未配置被叫号码
var ErrNoTarget = errors.New("voice channel has no target phone number")

// Caller 语音呼叫能力, modem.Modem 为默认实现
type Caller interface {
	MakeVoiceCall(ctx context.Context, phoneNumber, text string) error
}

// ModemChannel 拨打固定号码并通过 TTS 播报通知
type ModemChannel struct {
	caller Caller
	target string
}

// NewModem 创建 4G 模块语音通道
func NewModem(caller Caller, target string) *ModemChannel {
	return &ModemChannel{caller: caller, target: target}
}

// Send 呼叫 target 并播报 message
func (channel *ModemChannel) Send(ctx context.Context, message string) error {
	if channel.target == "" {
		return ErrNoTarget
	}

	if err := channel.caller.MakeVoiceCall(ctx, channel.target, message); err != nil {
		return fmt.Errorf("modem voice call to %s: %w", channel.target, err)
	}

	log.Printf("[VOICE] 语音播报完成 -> %s", channel.target)
	return nil
}

// Type 返回通道类型名
func (channel *ModemChannel) Type() string {
	return TypeLabel
}
