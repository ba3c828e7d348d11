package sms

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// ErrNoTarget 未配置接收号码
var ErrNoTarget = errors.New("sms channel has no target phone number")

// Sender 短信下发能力, modem.Modem 为默认实现
type Sender interface {
	SendSMS(ctx context.Context, phoneNumber, message string) error
}

// ModemChannel 通过 4G 模块把通知以短信形式发给固定号码
type ModemChannel struct {
	sender Sender
	target string
}

// NewModem 创建 4G 模块短信通道
func NewModem(sender Sender, target string) *ModemChannel {
	return &ModemChannel{sender: sender, target: target}
}

// Send 下发一条短信到 target
func (channel *ModemChannel) Send(ctx context.Context, message string) error {
	if channel.target == "" {
		return ErrNoTarget
	}

	if err := channel.sender.SendSMS(ctx, channel.target, message); err != nil {
		return fmt.Errorf("modem sms to %s: %w", channel.target, err)
	}

	log.Printf("[SMS] 短信已发送 -> %s", channel.target)
	return nil
}

// Type 返回通道类型名
func (channel *ModemChannel) Type() string {
	return TypeLabel
}
