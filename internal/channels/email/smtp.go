package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/emersion/go-message/mail"

	"solid-gateway/internal/config"
)

// ErrNoRecipients 邮件通道未配置收件人
var ErrNoRecipients = errors.New("email channel has no recipients")

// RawSender 原始邮件投递接口, SMTPTransport 为默认实现
type RawSender interface {
	SendRaw(ctx context.Context, rawMessage []byte, recipients []string) error
}

// SMTPChannel 通过 SMTP 投递的邮件通道
// 每条通知生成一封纯文本邮件发给配置中的全部收件人
type SMTPChannel struct {
	configuration config.Email
	sender        RawSender
	now           func() time.Time
}

// NewSMTP 创建 SMTP 邮件通道
func NewSMTP(configuration config.Email) *SMTPChannel {
	return NewSMTPWithSender(configuration, NewSMTPTransport(configuration))
}

// NewSMTPWithSender 使用自定义投递实现创建邮件通道
func NewSMTPWithSender(configuration config.Email, sender RawSender) *SMTPChannel {
	return &SMTPChannel{
		configuration: configuration,
		sender:        sender,
		now:           time.Now,
	}
}

// Type 返回通道类型名
func (channel *SMTPChannel) Type() string {
	return TypeLabel
}

// Send 构建 MIME 邮件并投递
func (channel *SMTPChannel) Send(ctx context.Context, message string) error {
	if len(channel.configuration.To) == 0 {
		return ErrNoRecipients
	}

	rawMessage, err := channel.buildMessage(message)
	if err != nil {
		return err
	}

	if err := channel.sender.SendRaw(ctx, rawMessage, channel.configuration.To); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}

	log.Printf("[EMAIL] 邮件已发送 -> %v", channel.configuration.To)
	return nil
}

// buildMessage 生成 UTF-8 纯文本邮件
func (channel *SMTPChannel) buildMessage(body string) ([]byte, error) {
	var header mail.Header
	header.SetDate(channel.now())
	header.SetSubject(channel.configuration.Subject)
	header.SetAddressList("From", []*mail.Address{{
		Name:    channel.configuration.FromName,
		Address: channel.configuration.From,
	}})
	header.SetAddressList("To", toAddresses(channel.configuration.To))
	header.SetContentType("text/plain", map[string]string{"charset": "utf-8"})

	if err := header.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("generate message id: %w", err)
	}

	var buffer bytes.Buffer
	writer, err := mail.CreateSingleInlineWriter(&buffer, header)
	if err != nil {
		return nil, fmt.Errorf("create mail writer: %w", err)
	}

	if _, err := io.WriteString(writer, body); err != nil {
		return nil, fmt.Errorf("write mail body: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close mail writer: %w", err)
	}

	return buffer.Bytes(), nil
}

func toAddresses(recipients []string) []*mail.Address {
	addresses := make([]*mail.Address, 0, len(recipients))
	for _, recipient := range recipients {
		addresses = append(addresses, &mail.Address{Address: recipient})
	}
	return addresses
}
