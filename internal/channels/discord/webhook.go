package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"solid-gateway/internal/config"
)

// DefaultTimeout Webhook 请求默认超时
const DefaultTimeout = 10 * time.Second

// ErrNoWebhookURL 未配置 Webhook 地址
var ErrNoWebhookURL = errors.New("discord webhook url is empty")

// webhookPayload Discord 执行 Webhook 的请求体
type webhookPayload struct {
	Content  string `json:"content"`
	Username string `json:"username,omitempty"`
}

// WebhookChannel 通过 Discord Webhook 投递通知
type WebhookChannel struct {
	webhookURL string
	username   string
	client     *http.Client
}

// NewWebhook 创建 Discord Webhook 通道
func NewWebhook(configuration config.Discord) *WebhookChannel {
	timeout := configuration.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &WebhookChannel{
		webhookURL: configuration.WebhookURL,
		username:   configuration.Username,
		client:     &http.Client{Timeout: timeout},
	}
}

// Send POST 一条消息到 Webhook, 2xx 视为成功
func (channel *WebhookChannel) Send(ctx context.Context, message string) error {
	if channel.webhookURL == "" {
		return ErrNoWebhookURL
	}

	body, err := json.Marshal(webhookPayload{Content: message, Username: channel.username})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, channel.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := channel.client.Do(request)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(response.Body, 512))
		return fmt.Errorf("discord webhook returned status %d: %s", response.StatusCode, bytes.TrimSpace(detail))
	}

	log.Printf("[DISCORD] 消息已投递 (status=%d)", response.StatusCode)
	return nil
}

// Type 返回通道类型名
func (channel *WebhookChannel) Type() string {
	return TypeLabel
}
