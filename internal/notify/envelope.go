package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyMessage 队列中的通知正文为空
var ErrEmptyMessage = errors.New("notification message is empty")

// ErrEmptyID 信封缺少 ID, 无法去重和跟踪状态
var ErrEmptyID = errors.New("notification envelope id is empty")

// Envelope 异步投递时写入队列的通知
type Envelope struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	CreatedAt int64  `json:"created_at"`
}

// NewEnvelope 为消息生成带唯一 ID 的信封
func NewEnvelope(message string) Envelope {
	return Envelope{
		ID:        uuid.NewString(),
		Message:   message,
		CreatedAt: time.Now().Unix(),
	}
}

// Encode 序列化为队列负载
func (envelope Envelope) Encode() ([]byte, error) {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return payload, nil
}

// DecodeEnvelope 从队列负载还原信封
func DecodeEnvelope(payload []byte) (Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}

	if envelope.ID == "" {
		return Envelope{}, ErrEmptyID
	}

	if envelope.Message == "" {
		return Envelope{}, ErrEmptyMessage
	}

	return envelope, nil
}
