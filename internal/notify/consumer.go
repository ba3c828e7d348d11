package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// ErrAllChannelsFailed 所有通道均投递失败
var ErrAllChannelsFailed = errors.New("all channels failed")

// Deduplicator 按信封 ID 去重
type Deduplicator interface {
	CheckAndSet(ctx context.Context, id string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, id string) error
}

// DeliveryRecorder 接收每次消费的投递结果
type DeliveryRecorder interface {
	RecordDelivery(ctx context.Context, envelope Envelope, attempts uint16, results []Result, err error)
}

// QueueOption 队列处理函数的可选配置
type QueueOption func(*queueHandler)

// WithDeduplicator 启用信封去重, ttl 为去重标记的保留时间
func WithDeduplicator(deduplicator Deduplicator, ttl time.Duration) QueueOption {
	return func(handler *queueHandler) {
		handler.deduplicator = deduplicator
		handler.dedupTTL = ttl
	}
}

// WithDeliveryRecorder 每次投递后回调 recorder
func WithDeliveryRecorder(recorder DeliveryRecorder) QueueOption {
	return func(handler *queueHandler) {
		handler.recorder = recorder
	}
}

type queueHandler struct {
	manager      *Manager
	deduplicator Deduplicator
	dedupTTL     time.Duration
	recorder     DeliveryRecorder
}

// QueueHandler 返回消费队列信封的处理函数, 签名与 queue.HandlerFunc 一致
// 只有全部通道失败时才返回 error 触发重投, 部分失败只记录日志, 避免已成功的通道收到重复消息
func QueueHandler(manager *Manager, options ...QueueOption) func(ctx context.Context, payload []byte, attempts uint16) error {
	handler := &queueHandler{manager: manager}
	for _, option := range options {
		option(handler)
	}
	return handler.handle
}

func (handler *queueHandler) handle(ctx context.Context, payload []byte, attempts uint16) error {
	envelope, err := DecodeEnvelope(payload)
	if err != nil {
		// 无法解析的负载重试也不会成功, 直接丢弃
		log.Printf("[NotifyConsumer] 丢弃无效消息: %v", err)
		return nil
	}

	if !handler.claim(ctx, envelope.ID) {
		log.Printf("[NotifyConsumer] 跳过重复消息 (id=%s)", envelope.ID)
		return nil
	}

	results, err := handler.manager.NotifyAll(ctx, envelope.Message)
	if handler.recorder != nil {
		handler.recorder.RecordDelivery(ctx, envelope, attempts, results, err)
	}
	if err == nil {
		return nil
	}

	if countSuccess(results) == 0 && len(results) > 0 {
		handler.release(ctx, envelope.ID)
		return fmt.Errorf("%w (id=%s, attempts=%d): %v", ErrAllChannelsFailed, envelope.ID, attempts, err)
	}

	log.Printf("[NotifyConsumer] 部分通道失败 (id=%s): %v", envelope.ID, err)
	return nil
}

// claim 返回 false 表示信封已处理过
// 去重存储不可用时照常投递
func (handler *queueHandler) claim(ctx context.Context, id string) bool {
	if handler.deduplicator == nil {
		return true
	}

	isNew, err := handler.deduplicator.CheckAndSet(ctx, id, handler.dedupTTL)
	if err != nil {
		log.Printf("[NotifyConsumer] 去重检查失败 (id=%s): %v", id, err)
		return true
	}
	return isNew
}

// release 全部失败需要重投时清除去重标记
func (handler *queueHandler) release(ctx context.Context, id string) {
	if handler.deduplicator == nil {
		return
	}

	if err := handler.deduplicator.Release(ctx, id); err != nil {
		log.Printf("[NotifyConsumer] 清除去重标记失败 (id=%s): %v", id, err)
	}
}

func countSuccess(results []Result) int {
	count := 0
	for _, result := range results {
		if result.Status == StatusSuccess {
			count++
		}
	}
	return count
}
