package status

import (
	"context"
	"log"
	"time"

	"solid-gateway/internal/notify"
)

// Tracker 维护信封从入队到投递完成的状态
type Tracker struct {
	store Store
	now   func() time.Time
}

// NewTracker 创建状态跟踪器
func NewTracker(store Store) *Tracker {
	return &Tracker{store: store, now: time.Now}
}

// MarkQueued 记录信封已入队
func (tracker *Tracker) MarkQueued(ctx context.Context, envelope notify.Envelope) error {
	now := tracker.now().Unix()

	return tracker.store.Save(ctx, &DeliveryStatus{
		ID:        envelope.ID,
		Message:   envelope.Message,
		State:     StateQueued,
		CreatedAt: envelope.CreatedAt,
		UpdatedAt: now,
	})
}

// MarkFailed 记录信封未能入队, 覆盖先前写入的 queued 状态
func (tracker *Tracker) MarkFailed(ctx context.Context, envelope notify.Envelope, cause error) error {
	status := &DeliveryStatus{
		ID:        envelope.ID,
		Message:   envelope.Message,
		State:     StateFailed,
		CreatedAt: envelope.CreatedAt,
		UpdatedAt: tracker.now().Unix(),
	}
	if cause != nil {
		status.Error = cause.Error()
	}

	return tracker.store.Save(ctx, status)
}

// RecordDelivery 记录一次消费的投递结果, 实现 notify.DeliveryRecorder
// 写入失败只记录日志, 不影响消费
func (tracker *Tracker) RecordDelivery(ctx context.Context, envelope notify.Envelope, attempts uint16, results []notify.Result, err error) {
	status, getErr := tracker.store.Get(ctx, envelope.ID)
	if getErr != nil {
		status = &DeliveryStatus{
			ID:        envelope.ID,
			Message:   envelope.Message,
			CreatedAt: envelope.CreatedAt,
		}
	}

	status.State = stateFromResults(results)
	status.Attempts = attempts
	status.Results = results
	status.Error = ""
	if err != nil {
		status.Error = err.Error()
	}
	status.UpdatedAt = tracker.now().Unix()

	if saveErr := tracker.store.Save(ctx, status); saveErr != nil {
		log.Printf("[STATUS] 保存投递状态失败 (id=%s): %v", envelope.ID, saveErr)
	}
}

// Get 查询投递状态
func (tracker *Tracker) Get(ctx context.Context, id string) (*DeliveryStatus, error) {
	return tracker.store.Get(ctx, id)
}

// stateFromResults 没有通道时视为已投递
func stateFromResults(results []notify.Result) string {
	succeeded := 0
	for _, result := range results {
		if result.Status == notify.StatusSuccess {
			succeeded++
		}
	}

	switch {
	case succeeded == len(results):
		return StateDelivered
	case succeeded == 0:
		return StateFailed
	default:
		return StatePartial
	}
}
