package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
)

// 投递状态常量
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// unknownChannelType Type() 发生 panic 时使用的类型名
const unknownChannelType = "unknown"

// Result 单个通道的投递结果
type Result struct {
	Channel string `json:"channel"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

// Observer 投递结果观察者(可选), 用于指标统计
type Observer interface {
	ObserveSend(channel string, err error)
}

// Manager 持有一组通道并把同一条消息广播给所有通道
// 添加新的通道类型不需要修改 Manager
type Manager struct {
	mu       sync.RWMutex
	channels []Channel
	observer Observer
}

// NewManager 创建空的通知管理器
func NewManager() *Manager {
	return &Manager{}
}

// SetObserver 注入结果观察者(可选)
func (manager *Manager) SetObserver(observer Observer) {
	manager.observer = observer
}

// AddChannel 注册通道, 保持注册顺序, 不做去重
func (manager *Manager) AddChannel(channel Channel) {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	manager.channels = append(manager.channels, channel)
}

// Types 按注册顺序返回通道类型名
func (manager *Manager) Types() []string {
	manager.mu.RLock()
	defer manager.mu.RUnlock()

	types := make([]string, 0, len(manager.channels))
	for _, channel := range manager.channels {
		channelType, _ := safeType(channel)
		types = append(types, channelType)
	}
	return types
}

// Len 返回已注册通道数量
func (manager *Manager) Len() int {
	manager.mu.RLock()
	defer manager.mu.RUnlock()

	return len(manager.channels)
}

// NotifyAll 按注册顺序把消息投递给每个通道, 每个通道恰好一次
// 单个通道失败(包括 panic)不影响后续通道; 所有失败合并为一个 error 返回
func (manager *Manager) NotifyAll(ctx context.Context, message string) ([]Result, error) {
	channels := manager.snapshot()

	results := make([]Result, 0, len(channels))
	var failures []error

	for _, channel := range channels {
		result, err := manager.sendToChannel(ctx, channel, message)
		results = append(results, result)

		if err != nil {
			failures = append(failures, err)
		}
	}

	return results, errors.Join(failures...)
}

// snapshot 复制当前通道列表, 广播期间允许并发注册
func (manager *Manager) snapshot() []Channel {
	manager.mu.RLock()
	defer manager.mu.RUnlock()

	channels := make([]Channel, len(manager.channels))
	copy(channels, manager.channels)
	return channels
}

// sendToChannel 向单个通道投递并记录结果
func (manager *Manager) sendToChannel(ctx context.Context, channel Channel, message string) (Result, error) {
	channelType, err := safeType(channel)
	if err == nil {
		err = safeSend(ctx, channel, message)
	}

	if manager.observer != nil {
		manager.observer.ObserveSend(channelType, err)
	}

	if err != nil {
		log.Printf("[NotifyManager] %s 通道投递失败: %v", channelType, err)
		return Result{Channel: channelType, Status: StatusFailed, Error: err.Error()},
			&ChannelError{Channel: channelType, Err: err}
	}

	return Result{Channel: channelType, Status: StatusSuccess}, nil
}

// safeType 读取通道类型名, panic 时使用占位名并返回 error
func safeType(channel Channel) (channelType string, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			channelType = unknownChannelType
			err = fmt.Errorf("channel type panicked: %v", recovered)
		}
	}()

	return channel.Type(), nil
}

// safeSend 调用通道 Send, 把 panic 转换为 error
func safeSend(ctx context.Context, channel Channel, message string) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("channel panicked: %v", recovered)
		}
	}()

	return channel.Send(ctx, message)
}
