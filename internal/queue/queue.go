package queue

import "context"

// Enqueuer 异步通知入队接口
type Enqueuer interface {
	Enqueue(ctx context.Context, payload []byte) error
	Close()
}

// Consumer 队列消费者接口
type Consumer interface {
	Run(ctx context.Context) error
	Stop()
}

// HandlerFunc 消息处理函数类型
// 返回错误时消息会被重新投递, 超过次数后进入死信队列
type HandlerFunc func(ctx context.Context, payload []byte, attempts uint16) error
