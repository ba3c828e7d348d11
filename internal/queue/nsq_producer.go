package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/nsqio/go-nsq"
)

// ErrEmptyPayload 入队内容为空
var ErrEmptyPayload = errors.New("empty payload")

// publisher nsq.Producer 中用到的部分
type publisher interface {
	Publish(topic string, body []byte) error
	Stop()
}

// NSQProducer NSQ 生产者
type NSQProducer struct {
	producer publisher
	topic    string
}

// NewNSQProducer 创建一个新的 NSQ 生产者
func NewNSQProducer(address, topic string) (*NSQProducer, error) {
	if address == "" {
		return nil, errors.New(errorMessageNoAddressConfigured)
	}
	if topic == "" {
		return nil, errors.New(errorMessageTopicRequired)
	}

	config := nsq.NewConfig()
	config.UserAgent = defaultUserAgent

	producer, err := nsq.NewProducer(address, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create NSQ producer: %w", err)
	}
	producer.SetLogger(newNSQLogger(), nsq.LogLevelWarning)

	return &NSQProducer{producer: producer, topic: topic}, nil
}

// Enqueue 发布消息到 topic
// go-nsq 的 Publish 不接收 context, 这里只在发布前检查取消
func (n *NSQProducer) Enqueue(ctx context.Context, payload []byte) error {
	if len(payload) == 0 {
		return ErrEmptyPayload
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := n.producer.Publish(n.topic, payload); err != nil {
		return fmt.Errorf("publish to %s failed: %w", n.topic, err)
	}
	return nil
}

// Close 停止生产者
func (n *NSQProducer) Close() {
	if n.producer != nil {
		n.producer.Stop()
	}
}
