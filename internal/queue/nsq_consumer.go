package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/nsqio/go-nsq"

	"solid-gateway/internal/config"
)

const (
	// 默认超时时间
	defaultMessageHandleTimeout = 30 * time.Second

	// 用户代理标识
	defaultUserAgent = "solid-gateway"

	// 日志前缀
	logPrefix = "[nsq] "

	errorMessageTopicRequired        = "topic is required"
	errorMessageChannelRequired      = "channel is required"
	errorMessageHandlerRequired      = "handler is required"
	errorMessageNoAddressConfigured  = "no nsqd address or lookupd configured"
	errorMessageDLQPublishFailed     = "failed to publish message to DLQ"
	errorMessageConsumerCreationFail = "failed to create NSQ consumer"
)

// ConsumerConfig 消费者配置
type ConsumerConfig struct {
	Topic                string
	Channel              string
	MaxInFlight          int
	Concurrency          int
	NsqdAddresses        []string
	LookupdAddresses     []string
	DLQTopic             string
	MaxAttemptsBeforeDLQ uint16
	MessageHandleTimeout time.Duration
	Handler              HandlerFunc
}

// ConsumerConfigFrom 由应用配置生成消费者配置
func ConsumerConfigFrom(nsqConfig config.NSQ, handler HandlerFunc) ConsumerConfig {
	return ConsumerConfig{
		Topic:                nsqConfig.Topic,
		Channel:              nsqConfig.Channel,
		MaxInFlight:          nsqConfig.MaxInFlight,
		Concurrency:          nsqConfig.Concurrency,
		NsqdAddresses:        nsqConfig.NsqdTCPAddrs,
		LookupdAddresses:     nsqConfig.LookupdHTTPAddrs,
		DLQTopic:             nsqConfig.DLQTopic,
		MaxAttemptsBeforeDLQ: uint16(nsqConfig.MaxConsumeAttemptsBeforeDLQ),
		Handler:              handler,
	}
}

// NSQConsumer NSQ 消费者, 失败超过次数的消息转入死信队列
type NSQConsumer struct {
	topic   string
	channel string

	// 连接地址
	nsqdAddresses    []string // nsqd TCP 地址
	lookupdAddresses []string // lookupd HTTP 地址

	consumer    *nsq.Consumer
	handler     HandlerFunc
	concurrency int

	// DLQ (死信队列) 配置
	dlqTopic             string
	maxAttemptsBeforeDLQ uint16
	dlqProducer          publisher

	messageHandleTimeout time.Duration
}

// NewNSQConsumer 从配置创建 NSQ 消费者
func NewNSQConsumer(config ConsumerConfig) (*NSQConsumer, error) {
	if err := validateConsumerConfig(config); err != nil {
		return nil, err
	}

	nsqConfig := nsq.NewConfig()
	nsqConfig.UserAgent = defaultUserAgent
	if config.MaxInFlight > 0 {
		nsqConfig.MaxInFlight = config.MaxInFlight
	}

	consumer, err := nsq.NewConsumer(config.Topic, config.Channel, nsqConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errorMessageConsumerCreationFail, err)
	}
	consumer.SetLogger(newNSQLogger(), nsq.LogLevelInfo)

	timeout := config.MessageHandleTimeout
	if timeout <= 0 {
		timeout = defaultMessageHandleTimeout
	}

	concurrency := config.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	return &NSQConsumer{
		topic:                config.Topic,
		channel:              config.Channel,
		nsqdAddresses:        config.NsqdAddresses,
		lookupdAddresses:     config.LookupdAddresses,
		consumer:             consumer,
		handler:              config.Handler,
		concurrency:          concurrency,
		dlqTopic:             config.DLQTopic,
		maxAttemptsBeforeDLQ: config.MaxAttemptsBeforeDLQ,
		messageHandleTimeout: timeout,
	}, nil
}

// validateConsumerConfig 验证消费者配置
func validateConsumerConfig(config ConsumerConfig) error {
	if config.Topic == "" {
		return errors.New(errorMessageTopicRequired)
	}

	if config.Channel == "" {
		return errors.New(errorMessageChannelRequired)
	}

	if config.Handler == nil {
		return errors.New(errorMessageHandlerRequired)
	}

	if len(config.NsqdAddresses) == 0 && len(config.LookupdAddresses) == 0 {
		return errors.New(errorMessageNoAddressConfigured)
	}

	return nil
}

func newNSQLogger() *log.Logger {
	return log.New(os.Stdout, logPrefix, log.LstdFlags)
}

// AttachDLQProducer 附加 DLQ 生产者, 未配置 DLQ topic 或地址时忽略
func (consumer *NSQConsumer) AttachDLQProducer(nsqdAddress string) error {
	if consumer.dlqTopic == "" || nsqdAddress == "" {
		return nil
	}

	producer, err := nsq.NewProducer(nsqdAddress, nsq.NewConfig())
	if err != nil {
		return fmt.Errorf("failed to create DLQ producer: %w", err)
	}
	producer.SetLogger(newNSQLogger(), nsq.LogLevelWarning)

	consumer.dlqProducer = producer
	return nil
}

// Run 连接 NSQ 并阻塞, 直到 ctx 取消或消费者停止
func (consumer *NSQConsumer) Run(ctx context.Context) error {
	consumer.consumer.AddConcurrentHandlers(nsq.HandlerFunc(consumer.handleMessage), consumer.concurrency)

	if err := consumer.connect(); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		consumer.Stop()
		<-consumer.consumer.StopChan
	case <-consumer.consumer.StopChan:
	}
	return nil
}

// handleMessage 处理单条消息, 返回错误时由 NSQ 重新投递
func (consumer *NSQConsumer) handleMessage(message *nsq.Message) error {
	ctx, cancel := context.WithTimeout(context.Background(), consumer.messageHandleTimeout)
	defer cancel()

	err := consumer.handler(ctx, message.Body, message.Attempts)
	if err == nil {
		return nil
	}

	return consumer.handleFailedMessage(message, err)
}

// handleFailedMessage 达到次数上限且 DLQ 可用时转入死信队列并确认消息
func (consumer *NSQConsumer) handleFailedMessage(message *nsq.Message, originalError error) error {
	if !consumer.shouldSendToDLQ(message) {
		return originalError
	}

	if err := consumer.dlqProducer.Publish(consumer.dlqTopic, message.Body); err != nil {
		log.Printf("%s%s: %v, original error: %v", logPrefix, errorMessageDLQPublishFailed, err, originalError)
		return originalError
	}

	log.Printf("%sMessage sent to DLQ %s after %d attempts: %v", logPrefix, consumer.dlqTopic, message.Attempts, originalError)
	return nil
}

func (consumer *NSQConsumer) shouldSendToDLQ(message *nsq.Message) bool {
	return consumer.IsDLQEnabled() && message.Attempts >= consumer.maxAttemptsBeforeDLQ
}

// connect 连接到 NSQD 与 Lookupd 节点
func (consumer *NSQConsumer) connect() error {
	for _, address := range consumer.nsqdAddresses {
		if err := consumer.consumer.ConnectToNSQD(address); err != nil {
			return fmt.Errorf("failed to connect to nsqd %s: %w", address, err)
		}
		log.Printf("%sConnected to nsqd: %s", logPrefix, address)
	}

	for _, address := range consumer.lookupdAddresses {
		if err := consumer.consumer.ConnectToNSQLookupd(address); err != nil {
			return fmt.Errorf("failed to connect to lookupd %s: %w", address, err)
		}
		log.Printf("%sConnected to lookupd: %s", logPrefix, address)
	}

	return nil
}

// Stop 停止消费者与 DLQ 生产者
func (consumer *NSQConsumer) Stop() {
	if consumer.consumer != nil {
		log.Printf("%sStopping NSQ consumer for topic: %s", logPrefix, consumer.topic)
		consumer.consumer.Stop()
	}

	if consumer.dlqProducer != nil {
		consumer.dlqProducer.Stop()
	}
}

// IsDLQEnabled 检查是否启用了 DLQ
func (consumer *NSQConsumer) IsDLQEnabled() bool {
	return consumer.dlqTopic != "" && consumer.dlqProducer != nil
}
