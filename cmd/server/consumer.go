package main

import (
	"context"
	"log"
	"sync"
)

// NotifyConsumerManager 异步通知消费者管理器
type NotifyConsumerManager struct {
	appContext *AppContext
	waitGroup  sync.WaitGroup
}

// NewNotifyConsumerManager 创建消费者管理器
func NewNotifyConsumerManager(appContext *AppContext) *NotifyConsumerManager {
	return &NotifyConsumerManager{appContext: appContext}
}

// Start 在后台运行消费者, ctx 取消时退出
func (manager *NotifyConsumerManager) Start(ctx context.Context) {
	consumer := manager.appContext.Consumer
	if consumer == nil {
		log.Println("[ConsumerManager] 未启用异步通知消费")
		return
	}

	manager.waitGroup.Add(1)
	go func() {
		defer manager.waitGroup.Done()

		log.Println("[ConsumerManager] 异步通知消费者启动")
		if err := consumer.Run(ctx); err != nil {
			log.Printf("[ConsumerManager] 消费者退出: %v", err)
			return
		}
		log.Println("[ConsumerManager] 异步通知消费者已退出")
	}()
}

// Wait 等待所有消费者退出
func (manager *NotifyConsumerManager) Wait() {
	manager.waitGroup.Wait()
}
