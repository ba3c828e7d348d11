package message

import (
	"context"
	"io"
	"log"
)

// Outcome 单条消息的处理结果
type Outcome string

const (
	OutcomeAccepted      Outcome = "accepted"
	OutcomeRejected      Outcome = "rejected"
	OutcomeStorageFailed Outcome = "storage_failed"
)

// Observer 处理结果观察者(可选), 用于指标统计
type Observer interface {
	ObserveProcess(outcome Outcome)
}

// Processor 消息处理编排器
// 只负责按顺序调度 校验 -> 存储 -> 展示, 具体逻辑全部委托给协作者
type Processor struct {
	logger    *Logger
	validator Validator
	database  Database
	display   *Display
	observer  Observer
}

// NewProcessor 组装编排器
func NewProcessor(logger *Logger, database Database, display *Display) *Processor {
	return &Processor{
		logger:   logger,
		database: database,
		display:  display,
	}
}

// NewConsoleProcessor 创建日志和展示都写入 out、使用内存存储的编排器
func NewConsoleProcessor(out io.Writer) *Processor {
	return NewProcessor(NewLogger(out), NewMemoryDatabase(), NewDisplay(out))
}

// SetObserver 注入结果观察者(可选)
func (processor *Processor) SetObserver(observer Observer) {
	processor.observer = observer
}

// ProcessMessage 处理一条消息, 仅在记录成功追加时返回 true
func (processor *Processor) ProcessMessage(ctx context.Context, content, sender string) bool {
	return processor.Process(ctx, content, sender) == OutcomeAccepted
}

// Process 处理一条消息并返回详细结果
// 输入无效是正常结果, 不作为 error 返回
func (processor *Processor) Process(ctx context.Context, content, sender string) Outcome {
	outcome := processor.process(ctx, content, sender)

	if processor.observer != nil {
		processor.observer.ObserveProcess(outcome)
	}

	return outcome
}

func (processor *Processor) process(ctx context.Context, content, sender string) Outcome {
	processor.logger.Log("Processing message from " + sender)

	if !processor.validator.IsValid(content, sender) {
		processor.logger.Log("Validation failed")
		processor.display.ShowError()
		return OutcomeRejected
	}

	if err := processor.database.Store(ctx, content+" from "+sender); err != nil {
		log.Printf("[Processor] 存储失败 (sender=%s): %v", sender, err)
		processor.logger.Log("Storage failed")
		processor.display.ShowStorageError()
		return OutcomeStorageFailed
	}
	processor.logger.Log("Stored in database")

	processor.display.ShowMessage(content)
	processor.display.ShowSuccess()
	processor.logger.Log("Processing complete")

	return OutcomeAccepted
}

// ShowAll 按插入顺序展示全部记录, 只读
func (processor *Processor) ShowAll(ctx context.Context) {
	processor.logger.Log("Showing all messages")

	items, err := processor.database.GetAll(ctx)
	if err != nil {
		log.Printf("[Processor] 读取记录失败: %v", err)
		processor.display.ShowStorageError()
		return
	}

	processor.display.ShowAll(items)
}

// Records 返回全部记录, 不产生展示输出
func (processor *Processor) Records(ctx context.Context) ([]string, error) {
	return processor.database.GetAll(ctx)
}
