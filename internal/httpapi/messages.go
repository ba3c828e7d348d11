package httpapi

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"solid-gateway/internal/message"
)

// MessageProcessor 消息处理能力, message.Processor 为默认实现
type MessageProcessor interface {
	Process(ctx context.Context, content, sender string) message.Outcome
	Records(ctx context.Context) ([]string, error)
}

// ProcessRequest 消息处理请求
// 空字段是合法输入, 由校验器判为拒绝, 这里不做 binding 校验
type ProcessRequest struct {
	Content string `json:"content"`
	Sender  string `json:"sender"`
}

// ProcessResult 消息处理结果
type ProcessResult struct {
	Accepted bool            `json:"accepted"`
	Outcome  message.Outcome `json:"outcome"`
}

// MessageHandler 处理 /v1/messages
type MessageHandler struct {
	processor MessageProcessor
}

// NewMessageHandler 创建消息处理器
func NewMessageHandler(processor MessageProcessor) *MessageHandler {
	return &MessageHandler{processor: processor}
}

// handleProcess POST /v1/messages
// 接受与拒绝均返回 200, 存储失败返回 500
func (handler *MessageHandler) handleProcess(context *gin.Context) {
	var request ProcessRequest
	if err := context.ShouldBindJSON(&request); err != nil {
		sendErrorResponse(context, http.StatusBadRequest, "解析请求失败: "+err.Error())
		return
	}

	outcome := handler.processor.Process(context.Request.Context(), request.Content, request.Sender)
	result := ProcessResult{Accepted: outcome == message.OutcomeAccepted, Outcome: outcome}

	switch outcome {
	case message.OutcomeStorageFailed:
		log.Printf("[MESSAGE_HANDLER] 存储失败: sender=%q", request.Sender)
		sendResponse(context, http.StatusInternalServerError, result, "storage failed")
	case message.OutcomeRejected:
		sendResponse(context, http.StatusOK, result, "invalid input")
	default:
		sendSuccessResponse(context, result)
	}
}

// handleList GET /v1/messages
func (handler *MessageHandler) handleList(context *gin.Context) {
	records, err := handler.processor.Records(context.Request.Context())
	if err != nil {
		sendErrorResponse(context, http.StatusInternalServerError, "查询记录失败: "+err.Error())
		return
	}

	sendSuccessResponse(context, gin.H{
		"records": records,
		"count":   len(records),
	})
}
