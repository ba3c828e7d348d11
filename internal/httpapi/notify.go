package httpapi

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"solid-gateway/internal/notify"
	"solid-gateway/internal/queue"
	"solid-gateway/internal/status"
)

// 投递模式
const (
	ModeSync  = "sync"
	ModeAsync = "async"
)

// Notifier 广播能力, notify.Manager 为默认实现
type Notifier interface {
	NotifyAll(ctx context.Context, message string) ([]notify.Result, error)
	Types() []string
}

// StatusTracker 异步投递状态, status.Tracker 为默认实现
type StatusTracker interface {
	MarkQueued(ctx context.Context, envelope notify.Envelope) error
	MarkFailed(ctx context.Context, envelope notify.Envelope, cause error) error
	Get(ctx context.Context, id string) (*status.DeliveryStatus, error)
}

// NotifyRequest 广播请求
type NotifyRequest struct {
	Message string `json:"message" binding:"required"`
}

// NotifyHandler 处理 /v1/notify 与 /v1/channels
type NotifyHandler struct {
	notifier     Notifier
	enqueuer     queue.Enqueuer
	tracker      StatusTracker
	asyncDefault bool
}

// NewNotifyHandler 创建广播处理器, enqueuer 为空时不支持 async 模式
// tracker 为空时不记录投递状态
func NewNotifyHandler(notifier Notifier, enqueuer queue.Enqueuer, tracker StatusTracker, asyncDefault bool) *NotifyHandler {
	return &NotifyHandler{
		notifier:     notifier,
		enqueuer:     enqueuer,
		tracker:      tracker,
		asyncDefault: asyncDefault && enqueuer != nil,
	}
}

// handleNotify POST /v1/notify?mode=sync|async
func (handler *NotifyHandler) handleNotify(context *gin.Context) {
	var request NotifyRequest
	if err := context.ShouldBindJSON(&request); err != nil {
		sendErrorResponse(context, http.StatusBadRequest, "解析请求失败: "+err.Error())
		return
	}

	mode, ok := handler.resolveMode(context.Query("mode"))
	if !ok {
		sendErrorResponse(context, http.StatusBadRequest, "mode 必须为 sync 或 async")
		return
	}

	if mode == ModeAsync {
		handler.enqueue(context, request.Message)
		return
	}
	handler.notifySync(context, request.Message)
}

// resolveMode 未指定 mode 时按配置决定
func (handler *NotifyHandler) resolveMode(mode string) (string, bool) {
	switch mode {
	case "":
		if handler.asyncDefault {
			return ModeAsync, true
		}
		return ModeSync, true
	case ModeSync, ModeAsync:
		return mode, true
	default:
		return "", false
	}
}

// notifySync 同步广播, 部分通道失败仍返回 200 并携带逐通道结果
func (handler *NotifyHandler) notifySync(context *gin.Context, message string) {
	results, err := handler.notifier.NotifyAll(context.Request.Context(), message)

	responseMessage := "success"
	if err != nil {
		log.Printf("[NOTIFY_HANDLER] 部分通道投递失败: %v", err)
		responseMessage = "partial failure"
	}

	sendResponse(context, http.StatusOK, gin.H{
		"mode":    ModeSync,
		"results": results,
	}, responseMessage)
}

// enqueue 异步广播, 返回信封 ID
func (handler *NotifyHandler) enqueue(context *gin.Context, message string) {
	if handler.enqueuer == nil {
		sendErrorResponse(context, http.StatusServiceUnavailable, "异步队列未启用")
		return
	}

	envelope := notify.NewEnvelope(message)
	payload, err := envelope.Encode()
	if err != nil {
		sendErrorResponse(context, http.StatusInternalServerError, "编码失败: "+err.Error())
		return
	}

	// 先写入 queued, 避免覆盖消费者已写入的结果
	if handler.tracker != nil {
		if err := handler.tracker.MarkQueued(context.Request.Context(), envelope); err != nil {
			log.Printf("[NOTIFY_HANDLER] 记录入队状态失败 (id=%s): %v", envelope.ID, err)
		}
	}

	if err := handler.enqueuer.Enqueue(context.Request.Context(), payload); err != nil {
		log.Printf("[NOTIFY_HANDLER] 入队失败: %v", err)
		if handler.tracker != nil {
			if markErr := handler.tracker.MarkFailed(context.Request.Context(), envelope, err); markErr != nil {
				log.Printf("[NOTIFY_HANDLER] 记录入队失败状态失败 (id=%s): %v", envelope.ID, markErr)
			}
		}
		sendErrorResponse(context, http.StatusInternalServerError, "入队失败: "+err.Error())
		return
	}

	sendResponse(context, http.StatusAccepted, gin.H{
		"mode": ModeAsync,
		"id":   envelope.ID,
	}, "queued")
}

// handleStatus GET /v1/notify/:id
func (handler *NotifyHandler) handleStatus(context *gin.Context) {
	if handler.tracker == nil {
		sendErrorResponse(context, http.StatusServiceUnavailable, "投递状态未启用")
		return
	}

	deliveryStatus, err := handler.tracker.Get(context.Request.Context(), context.Param("id"))
	if errors.Is(err, status.ErrNotFound) {
		sendErrorResponse(context, http.StatusNotFound, "投递状态不存在")
		return
	}
	if err != nil {
		sendErrorResponse(context, http.StatusInternalServerError, "查询投递状态失败: "+err.Error())
		return
	}

	sendSuccessResponse(context, deliveryStatus)
}

// handleChannels GET /v1/channels
func (handler *NotifyHandler) handleChannels(context *gin.Context) {
	sendSuccessResponse(context, gin.H{"channels": handler.notifier.Types()})
}
