package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck 单个依赖的探活函数
type HealthCheck func(ctx context.Context) error

// HealthHandler 处理 /health
type HealthHandler struct {
	checks map[string]HealthCheck
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// handleHealth 任一依赖不可用时返回 503
func (handler *HealthHandler) handleHealth(context *gin.Context) {
	ctx, cancel := contextWithTimeout(context, healthCheckTimeout)
	defer cancel()

	components := make(map[string]string, len(handler.checks))
	healthy := true
	for name, check := range handler.checks {
		if err := check(ctx); err != nil {
			components[name] = err.Error()
			healthy = false
			continue
		}
		components[name] = "ok"
	}

	if !healthy {
		sendResponse(context, http.StatusServiceUnavailable, gin.H{"status": "degraded", "components": components}, "unhealthy")
		return
	}
	sendSuccessResponse(context, gin.H{"status": "ok", "components": components})
}

func contextWithTimeout(c *gin.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), timeout)
}
