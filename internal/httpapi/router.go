package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"solid-gateway/internal/queue"
)

// Dependencies 路由依赖
type Dependencies struct {
	Processor      MessageProcessor
	Notifier       Notifier
	Enqueuer       queue.Enqueuer // 为空时 async 模式返回 503
	Statuses       StatusTracker
	AsyncDefault   bool
	HealthChecks   map[string]HealthCheck
	Metrics        http.Handler
	Middlewares    []gin.HandlerFunc
	RequestTimeout time.Duration
}

// NewRouter 构建 gin 路由
func NewRouter(dependencies Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(dependencies.Middlewares...)
	if dependencies.RequestTimeout > 0 {
		router.Use(timeoutMiddleware(dependencies.RequestTimeout))
	}

	router.GET("/health", NewHealthHandler(dependencies.HealthChecks).handleHealth)
	if dependencies.Metrics != nil {
		router.GET("/metrics", gin.WrapH(dependencies.Metrics))
	}

	apiV1 := router.Group("/v1")
	{
		messageHandler := NewMessageHandler(dependencies.Processor)
		apiV1.POST("/messages", messageHandler.handleProcess)
		apiV1.GET("/messages", messageHandler.handleList)

		notifyHandler := NewNotifyHandler(dependencies.Notifier, dependencies.Enqueuer, dependencies.Statuses, dependencies.AsyncDefault)
		apiV1.POST("/notify", notifyHandler.handleNotify)
		apiV1.GET("/notify/:id", notifyHandler.handleStatus)
		apiV1.GET("/channels", notifyHandler.handleChannels)
	}

	return router
}

// corsMiddleware 跨域资源共享中间件
func corsMiddleware() gin.HandlerFunc {
	return func(context *gin.Context) {
		context.Header("Access-Control-Allow-Origin", "*")
		context.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		context.Header("Access-Control-Allow-Headers", "Content-Type")

		if context.Request.Method == http.MethodOptions {
			context.AbortWithStatus(http.StatusNoContent)
			return
		}
		context.Next()
	}
}

// timeoutMiddleware 为请求 context 设置截止时间, 下游存储与通道按 ctx 取消
func timeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := contextWithTimeout(c, timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
