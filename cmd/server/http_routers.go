package main

import (
	"github.com/gin-gonic/gin"

	"solid-gateway/internal/httpapi"
)

// BuildGinRouter 使用应用上下文构建 HTTP 路由
func BuildGinRouter(appContext *AppContext) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	dependencies := httpapi.Dependencies{
		Processor:      appContext.Processor,
		Notifier:       appContext.Manager,
		Enqueuer:       appContext.Enqueuer,
		AsyncDefault:   appContext.Config.App.AsyncNotify,
		HealthChecks:   appContext.HealthChecks,
		RequestTimeout: appContext.Config.App.RequestTimeout,
	}

	if appContext.Statuses != nil {
		dependencies.Statuses = appContext.Statuses
	}

	if appContext.Metrics != nil {
		dependencies.Metrics = appContext.Metrics.Handler()
		dependencies.Middlewares = append(dependencies.Middlewares, appContext.Metrics.Middleware())
	}

	return httpapi.NewRouter(dependencies)
}
