package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"solid-gateway/internal/message"
	"solid-gateway/internal/notify"
)

// Collector 网关指标集合, 使用独立注册表
// 实现 message.Observer 与 notify.Observer
type Collector struct {
	registry *prometheus.Registry

	MessagesProcessed *prometheus.CounterVec
	NotificationsSent *prometheus.CounterVec
	RequestCount      *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
}

// NewCollector 创建并注册全部指标
func NewCollector() *Collector {
	collector := &Collector{
		registry: prometheus.NewRegistry(),

		MessagesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solid_messages_processed_total",
				Help: "Number of processed messages by result",
			},
			[]string{"result"},
		),

		NotificationsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solid_notifications_sent_total",
				Help: "Number of channel deliveries by channel and status",
			},
			[]string{"channel", "status"},
		),

		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solid_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"path", "method", "status"},
		),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solid_http_request_duration_seconds",
				Help:    "Histogram of response durations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),
	}

	collector.registry.MustRegister(
		collector.MessagesProcessed,
		collector.NotificationsSent,
		collector.RequestCount,
		collector.RequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return collector
}

// ObserveProcess 记录消息处理结果
func (collector *Collector) ObserveProcess(outcome message.Outcome) {
	collector.MessagesProcessed.WithLabelValues(string(outcome)).Inc()
}

// ObserveSend 记录单个通道的投递结果
func (collector *Collector) ObserveSend(channel string, err error) {
	status := notify.StatusSuccess
	if err != nil {
		status = notify.StatusFailed
	}
	collector.NotificationsSent.WithLabelValues(channel, status).Inc()
}

// Handler 返回 /metrics 处理器
func (collector *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(collector.registry, promhttp.HandlerOpts{})
}

// Middleware gin 中间件, 统计请求数与耗时
// 未匹配路由统一记为 "unmatched", 防止标签基数膨胀
func (collector *Collector) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		collector.RequestCount.WithLabelValues(path, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		collector.RequestDuration.WithLabelValues(path, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
