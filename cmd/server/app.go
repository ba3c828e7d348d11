package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"solid-gateway/internal/config"
)

const (
	configFilePath         = "etc/app.yaml"
	envFilePath            = ".env"
	gracefulShutdownPeriod = 5 * time.Second
)

// serialDevicePatterns Linux 下常见的 4G 模块串口设备
var serialDevicePatterns = []string{"/dev/ttyUSB*", "/dev/ttyACM*"}

//
// 串口设备检测
//

// SerialPortDetector 串口设备检测器
// 仅在 Linux 环境下工作, 其他操作系统会直接跳过
type SerialPortDetector struct {
	operatingSystem string
	glob            func(pattern string) ([]string, error)
}

// NewSerialPortDetector 创建串口检测器实例
func NewSerialPortDetector() *SerialPortDetector {
	return &SerialPortDetector{
		operatingSystem: runtime.GOOS,
		glob:            filepath.Glob,
	}
}

// DetectInto 配置了 modem 通道但未指定串口时, 选用检测到的第一个设备
func (detector *SerialPortDetector) DetectInto(configuration *config.Config) {
	if configuration.Modem.PortName != "" || !needsModem(configuration.Channels) {
		return
	}

	if detector.operatingSystem != "linux" {
		log.Printf("[SerialDetector] 非 Linux 环境(%s), 跳过串口检测", detector.operatingSystem)
		return
	}

	devices := detector.listSerialDevices()
	if len(devices) == 0 {
		log.Println("[SerialDetector] 未检测到串口设备, 请确认设备已正确插入")
		return
	}

	configuration.Modem.PortName = devices[0]
	log.Printf("[SerialDetector] 检测到串口设备 %v, 使用 %s", devices, devices[0])
}

// listSerialDevices 列出系统中可用的串口设备
func (detector *SerialPortDetector) listSerialDevices() []string {
	var devices []string
	for _, pattern := range serialDevicePatterns {
		matches, err := detector.glob(pattern)
		if err != nil {
			continue
		}
		devices = append(devices, matches...)
	}
	return devices
}

//
// HTTP 服务器管理
//

// ServerManager HTTP 服务器管理器
type ServerManager struct {
	server *http.Server
}

// NewServerManager 创建服务器管理器实例
func NewServerManager(address string, handler http.Handler) *ServerManager {
	return &ServerManager{
		server: &http.Server{
			Addr:              address,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start 在独立的 goroutine 中启动 HTTP 服务器
func (manager *ServerManager) Start() {
	go func() {
		log.Printf("[Server] HTTP 服务启动于 %s", manager.server.Addr)

		if err := manager.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[Server] 启动失败: %v", err)
		}
	}()
}

// GracefulShutdown 优雅关闭服务器
// 等待现有请求完成或超时后强制关闭
func (manager *ServerManager) GracefulShutdown() error {
	log.Println("[Server] 开始优雅关闭...")

	shutdownContext, cancel := context.WithTimeout(context.Background(), gracefulShutdownPeriod)
	defer cancel()

	if err := manager.server.Shutdown(shutdownContext); err != nil {
		log.Printf("[Server] 关闭过程出现错误: %v", err)
		return err
	}

	log.Println("[Server] 优雅关闭完成")
	return nil
}

//
// 信号处理器
//

// SignalHandler 系统信号处理器
type SignalHandler struct {
	notifyContext context.Context
	stopFunc      context.CancelFunc
}

// NewSignalHandler 监听 SIGINT 和 SIGTERM 信号用于优雅关闭
func NewSignalHandler() *SignalHandler {
	notifyContext, stopFunc := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	return &SignalHandler{
		notifyContext: notifyContext,
		stopFunc:      stopFunc,
	}
}

// Context 收到信号时取消的 context, 供后台消费者使用
func (handler *SignalHandler) Context() context.Context {
	return handler.notifyContext
}

// WaitForShutdownSignal 阻塞直到收到中断信号
func (handler *SignalHandler) WaitForShutdownSignal() {
	<-handler.notifyContext.Done()
	handler.stopFunc()
	log.Println("[SignalHandler] 收到关闭信号")
}

//
// 应用程序启动器
//

// ApplicationRunner 应用程序运行器
// 负责整个应用的生命周期管理
type ApplicationRunner struct {
	configuration   config.Config
	serverManager   *ServerManager
	consumerManager *NotifyConsumerManager
	signalHandler   *SignalHandler
	appContext      *AppContext
}

// NewApplicationRunner 加载 .env 与 YAML 配置并创建运行器
func NewApplicationRunner() *ApplicationRunner {
	config.LoadEnv(envFilePath)
	configuration := config.MustLoad(config.ResolvePath(configFilePath))

	return &ApplicationRunner{
		configuration: configuration,
		signalHandler: NewSignalHandler(),
	}
}

// Run 执行完整的启动、运行和关闭流程
func (runner *ApplicationRunner) Run() {
	NewSerialPortDetector().DetectInto(&runner.configuration)
	runner.initializeApplication()
	runner.startConsumers()
	runner.startHTTPServer()
	runner.waitForShutdown()
}

// initializeApplication 初始化应用程序, 必需依赖不可用时直接退出
func (runner *ApplicationRunner) initializeApplication() {
	appContext, err := InitAppContext(runner.signalHandler.Context(), runner.configuration)
	if err != nil {
		log.Fatalf("[Runner] 应用程序初始化失败: %v", err)
	}

	runner.appContext = appContext
	log.Println("[Runner] 应用程序初始化完成")
}

// startConsumers 启动异步通知消费者
func (runner *ApplicationRunner) startConsumers() {
	runner.consumerManager = NewNotifyConsumerManager(runner.appContext)
	runner.consumerManager.Start(runner.signalHandler.Context())
}

// startHTTPServer 启动 HTTP 服务器
func (runner *ApplicationRunner) startHTTPServer() {
	router := BuildGinRouter(runner.appContext)

	runner.serverManager = NewServerManager(runner.configuration.App.Addr, router)
	runner.serverManager.Start()
}

// waitForShutdown 等待并执行优雅关闭
func (runner *ApplicationRunner) waitForShutdown() {
	runner.signalHandler.WaitForShutdownSignal()
	runner.performShutdown()
}

// performShutdown 先停止接收请求, 再按依赖倒序释放资源
func (runner *ApplicationRunner) performShutdown() {
	if err := runner.serverManager.GracefulShutdown(); err != nil {
		log.Printf("[Runner] 服务器关闭出现错误: %v", err)
	}

	if runner.consumerManager != nil {
		runner.consumerManager.Wait()
	}

	if runner.appContext != nil {
		runner.appContext.Close()
		log.Println("[Runner] 应用上下文资源释放完成")
	}

	log.Println("[Runner] 应用程序已完全关闭")
}
