package modem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/tarm/serial"

	"solid-gateway/internal/config"
)

// ErrNoPort 未配置串口名称
var ErrNoPort = errors.New("modem port name is empty")

// Modem 表示一个打开的 4G 模块串口会话
//
//	port: 串口句柄
//	config: 串口与超时配置
//	operator: 已检测到的运营商类型(未检测时为 Unknown)
//
// 串口同一时刻只能承载一个 AT 会话, 对外方法通过 mu 串行执行
type Modem struct {
	mu       sync.Mutex
	port     io.ReadWriteCloser
	config   config.Modem
	operator OperatorType
	pending  []byte
}

// Open 打开串口并创建 Modem 实例
func Open(configuration config.Modem) (*Modem, error) {
	if configuration.PortName == "" {
		return nil, ErrNoPort
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        configuration.PortName,
		Baud:        configuration.BaudRate,
		ReadTimeout: configuration.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("打开串口 %s 失败: %w", configuration.PortName, err)
	}

	log.Printf("%s 串口已打开: %s @ %d", logPrefix, configuration.PortName, configuration.BaudRate)
	return New(port, configuration), nil
}

// New 基于已打开的端口创建 Modem, 未设置的超时使用默认值
func New(port io.ReadWriteCloser, configuration config.Modem) *Modem {
	if configuration.CommandTimeout <= 0 {
		configuration.CommandTimeout = config.DefaultModemCommandTimeout
	}
	if configuration.DialTimeout <= 0 {
		configuration.DialTimeout = config.DefaultModemDialTimeout
	}

	return &Modem{
		port:   port,
		config: configuration,
	}
}

// Close 关闭串口
func (m *Modem) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.port == nil {
		return nil
	}
	return m.port.Close()
}

// Initialize 执行基础 AT 指令完成模块初始化, 并尝试识别运营商
func (m *Modem) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resetPending()
	for _, command := range []string{cmdEchoOff, cmdSMSPDUMode} {
		if _, err := m.exec(ctx, command, m.config.CommandTimeout); err != nil {
			return fmt.Errorf("初始化命令 %s 失败: %w", trimCommand(command), err)
		}
	}

	if _, err := m.detectOperator(ctx); err != nil {
		log.Printf("%s 运营商识别失败, 按默认拨号方式处理: %v", logPrefix, err)
	}

	log.Printf("%s 设备初始化完成", logPrefix)
	return nil
}
