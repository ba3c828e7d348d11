package modem

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"time"
)

const (
	cmdEchoOff    = "ATE0\r"
	cmdSMSPDUMode = "AT+CMGF=0\r"
	cmdGetIMSI    = "AT+CIMI\r"
	cmdListCalls  = "AT+CLCC\r"
	cmdHangUp     = "AT+CHUP\r"
	ctrlZ         = "\x1a"
)

const (
	logPrefix          = "[MODEM]"
	recoverableBackoff = 20 * time.Millisecond
	readChunkSize      = 128
	maxPendingSize     = 1024
)

var (
	// ErrTimeout 等待模块响应超时
	ErrTimeout = errors.New("modem response timeout")
	// ErrCommandFailed 模块返回 ERROR / +CME ERROR / +CMS ERROR
	ErrCommandFailed = errors.New("modem command failed")
)

// SendCommand 发送单条 AT 指令, 返回直到 OK 为止的响应行
func (m *Modem) SendCommand(ctx context.Context, command string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resetPending()
	lines, err := m.exec(ctx, command, m.config.CommandTimeout)
	return strings.Join(lines, "\n"), err
}

// exec 写入指令并收集响应, 遇到 OK 返回, 遇到错误行返回 ErrCommandFailed
func (m *Modem) exec(ctx context.Context, command string, timeout time.Duration) ([]string, error) {
	if err := m.write(command); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(timeout)
	var lines []string
	for {
		line, err := m.readLine(ctx, deadline)
		if err != nil {
			return lines, fmt.Errorf("%s: %w", trimCommand(command), err)
		}

		if line == "OK" {
			return lines, nil
		}
		if isFailureLine(line) {
			return lines, fmt.Errorf("%w: %s -> %s", ErrCommandFailed, trimCommand(command), line)
		}
		lines = append(lines, line)
	}
}

// write 向串口写入原始数据
func (m *Modem) write(data string) error {
	logCommand(data)
	if _, err := m.port.Write([]byte(data)); err != nil {
		return fmt.Errorf("写入命令失败: %w", err)
	}
	return nil
}

// readLine 读取下一条非空响应行
// 串口读超时与 EOF 视为暂无数据, 持续轮询直到 deadline
func (m *Modem) readLine(ctx context.Context, deadline time.Time) (string, error) {
	chunk := make([]byte, readChunkSize)
	for {
		if line, ok := m.takeLine(); ok {
			return line, nil
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if !time.Now().Before(deadline) {
			return "", ErrTimeout
		}

		n, err := m.port.Read(chunk)
		if n > 0 {
			m.pending = append(m.pending, chunk[:n]...)
			continue
		}
		if err != nil && !isRecoverable(err) {
			return "", fmt.Errorf("读取响应失败: %w", err)
		}
		time.Sleep(recoverableBackoff)
	}
}

// takeLine 从缓冲中切出一行, 短信提示符 ">" 没有换行也作为一行返回
func (m *Modem) takeLine() (string, bool) {
	for {
		index := bytes.IndexAny(m.pending, "\r\n")
		if index < 0 {
			if strings.TrimSpace(string(m.pending)) == ">" {
				m.resetPending()
				return ">", true
			}
			if len(m.pending) > maxPendingSize {
				m.pending = m.pending[len(m.pending)-maxPendingSize:]
			}
			return "", false
		}

		line := strings.TrimSpace(string(m.pending[:index]))
		m.pending = m.pending[index+1:]
		if line != "" {
			return line, true
		}
	}
}

func (m *Modem) resetPending() {
	m.pending = m.pending[:0]
}

func isRecoverable(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrNoProgress) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isFailureLine(line string) bool {
	return line == "ERROR" ||
		strings.HasPrefix(line, "+CME ERROR") ||
		strings.HasPrefix(line, "+CMS ERROR")
}

func trimCommand(command string) string {
	return strings.TrimRight(command, "\r\n")
}

// logCommand 以转义形式输出指令, 避免 Ctrl+Z 等控制字符污染日志
func logCommand(command string) {
	log.Printf("%s >> %q", logPrefix, trimCommand(command))
}
