package modem

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"solid-gateway/internal/utils"
)

const (
	maxTTSBytesLength      = 1600
	callPollInterval       = 250 * time.Millisecond
	hangUpTimeout          = 3 * time.Second
	minTTSDuration         = 4 * time.Second
	maxTTSDuration         = 40 * time.Second
	ttsCharactersPerSecond = 8
)

// ErrEmptyTTS 清理后没有可播报的文本
var ErrEmptyTTS = errors.New("tts text is empty")

// CallError 语音呼叫某一步骤失败
type CallError struct {
	Operation string
	Reason    string
	Err       error
}

func (e *CallError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s失败: %s (%v)", e.Operation, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s失败: %s", e.Operation, e.Reason)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

func newCallError(operation, reason string, err error) *CallError {
	return &CallError{Operation: operation, Reason: reason, Err: err}
}

// MakeVoiceCall 拨号, 接通后 TTS 播报文本, 播报结束后挂断
func (m *Modem) MakeVoiceCall(ctx context.Context, phoneNumber, text string) error {
	digits := normalizePhone(phoneNumber)
	if digits == "" || !isAllDigits(digits) {
		return fmt.Errorf("%w: %q", ErrInvalidPhone, phoneNumber)
	}

	cleanedText := sanitizeTTSText(text)
	if cleanedText == "" {
		return newCallError("TTS 播报", "文本为空", ErrEmptyTTS)
	}

	encodedText, err := utils.ToGBK(cleanedText)
	if err != nil {
		return newCallError("TTS 播报", "GBK 编码失败", err)
	}
	encodedText = limitTTSBytesLength(encodedText)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.resetPending()
	m.ensureCallTerminated(ctx)

	if err := m.dial(ctx, digits); err != nil {
		return err
	}
	defer m.hangUp(ctx)

	return m.speak(ctx, encodedText)
}

// dial 发送拨号指令并轮询 AT+CLCC 直到接通
func (m *Modem) dial(ctx context.Context, digits string) error {
	log.Printf("%s 拨号 %s ...", logPrefix, digits)
	if _, err := m.exec(ctx, m.buildDialCommand(digits), m.config.CommandTimeout); err != nil {
		return newCallError("拨号", "发送拨号指令失败", err)
	}

	deadline := time.Now().Add(m.config.DialTimeout)
	for time.Now().Before(deadline) {
		established, err := m.pollCallState(ctx, deadline)
		if err != nil {
			return newCallError("拨号", "未接通或被拒绝", err)
		}
		if established {
			log.Printf("%s 已接通", logPrefix)
			return nil
		}

		select {
		case <-ctx.Done():
			return newCallError("拨号", "已取消", ctx.Err())
		case <-time.After(callPollInterval):
		}
	}

	return newCallError("拨号", "等待接通超时", ErrTimeout)
}

// pollCallState 查询一次通话列表, 返回是否存在已接通的通话
func (m *Modem) pollCallState(ctx context.Context, deadline time.Time) (bool, error) {
	if err := m.write(cmdListCalls); err != nil {
		return false, err
	}

	established := false
	for {
		line, err := m.readLine(ctx, deadline)
		if err != nil {
			return false, err
		}

		switch {
		case line == "OK":
			return established, nil
		case isCallFailedLine(line):
			return false, fmt.Errorf("%w: %s", ErrCommandFailed, line)
		case isCallEstablishedLine(line):
			established = true
		}
	}
}

// buildDialCommand 电信网络使用 AT+CDV 拨号
func (m *Modem) buildDialCommand(digits string) string {
	if m.operator == OperatorChinaTelecom {
		return fmt.Sprintf("AT+CDV%s;\r", digits)
	}
	return fmt.Sprintf("ATD%s;\r", digits)
}

// speak 发送 TTS 指令(模式 2 失败时降级为模式 1)并等待播报结束
func (m *Modem) speak(ctx context.Context, encodedText []byte) error {
	var lastErr error
	started := false
	for _, mode := range []int{2, 1} {
		command := fmt.Sprintf("AT+CTTS=%d,\"%s\"\r", mode, encodedText)
		if _, lastErr = m.exec(ctx, command, m.config.CommandTimeout); lastErr == nil {
			started = true
			break
		}
		log.Printf("%s TTS 模式 %d 未响应: %v", logPrefix, mode, lastErr)
	}
	if !started {
		return newCallError("TTS 播报", "发送 TTS 指令失败", lastErr)
	}

	if m.waitForTTSCompletion(ctx, calculateTTSWaitDuration(encodedText)) {
		log.Printf("%s 播报结束, 挂断", logPrefix)
	} else {
		log.Printf("%s 未检测到播报完成信号, 按估算时间结束", logPrefix)
	}
	return nil
}

// waitForTTSCompletion 等待 +CTTS 状态由非 0 回到 0, 对方挂断时提前结束
func (m *Modem) waitForTTSCompletion(ctx context.Context, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	seenPlaying := false
	for {
		line, err := m.readLine(ctx, deadline)
		if err != nil {
			return false
		}

		if status, found := extractTTSStatus(line); found {
			if status != "0" {
				seenPlaying = true
			} else if seenPlaying {
				return true
			}
		}
		if strings.Contains(strings.ToUpper(line), "NO CARRIER") {
			return false
		}
	}
}

// ensureCallTerminated 挂断可能残留的上一通电话, 失败不影响本次呼叫
func (m *Modem) ensureCallTerminated(ctx context.Context) {
	if _, err := m.exec(ctx, cmdHangUp, hangUpTimeout); err != nil {
		log.Printf("%s 清理旧连接: %v", logPrefix, err)
	}
	m.resetPending()
}

func (m *Modem) hangUp(ctx context.Context) {
	if _, err := m.exec(ctx, cmdHangUp, hangUpTimeout); err != nil {
		log.Printf("%s 挂断: %v", logPrefix, err)
	}
}

// isCallEstablishedLine +CLCC: <idx>,<dir>,<stat>,... 中 stat 为 0 表示通话中
func isCallEstablishedLine(line string) bool {
	if !strings.HasPrefix(strings.ToUpper(line), "+CLCC:") {
		return false
	}

	parts := strings.Split(line, ",")
	if len(parts) < 3 {
		return false
	}
	return strings.TrimSpace(parts[2]) == "0"
}

func isCallFailedLine(line string) bool {
	upperLine := strings.ToUpper(line)
	for _, keyword := range []string{"NO CARRIER", "BUSY", "NO ANSWER"} {
		if strings.Contains(upperLine, keyword) {
			return true
		}
	}
	return false
}

func extractTTSStatus(line string) (string, bool) {
	if !strings.HasPrefix(strings.ToUpper(line), "+CTTS:") {
		return "", false
	}
	return strings.TrimSpace(line[len("+CTTS:"):]), true
}

// calculateTTSWaitDuration 按每秒约 8 个汉字估算播报时长
func calculateTTSWaitDuration(encodedText []byte) time.Duration {
	characterCount := len(encodedText) / 2
	estimated := time.Duration(characterCount/ttsCharactersPerSecond+2) * time.Second

	switch {
	case estimated < minTTSDuration:
		estimated = minTTSDuration
	case estimated > maxTTSDuration:
		estimated = maxTTSDuration
	}
	return estimated + 3*time.Second
}

func sanitizeTTSText(text string) string {
	replacer := strings.NewReplacer("\r", " ", "\n", " ", "\t", " ", `"`, "")
	return strings.TrimSpace(replacer.Replace(text))
}

func limitTTSBytesLength(data []byte) []byte {
	if len(data) > maxTTSBytesLength {
		return data[:maxTTSBytesLength]
	}
	return data
}
