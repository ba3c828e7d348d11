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

// 单条 UCS2 短信最多 70 个编码单元
const maxSMSUnits = 70

const smsConfirmTimeout = 30 * time.Second

var (
	// ErrInvalidPhone 号码为空或包含非数字字符
	ErrInvalidPhone = errors.New("invalid phone number")
	// ErrSMSTooLong 短信超过单条 PDU 容量
	ErrSMSTooLong = errors.New("sms exceeds 70 ucs2 characters")
)

// SendSMS 采用 PDU 方式发送 UCS2 编码短信
func (m *Modem) SendSMS(ctx context.Context, phoneNumber, message string) error {
	pdu, bodyLength, err := buildPDU(phoneNumber, message, m.config.SMSCNumber)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.resetPending()
	if _, err := m.exec(ctx, cmdSMSPDUMode, m.config.CommandTimeout); err != nil {
		return fmt.Errorf("设置PDU模式失败: %w", err)
	}

	if err := m.waitForPrompt(ctx, bodyLength); err != nil {
		return fmt.Errorf("发送CMGS命令失败: %w", err)
	}

	if _, err := m.exec(ctx, pdu+ctrlZ, smsConfirmTimeout); err != nil {
		return fmt.Errorf("发送PDU数据失败: %w", err)
	}

	log.Printf("%s 短信已发送至 %s", logPrefix, phoneNumber)
	return nil
}

// waitForPrompt 发送 AT+CMGS 并等待 ">" 提示符
func (m *Modem) waitForPrompt(ctx context.Context, bodyLength int) error {
	if err := m.write(fmt.Sprintf("AT+CMGS=%d\r", bodyLength)); err != nil {
		return err
	}

	deadline := time.Now().Add(m.config.CommandTimeout)
	for {
		line, err := m.readLine(ctx, deadline)
		if err != nil {
			return err
		}
		if line == ">" {
			return nil
		}
		if isFailureLine(line) {
			return fmt.Errorf("%w: %s", ErrCommandFailed, line)
		}
	}
}

// buildPDU 构造完整 PDU 及 AT+CMGS 所需的 TPDU 字节长度
func buildPDU(phoneNumber, message, smscNumber string) (string, int, error) {
	digits := normalizePhone(phoneNumber)
	if digits == "" || !isAllDigits(digits) {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidPhone, phoneNumber)
	}
	if utils.UCS2Units(message) > maxSMSUnits {
		return "", 0, ErrSMSTooLong
	}

	userData := utils.ToUCS2Hex(message)
	body := "31" + // SMS-SUBMIT, 相对有效期
		"00" + // TP-MR
		fmt.Sprintf("%02X", len(digits)) +
		"81" + // 号码类型: 国内
		swapNibbles(digits) +
		"00" + // TP-PID
		"08" + // TP-DCS: UCS2
		"A7" + // TP-VP: 24 小时
		fmt.Sprintf("%02X", len(userData)/2) +
		userData

	return buildSMSCPart(smscNumber) + body, len(body) / 2, nil
}

// buildSMSCPart 构造短信中心地址段, 未配置时由模块使用已存储的中心号码
func buildSMSCPart(smscNumber string) string {
	digits := strings.TrimPrefix(strings.TrimSpace(smscNumber), "+")
	if digits == "" {
		return "00"
	}

	encoded := swapNibbles(digits)
	return fmt.Sprintf("%02X91%s", len(encoded)/2+1, encoded)
}

// normalizePhone 去掉 +86 前缀与空白
func normalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	return strings.TrimPrefix(phone, "+86")
}

// swapNibbles 对号码做 3GPP 半字节交换, 奇数位补 F
func swapNibbles(digits string) string {
	if len(digits)%2 != 0 {
		digits += "F"
	}

	var encoded strings.Builder
	for i := 0; i < len(digits); i += 2 {
		encoded.WriteByte(digits[i+1])
		encoded.WriteByte(digits[i])
	}
	return encoded.String()
}
