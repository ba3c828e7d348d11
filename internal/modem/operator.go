package modem

import (
	"context"
	"fmt"
	"log"
	"strings"
)

const (
	imsiMinLength = 15
	imsiPrefixLen = 5
)

// OperatorType 运营商类型, 决定语音拨号指令
type OperatorType int

const (
	OperatorUnknown OperatorType = iota
	OperatorChinaMobile
	OperatorChinaUnicom
	OperatorChinaTelecom
	OperatorChinaTietong
)

func (o OperatorType) String() string {
	switch o {
	case OperatorChinaMobile:
		return "中国移动"
	case OperatorChinaUnicom:
		return "中国联通"
	case OperatorChinaTelecom:
		return "中国电信"
	case OperatorChinaTietong:
		return "中国铁通"
	default:
		return "未知运营商"
	}
}

// Operator 返回当前检测到的运营商类型
func (m *Modem) Operator() OperatorType {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.operator
}

// detectOperator 读取 IMSI 前缀并推断运营商类型, 调用方需持有 mu
func (m *Modem) detectOperator(ctx context.Context) (OperatorType, error) {
	lines, err := m.exec(ctx, cmdGetIMSI, m.config.CommandTimeout)
	if err != nil {
		return OperatorUnknown, fmt.Errorf("获取IMSI失败: %w", err)
	}

	imsi, err := parseIMSI(lines)
	if err != nil {
		return OperatorUnknown, err
	}

	m.operator = operatorFromIMSI(imsi)
	log.Printf("%s 运营商: %s (IMSI前缀: %s)", logPrefix, m.operator, imsi[:imsiPrefixLen])
	return m.operator, nil
}

// parseIMSI 取首个长度不小于 15 且全为数字的行
func parseIMSI(lines []string) (string, error) {
	for _, line := range lines {
		if len(line) >= imsiMinLength && isAllDigits(line) {
			return line, nil
		}
	}
	return "", fmt.Errorf("未获取到IMSI")
}

// operatorFromIMSI 根据 IMSI 前缀推断运营商
func operatorFromIMSI(imsi string) OperatorType {
	if len(imsi) < imsiPrefixLen {
		return OperatorUnknown
	}

	switch imsi[:imsiPrefixLen] {
	case "46000", "46002", "46007", "46008":
		return OperatorChinaMobile
	case "46001", "46006", "46009":
		return OperatorChinaUnicom
	case "46003", "46005", "46011":
		return OperatorChinaTelecom
	case "46020":
		return OperatorChinaTietong
	default:
		return OperatorUnknown
	}
}

func isAllDigits(s string) bool {
	return s != "" && strings.Trim(s, "0123456789") == ""
}
