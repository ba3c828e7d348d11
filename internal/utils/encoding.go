package utils

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/encoding/simplifiedchinese"
)

// ErrOddHexLength UCS2 HEX 长度必须是 4 的倍数
var ErrOddHexLength = errors.New("ucs2 hex length must be a multiple of 4")

// ToUCS2Hex 将字符串编码为 UTF-16BE 大写 HEX, 增补平面字符拆成代理对
func ToUCS2Hex(s string) string {
	var result strings.Builder
	for _, unit := range utf16.Encode([]rune(s)) {
		result.WriteString(fmt.Sprintf("%04X", unit))
	}
	return result.String()
}

// UCS2Units 返回字符串的 UTF-16 编码单元数
func UCS2Units(s string) int {
	return len(utf16.Encode([]rune(s)))
}

// DecodeUCS2Hex 将 UTF-16BE HEX 还原为字符串
func DecodeUCS2Hex(hexString string) (string, error) {
	hexString = strings.ReplaceAll(hexString, " ", "")
	if len(hexString)%4 != 0 {
		return "", ErrOddHexLength
	}

	raw, err := hex.DecodeString(hexString)
	if err != nil {
		return "", err
	}

	units := make([]uint16, 0, len(raw)/2)
	for i := 0; i < len(raw); i += 2 {
		units = append(units, uint16(raw[i])<<8|uint16(raw[i+1]))
	}
	return string(utf16.Decode(units)), nil
}

// ToGBK 将字符串编码为 GBK 字节(模块 TTS 使用)
func ToGBK(s string) ([]byte, error) {
	return simplifiedchinese.GBK.NewEncoder().Bytes([]byte(s))
}
