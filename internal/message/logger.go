package message

import (
	"fmt"
	"io"
)

const logPrefix = "LOG: "

// Logger 只负责流程日志输出
type Logger struct {
	out io.Writer
}

// NewLogger 创建写入 out 的日志器
func NewLogger(out io.Writer) *Logger {
	return &Logger{out: out}
}

// Log 输出一行 "LOG: <text>"
func (logger *Logger) Log(text string) {
	fmt.Fprintf(logger.out, "%s%s\n", logPrefix, text)
}
