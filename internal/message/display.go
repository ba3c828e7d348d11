package message

import (
	"fmt"
	"io"
)

// 展示文本常量
const (
	displayPrefix     = "DISPLAY: "
	successText       = "SUCCESS: Message processed!"
	invalidInputText  = "ERROR: Invalid input!"
	storageFailedText = "ERROR: Storage failed!"
	recordLinePrefix  = "- "
)

// Display 只负责面向用户的展示
type Display struct {
	out io.Writer
}

// NewDisplay 创建写入 out 的展示器
func NewDisplay(out io.Writer) *Display {
	return &Display{out: out}
}

// ShowMessage 展示消息正文
func (display *Display) ShowMessage(content string) {
	fmt.Fprintf(display.out, "%s%s\n", displayPrefix, content)
}

// ShowSuccess 展示处理成功
func (display *Display) ShowSuccess() {
	fmt.Fprintln(display.out, successText)
}

// ShowError 展示输入无效
func (display *Display) ShowError() {
	fmt.Fprintln(display.out, invalidInputText)
}

// ShowStorageError 展示存储失败
func (display *Display) ShowStorageError() {
	fmt.Fprintln(display.out, storageFailedText)
}

// ShowAll 按顺序逐行展示所有记录
func (display *Display) ShowAll(items []string) {
	for _, item := range items {
		fmt.Fprintf(display.out, "%s%s\n", recordLinePrefix, item)
	}
}
