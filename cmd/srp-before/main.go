// srp-before 演示把日志、校验、存储、展示混在一个类型里的写法
package main

import (
	"fmt"
	"io"
	"os"
)

// MessageProcessor 同时承担日志、校验、存储和展示
// 任何一项变化都需要修改这个类型
type MessageProcessor struct {
	out      io.Writer
	database []string
}

// ProcessMessage 处理一条消息, 成功存储时返回 true
func (processor *MessageProcessor) ProcessMessage(message, sender string) bool {
	fmt.Fprintf(processor.out, "LOG: Processing message from %s\n", sender)

	if message == "" || sender == "" {
		fmt.Fprintln(processor.out, "LOG: Validation failed")
		fmt.Fprintln(processor.out, "ERROR: Invalid input!")
		return false
	}

	processor.database = append(processor.database, message+" from "+sender)
	fmt.Fprintln(processor.out, "LOG: Stored in database")

	fmt.Fprintf(processor.out, "DISPLAY: %s\n", message)
	fmt.Fprintln(processor.out, "SUCCESS: Message processed!")
	fmt.Fprintln(processor.out, "LOG: Processing complete")

	return true
}

// ShowAll 打印全部记录
func (processor *MessageProcessor) ShowAll() {
	fmt.Fprintln(processor.out, "LOG: Showing all messages")
	for _, item := range processor.database {
		fmt.Fprintf(processor.out, "- %s\n", item)
	}
}

func run(out io.Writer) {
	fmt.Fprintln(out, "=== BEFORE: SRP VIOLATION EXAMPLE ===")

	processor := &MessageProcessor{out: out}

	processor.ProcessMessage("Hello World!", "Agent1")
	fmt.Fprintln(out)

	processor.ProcessMessage("", "Agent")
	fmt.Fprintln(out)

	processor.ProcessMessage("Hi there!", "")
	fmt.Fprintln(out)

	processor.ShowAll()
}

func main() {
	run(os.Stdout)
}
