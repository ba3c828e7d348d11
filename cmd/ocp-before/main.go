// ocp-before 演示每新增一个通道都要修改分支的写法
package main

import (
	"fmt"
	"io"
	"os"
)

// NotificationManager 按通道名分支投递
// 新增 voice 通道时必须修改 Notify
type NotificationManager struct {
	out io.Writer
}

// Notify 向指定通道投递消息, 未知通道只打印提示
func (manager *NotificationManager) Notify(message, channel string) {
	switch channel {
	case "email":
		fmt.Fprintf(manager.out, "Email: %s\n", message)
	case "sms":
		fmt.Fprintf(manager.out, "SMS: %s\n", message)
	case "voice":
		fmt.Fprintf(manager.out, "Voice: %s\n", message)
	default:
		fmt.Fprintf(manager.out, "Unknown channel: %s\n", channel)
	}
}

func run(out io.Writer) {
	fmt.Fprintln(out, "=== BEFORE: Open/Closed Principle Violation ===")
	fmt.Fprintln(out, "Problem: Must modify existing code to add new channels")
	fmt.Fprintln(out)

	manager := &NotificationManager{out: out}

	manager.Notify("Hello via Email!", "email")
	manager.Notify("Hello via SMS!", "sms")
	manager.Notify("Hello via Voice!", "voice")
	manager.Notify("Hello!", "unknown")

	fmt.Fprintln(out)
	fmt.Fprintln(out, "PROBLEM: Adding voice channel required modifying NotificationManager!")
}

func main() {
	run(os.Stdout)
}
