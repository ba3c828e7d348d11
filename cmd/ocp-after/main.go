// ocp-after 演示通过 Channel 接口扩展通知通道
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"solid-gateway/internal/channels/discord"
	"solid-gateway/internal/channels/email"
	"solid-gateway/internal/channels/sms"
	"solid-gateway/internal/channels/voice"
	"solid-gateway/internal/notify"
)

func run(ctx context.Context, out io.Writer) error {
	fmt.Fprintln(out, "=== AFTER: Open/Closed Principle Compliance ===")
	fmt.Fprintln(out, "Solution: Extend functionality without modifying existing code")
	fmt.Fprintln(out)

	manager := notify.NewManager()
	manager.AddChannel(email.NewConsole(out))
	manager.AddChannel(sms.NewConsole(out))
	manager.AddChannel(voice.NewConsole(out))
	manager.AddChannel(discord.NewConsole(out))

	fmt.Fprintln(out, "Notifying all channels:")
	if _, err := manager.NotifyAll(ctx, "Hello everyone!"); err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "SUCCESS: Can add new channels without modifying existing classes!")
	return nil
}

func main() {
	if err := run(context.Background(), os.Stdout); err != nil {
		log.Fatalf("[Main] 通知失败: %v", err)
	}
}
