// srp-after 演示按职责拆分后的消息处理流程
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"solid-gateway/internal/message"
)

func run(ctx context.Context, out io.Writer) {
	fmt.Fprintln(out, "=== AFTER: SRP COMPLIANT EXAMPLE ===")

	processor := message.NewConsoleProcessor(out)

	processor.ProcessMessage(ctx, "Hello World!", "Agent1")
	fmt.Fprintln(out)

	processor.ProcessMessage(ctx, "", "Agent2")
	fmt.Fprintln(out)

	processor.ProcessMessage(ctx, "Hi there!", "")
	fmt.Fprintln(out)

	processor.ShowAll(ctx)
}

func main() {
	run(context.Background(), os.Stdout)
}
