// CLAUDE:SUMMARY Entry point for the itemrelay CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hazyhaar/itemrelay/cmd/itemrelay/commands"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	commands.ExecuteContext(ctx)
}
