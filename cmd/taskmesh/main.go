// Command taskmesh runs tasks against a multi-agent system from the command
// line, with persistent sessions, a task queue and cron scheduling.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, newRootCmd(defaultDeps())); err != nil {
		stop()
		os.Exit(1)
	}
}
