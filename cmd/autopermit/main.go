// File: cmd/autopermit/main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/xkilldash9x/autopermit/cmd"
	"github.com/xkilldash9x/autopermit/internal/config"
)

// Exit codes.
const (
	exitOK     = 0
	exitFailed = 1
	exitConfig = 2
)

// Allows mocking os.Exit in tests.
var (
	osExit  = os.Exit
	execute = cmd.Execute
)

func main() {
	// SIGINT and SIGTERM cancel the run; the browser is still shut down.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	osExit(exitCode(execute(ctx)))
}

// exitCode maps a run error to the process exit status. A run interrupted
// by a signal is a failure: the permit may be issued without a renewal armed.
func exitCode(err error) int {
	var cfgErr *config.ConfigurationError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &cfgErr):
		return exitConfig
	default:
		return exitFailed
	}
}
