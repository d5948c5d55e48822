// Package schedule registers one-shot future invocations with the operating
// system's task scheduler.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
)

// TaskName is the single task this program owns on a host. Registering it
// again replaces the previous instance.
const TaskName = "AutomaticParkingPermitRenewal"

// Task describes a one-shot invocation of Program with Args at At.
type Task struct {
	Name    string
	At      time.Time
	Program string
	Args    []string
}

// Scheduler is a host facility that runs a task once at a future time.
type Scheduler interface {
	// Register creates the task, replacing any existing task of the same name.
	Register(ctx context.Context, task Task) error
	// Unregister removes the named task.
	Unregister(ctx context.Context, name string) error
}

// ErrUnsupportedPlatform is returned by New on hosts without a known scheduler.
var ErrUnsupportedPlatform = errors.New("no supported task scheduler for this platform")

// runFunc executes a command and returns its combined output.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// execCommandContext is swapped in tests.
var execCommandContext = exec.CommandContext

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return execCommandContext(ctx, name, args...).CombinedOutput()
}

// New returns the scheduler backend for the running OS.
func New(logger *zap.Logger) (Scheduler, error) {
	return forOS(runtime.GOOS, logger)
}

func forOS(goos string, logger *zap.Logger) (Scheduler, error) {
	switch goos {
	case "windows":
		return NewSchTasks(logger), nil
	case "linux":
		return NewSystemdTimer(logger), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, goos)
	}
}

// commandError folds a command's output into its error.
func commandError(name string, out []byte, err error) error {
	msg := strings.TrimSpace(string(out))
	if msg == "" {
		return fmt.Errorf("%s failed: %w", name, err)
	}
	return fmt.Errorf("%s failed: %w: %s", name, err, msg)
}
