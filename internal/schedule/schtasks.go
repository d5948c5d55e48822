package schedule

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SchTasks registers tasks with the Windows Task Scheduler through schtasks.exe.
// Creating a task with /RL HIGHEST needs an elevated prompt.
type SchTasks struct {
	run    runFunc
	logger *zap.Logger
}

// NewSchTasks returns a SchTasks backend.
func NewSchTasks(logger *zap.Logger) *SchTasks {
	return &SchTasks{run: runCommand, logger: logger.Named("schtasks")}
}

// Register creates a run-once task at task.At. Task Scheduler only takes
// minutes, so a time with seconds is rounded up to the next minute and the
// task never fires before task.At. /F overwrites an existing task.
func (s *SchTasks) Register(ctx context.Context, task Task) error {
	args := createArgs(task)
	s.logger.Debug("Creating scheduled task.", zap.Strings("args", args))
	out, err := s.run(ctx, "schtasks", args...)
	if err != nil {
		return commandError("schtasks /create", out, err)
	}
	s.logger.Info("Scheduled permit renewal.", zap.String("task", task.Name), zap.Time("at", task.At))
	return nil
}

// Unregister deletes the named task.
func (s *SchTasks) Unregister(ctx context.Context, name string) error {
	out, err := s.run(ctx, "schtasks", "/Delete", "/TN", name, "/F")
	if err != nil {
		return commandError("schtasks /delete", out, err)
	}
	s.logger.Info("Deleted scheduled task.", zap.String("task", name))
	return nil
}

func createArgs(task Task) []string {
	at := startMinute(task.At)
	return []string{
		"/create",
		"/tn", task.Name,
		"/tr", windowsCommandLine(task.Program, task.Args),
		"/sc", "once",
		"/sd", at.Format("01/02/2006"),
		"/st", at.Format("15:04"),
		"/rl", "HIGHEST",
		"/f",
	}
}

// startMinute returns the first whole local minute at or after t.
func startMinute(t time.Time) time.Time {
	return t.Local().Add(time.Minute - time.Nanosecond).Truncate(time.Minute)
}

// windowsCommandLine joins program and args into a single /TR value,
// quoting anything that contains a space.
func windowsCommandLine(program string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, quoteWindows(program))
	for _, a := range args {
		parts = append(parts, quoteWindows(a))
	}
	return strings.Join(parts, " ")
}

func quoteWindows(s string) string {
	if s == "" || strings.ContainsAny(s, " \t") {
		return `"` + s + `"`
	}
	return s
}
