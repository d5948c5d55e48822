package schedule

import (
	"context"

	"go.uber.org/zap"
)

// SystemdTimer registers tasks as transient systemd user timers. It is the
// Linux stand-in for SchTasks; user units run with the caller's privileges.
type SystemdTimer struct {
	run    runFunc
	logger *zap.Logger
}

// NewSystemdTimer returns a SystemdTimer backend.
func NewSystemdTimer(logger *zap.Logger) *SystemdTimer {
	return &SystemdTimer{run: runCommand, logger: logger.Named("systemd")}
}

// Register stops any existing timer of the same name and starts a new one
// that fires once at task.At.
func (s *SystemdTimer) Register(ctx context.Context, task Task) error {
	// A missing unit makes these fail; only the new unit's creation matters.
	if out, err := s.run(ctx, "systemctl", "--user", "stop", task.Name+".timer"); err != nil {
		s.logger.Debug("No existing timer to stop.", zap.String("output", string(out)))
	}
	if out, err := s.run(ctx, "systemctl", "--user", "reset-failed", task.Name+".service", task.Name+".timer"); err != nil {
		s.logger.Debug("Nothing to reset.", zap.String("output", string(out)))
	}

	args := runArgs(task)
	s.logger.Debug("Creating transient timer.", zap.Strings("args", args))
	out, err := s.run(ctx, "systemd-run", args...)
	if err != nil {
		return commandError("systemd-run", out, err)
	}
	s.logger.Info("Scheduled permit renewal.", zap.String("task", task.Name), zap.Time("at", task.At))
	return nil
}

// Unregister stops the named timer, which also removes the transient unit.
func (s *SystemdTimer) Unregister(ctx context.Context, name string) error {
	out, err := s.run(ctx, "systemctl", "--user", "stop", name+".timer")
	if err != nil {
		return commandError("systemctl stop", out, err)
	}
	s.logger.Info("Deleted scheduled task.", zap.String("task", name))
	return nil
}

func runArgs(task Task) []string {
	args := []string{
		"--user",
		"--unit=" + task.Name,
		"--on-calendar=" + task.At.Local().Format("2006-01-02 15:04:05"),
		"--timer-property=AccuracySec=1s",
		"--timer-property=Persistent=false",
		"--",
		task.Program,
	}
	return append(args, task.Args...)
}
