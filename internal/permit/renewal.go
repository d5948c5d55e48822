package permit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/autopermit/internal/schedule"
)

// Renewer arms the next run of this program at a permit's expiration.
type Renewer struct {
	scheduler schedule.Scheduler
	program   string
	args      []string
	now       func() time.Time
	logger    *zap.Logger
}

// NewRenewer schedules program with args through scheduler. args should be
// the reconstructed flags of the current invocation.
func NewRenewer(scheduler schedule.Scheduler, program string, args []string, logger *zap.Logger) *Renewer {
	return &Renewer{
		scheduler: scheduler,
		program:   program,
		args:      args,
		now:       time.Now,
		logger:    logger.Named("renewal"),
	}
}

// Renew registers the renewal task for expiration. An expiration that is not
// strictly in the future returns ErrExpiredPermit and registers nothing.
func (r *Renewer) Renew(ctx context.Context, expiration time.Time) (schedule.Task, error) {
	if now := r.now(); !expiration.After(now) {
		r.logger.Error("The parking permit has already expired. The program will NOT automatically run again.",
			zap.Time("expiration", expiration), zap.Time("now", now))
		return schedule.Task{}, fmt.Errorf("%w (expired %s)", ErrExpiredPermit, expiration.Format(ExpirationLayout))
	}

	task := schedule.Task{
		Name:    schedule.TaskName,
		At:      expiration,
		Program: r.program,
		Args:    append([]string(nil), r.args...),
	}
	if err := r.scheduler.Register(ctx, task); err != nil {
		return schedule.Task{}, fmt.Errorf("registering renewal task: %w", err)
	}
	r.logger.Info("Next permit renewal armed.", zap.String("task", task.Name), zap.Time("at", task.At), zap.Strings("args", task.Args))
	return task, nil
}
