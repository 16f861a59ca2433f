// Package jobs runs the periodic maintenance tasks of the marketplace.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one scheduled task. Run receives a context bounded by Timeout.
type Job interface {
	Name() string
	Spec() string
	Timeout() time.Duration
	Run(ctx context.Context) error
}

// Scheduler owns the cron instance all jobs share. Overlapping runs of the
// same job are skipped.
type Scheduler struct {
	cron   *cron.Cron
	jobs   []Job
	logger *zap.Logger
}

func NewScheduler(logger *zap.Logger, jobs ...Job) *Scheduler {
	cl := NewCronLogger(logger.Named("cron"))
	return &Scheduler{
		cron:   cron.New(cron.WithLogger(cl), cron.WithChain(cron.SkipIfStillRunning(cl), cron.Recover(cl))),
		jobs:   jobs,
		logger: logger.Named("Scheduler"),
	}
}

// Start schedules every job with a non-empty spec and starts the scheduler.
func (s *Scheduler) Start() error {
	for _, job := range s.jobs {
		if job.Spec() == "" {
			s.logger.Warn("Job has no schedule and will not run", zap.String("job", job.Name()))
			continue
		}
		job := job
		id, err := s.cron.AddFunc(job.Spec(), func() { s.runOnce(job) })
		if err != nil {
			return fmt.Errorf("schedule %s (%q): %w", job.Name(), job.Spec(), err)
		}
		s.logger.Info("Job scheduled", zap.String("job", job.Name()), zap.String("spec", job.Spec()), zap.Int("entryID", int(id)))
	}
	s.cron.Start()
	return nil
}

func (s *Scheduler) runOnce(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), job.Timeout())
	defer cancel()
	started := time.Now()
	if err := job.Run(ctx); err != nil {
		s.logger.Error("Job run failed", zap.String("job", job.Name()), zap.Error(err))
		return
	}
	s.logger.Debug("Job run finished", zap.String("job", job.Name()), zap.Duration("took", time.Since(started)))
}

// RunNow executes a job synchronously, outside the schedule.
func (s *Scheduler) RunNow(name string) error {
	for _, job := range s.jobs {
		if job.Name() == name {
			ctx, cancel := context.WithTimeout(context.Background(), job.Timeout())
			defer cancel()
			return job.Run(ctx)
		}
	}
	return fmt.Errorf("unknown job %q", name)
}

// Stop waits up to ten seconds for running jobs to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping job scheduler...")
	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("Job scheduler stopped gracefully.")
	case <-time.After(10 * time.Second):
		s.logger.Warn("Job scheduler stop timed out.")
	}
}

// cronLogger adapts zap.Logger to cron.Logger.
type cronLogger struct {
	zl *zap.Logger
}

func NewCronLogger(zl *zap.Logger) cron.Logger {
	return &cronLogger{zl: zl}
}

func (cl *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	cl.zl.Debug(msg, fields(keysAndValues)...)
}

func (cl *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	cl.zl.Error(msg, append(fields(keysAndValues), zap.Error(err))...)
}

func fields(keysAndValues []interface{}) []zap.Field {
	out := make([]zap.Field, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprintf("%v", keysAndValues[i])
		if i+1 < len(keysAndValues) {
			out = append(out, zap.Any(key, keysAndValues[i+1]))
		} else {
			out = append(out, zap.Any(key, "MISSING_VALUE"))
		}
	}
	return out
}
