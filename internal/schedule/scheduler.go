package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Job is one reconciliation pass
type Job interface {
	Name() string
	Run(ctx context.Context)
}

// Scheduler runs jobs on fixed intervals. A tick is skipped while the
// previous run of the same job is still in progress.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
	stop context.CancelFunc
}

// New creates a stopped scheduler
func New() *Scheduler {
	logger := cron.PrintfLogger(log.StandardLogger())
	ctx, stop := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		ctx:  ctx,
		stop: stop,
	}
}

// Every registers job to run once per interval
func (s *Scheduler) Every(interval time.Duration, job Job) error {
	if interval <= 0 {
		return fmt.Errorf("invalid interval %s for job %s", interval, job.Name())
	}
	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		job.Run(s.ctx)
	})
	if err != nil {
		return fmt.Errorf("add job %s: %w", job.Name(), err)
	}

	log.WithFields(log.Fields{
		"job":      job.Name(),
		"interval": interval.String(),
	}).Info("Scheduled job")
	return nil
}

// Run starts the jobs and blocks until ctx is cancelled. Running jobs see
// their context cancelled and are awaited before Run returns.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	<-ctx.Done()

	s.stop()
	<-s.cron.Stop().Done()
	return ctx.Err()
}
