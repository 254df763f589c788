package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Job is one unit of recurring background work. Run must contain its
// own error handling; the scheduler never inspects outcomes.
type Job interface {
	Name() string
	Run(ctx context.Context)
}

// Scheduler fires a job on a fixed wall-clock interval, independent of
// queue depth. Nothing prevents a run from overlapping the next tick if
// it takes longer than the interval; the jobs tolerate that by treating
// missing keys as benign skips.
type Scheduler struct {
	job      Job
	interval time.Duration
	shutdown chan struct{}
	wg       sync.WaitGroup
}

func NewScheduler(job Job, interval time.Duration) *Scheduler {
	return &Scheduler{
		job:      job,
		interval: interval,
		shutdown: make(chan struct{}),
	}
}

// Start launches the ticker loop. It returns immediately; use Stop to
// halt the loop and wait for an in-flight run to return.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		log.Info().
			Str("job", s.job.Name()).
			Dur("interval", s.interval).
			Msg("Scheduler started")

		for {
			select {
			case <-ticker.C:
				start := time.Now()
				s.job.Run(ctx)
				log.Debug().
					Str("job", s.job.Name()).
					Dur("duration", time.Since(start)).
					Msg("Job run complete")
			case <-s.shutdown:
				log.Info().Str("job", s.job.Name()).Msg("Scheduler stopped")
				return
			case <-ctx.Done():
				log.Info().Str("job", s.job.Name()).Msg("Scheduler context canceled")
				return
			}
		}
	}()
}

// Stop halts the ticker loop and waits for it to exit. An in-flight run
// finishes its current key; nothing is rolled back.
func (s *Scheduler) Stop() {
	close(s.shutdown)
	s.wg.Wait()
}
