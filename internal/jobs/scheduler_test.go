package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingJob struct {
	runs atomic.Int32
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run(context.Context) {
	j.runs.Add(1)
}

func TestSchedulerFiresOnInterval(t *testing.T) {
	job := &countingJob{}
	s := NewScheduler(job, 10*time.Millisecond)

	s.Start(context.Background())

	assert.Eventually(t, func() bool {
		return job.runs.Load() >= 3
	}, time.Second, 5*time.Millisecond)

	s.Stop()
}

func TestSchedulerStopHaltsRuns(t *testing.T) {
	job := &countingJob{}
	s := NewScheduler(job, 10*time.Millisecond)

	s.Start(context.Background())
	time.Sleep(35 * time.Millisecond)
	s.Stop()

	after := job.runs.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, job.runs.Load())
}

func TestSchedulerStopsOnContextCancel(t *testing.T) {
	job := &countingJob{}
	s := NewScheduler(job, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()

	time.Sleep(30 * time.Millisecond)
	after := job.runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, job.runs.Load())
}
