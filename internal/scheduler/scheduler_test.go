package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/scanner/pkg/logger"
)

type fakeJob struct {
	name     string
	schedule string
	errs     []error
	calls    int
}

func (j *fakeJob) Name() string     { return j.name }
func (j *fakeJob) Schedule() string { return j.schedule }

func (j *fakeJob) Run(context.Context) error {
	j.calls++
	if len(j.errs) == 0 {
		return nil
	}
	err := j.errs[0]
	j.errs = j.errs[1:]
	return err
}

func newTestScheduler() *Scheduler {
	return New(logger.NewNop()).WithRetry(2, time.Millisecond)
}

func TestScheduler_AddJob(t *testing.T) {
	s := newTestScheduler()

	require.NoError(t, s.AddJob(&fakeJob{name: "b", schedule: "0 30 22 * * 1-5"}))
	require.NoError(t, s.AddJob(&fakeJob{name: "a", schedule: "0 0 8 * * 6"}))
	assert.Error(t, s.AddJob(&fakeJob{name: "a", schedule: "0 0 8 * * 6"}), "duplicate")
	assert.Error(t, s.AddJob(&fakeJob{name: "c", schedule: "not a cron"}))

	assert.Equal(t, []string{"a", "b"}, s.GetAllJobs())
}

func TestScheduler_RunJobRetries(t *testing.T) {
	s := newTestScheduler()
	job := &fakeJob{name: "flaky", schedule: "@daily", errs: []error{errors.New("boom")}}
	require.NoError(t, s.AddJob(job))

	res, err := s.RunJob("flaky")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 2, job.calls)

	_, err = s.RunJob("missing")
	assert.Error(t, err)
}

func TestScheduler_SkipIsNotRetried(t *testing.T) {
	s := newTestScheduler()
	job := &fakeJob{name: "busy", schedule: "@daily", errs: []error{fmt.Errorf("%w: already running", ErrSkip)}}
	require.NoError(t, s.AddJob(job))

	res, err := s.RunJob("busy")
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.False(t, res.Success)
	assert.Equal(t, 1, job.calls)

	stats := s.GetJobStats()["busy"]
	assert.Equal(t, 1, stats.SkippedCount)
	assert.Zero(t, stats.FailureCount)
	assert.Nil(t, stats.LastFailure)
}

func TestScheduler_FailureHistory(t *testing.T) {
	s := newTestScheduler()
	boom := errors.New("boom")
	job := &fakeJob{name: "broken", schedule: "@daily", errs: []error{boom, boom, boom}}
	require.NoError(t, s.AddJob(job))

	res, err := s.RunJob("broken")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "boom", res.Error)
	assert.Equal(t, 3, job.calls)

	history, err := s.GetJobHistory("broken")
	require.NoError(t, err)
	assert.Len(t, history.GetFailedResults(), 1)
	assert.Equal(t, 0.0, history.GetSuccessRate())
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < 105; i++ {
		h.AddResult(JobResult{Success: i%2 == 0})
	}
	assert.Len(t, h.Results, 100)
	assert.Len(t, h.GetLatestResults(3), 3)
	assert.Equal(t, 50, h.CountSuccess())
	assert.InDelta(t, 0.5, h.GetSuccessRate(), 1e-12)

	h.AddResult(JobResult{Skipped: true})
	assert.Equal(t, 1, h.CountSkipped())
}
