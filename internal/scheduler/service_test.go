package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dojopool/pocketsync/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct{ runs atomic.Int64 }

func (j *countingJob) Run() { j.runs.Add(1) }

func TestAddJob_DuplicateIdentifierRejected(t *testing.T) {
	s := NewService(logger.Mock())

	_, err := s.AddJob(&countingJob{}, time.Minute, "periodic-flush")
	require.NoError(t, err)

	_, err = s.AddJob(&countingJob{}, time.Minute, "periodic-flush")
	assert.Error(t, err)
}

func TestRemoveJobByIdentifier(t *testing.T) {
	s := NewService(logger.Mock())

	_, err := s.AddJob(&countingJob{}, time.Minute, "cache-sweep")
	require.NoError(t, err)

	require.NoError(t, s.RemoveJobByIdentifier("cache-sweep"))

	next, err := s.GetNextRun("cache-sweep")
	require.NoError(t, err)
	assert.True(t, next.IsZero())

	// removing twice is a no-op
	require.NoError(t, s.RemoveJobByIdentifier("cache-sweep"))
}

func TestGetNextRun_ScheduledJob(t *testing.T) {
	s := NewService(logger.Mock())
	s.Start()
	defer s.Stop()

	_, err := s.AddJob(&countingJob{}, time.Hour, "periodic-flush")
	require.NoError(t, err)

	next, err := s.GetNextRun("periodic-flush")
	require.NoError(t, err)
	assert.True(t, next.After(time.Now()))
}

func TestStop_NoFurtherRuns(t *testing.T) {
	s := NewService(logger.Mock())
	job := &countingJob{}

	// @every rounds sub-second intervals up to a second, so the cadence
	// has to be second-scale for the job to fire at all
	_, err := s.AddJob(job, time.Second, "heartbeat")
	require.NoError(t, err)

	s.Start()
	time.Sleep(2500 * time.Millisecond)
	s.Stop()

	// let an in-flight run finish before sampling
	time.Sleep(50 * time.Millisecond)
	ran := job.runs.Load()
	assert.GreaterOrEqual(t, ran, int64(1))

	// the next tick would land within a second of Stop; give it room to
	// prove it never fires
	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, ran, job.runs.Load(), "no runs after Stop")
}

type fakeQueue struct {
	pending int32
	flushes atomic.Int64
}

func (f *fakeQueue) Flush(context.Context) { f.flushes.Add(1) }
func (f *fakeQueue) PendingCount() int     { return int(atomic.LoadInt32(&f.pending)) }

type fakeConnectivity struct{ online bool }

func (f *fakeConnectivity) IsOnline() bool { return f.online }

func TestFlushJob_SkipsWhenOfflineOrEmpty(t *testing.T) {
	q := &fakeQueue{pending: 3}
	j := &FlushJob{Name: "periodic-flush", Log: logger.Mock().With().Logger(), Queue: q, Monitor: &fakeConnectivity{online: false}}

	j.Run()
	assert.Zero(t, j.Queue.(*fakeQueue).flushes.Load(), "offline: no flush")

	j.Monitor = &fakeConnectivity{online: true}
	atomic.StoreInt32(&q.pending, 0)
	j.Run()
	assert.Zero(t, q.flushes.Load(), "empty queue: no flush")

	atomic.StoreInt32(&q.pending, 2)
	j.Run()
	assert.Equal(t, int64(1), q.flushes.Load())
}

type fakeSweeper struct{ swept atomic.Int64 }

func (f *fakeSweeper) Sweep() int {
	f.swept.Add(1)
	return 2
}

func TestCacheSweepJob_Runs(t *testing.T) {
	sw := &fakeSweeper{}
	j := &CacheSweepJob{Name: "cache-sweep", Log: logger.Mock().With().Logger(), Cache: sw}

	j.Run()
	assert.Equal(t, int64(1), sw.swept.Load())
}
