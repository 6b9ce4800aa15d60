package scheduler

import (
	"context"

	"github.com/rs/zerolog"
)

type queueFlusher interface {
	Flush(ctx context.Context)
	PendingCount() int
}

type connectivity interface {
	IsOnline() bool
}

type sweeper interface {
	Sweep() int
}

// FlushJob is the safety net behind event-driven flushes: on its cadence it
// flushes whatever is still queued, provided the device is online.
type FlushJob struct {
	Name    string
	Log     zerolog.Logger
	Queue   queueFlusher
	Monitor connectivity
}

func (j *FlushJob) Run() {
	if !j.Monitor.IsOnline() {
		return
	}
	if j.Queue.PendingCount() == 0 {
		return
	}

	j.Log.Debug().Str("job", j.Name).Msg("periodic flush triggered")
	j.Queue.Flush(context.Background())
}

// CacheSweepJob evicts expired cache entries that are never read again.
type CacheSweepJob struct {
	Name  string
	Log   zerolog.Logger
	Cache sweeper
}

func (j *CacheSweepJob) Run() {
	if removed := j.Cache.Sweep(); removed > 0 {
		j.Log.Debug().Str("job", j.Name).Int("removed", removed).Msg("cache sweep completed")
	}
}
