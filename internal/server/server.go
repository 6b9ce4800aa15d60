package server

import (
	"context"
	"fmt"
	"time"

	"github.com/dojopool/pocketsync/internal/cache"
	"github.com/dojopool/pocketsync/internal/domain"
	"github.com/dojopool/pocketsync/internal/logger"
	"github.com/dojopool/pocketsync/internal/netmon"
	"github.com/dojopool/pocketsync/internal/scheduler"
	"github.com/dojopool/pocketsync/internal/sync"
	"github.com/rs/zerolog"
)

const (
	jobPeriodicFlush = "periodic-flush"
	jobCacheSweep    = "cache-sweep"
)

// Server ties the long-running services together: it starts the
// connectivity monitor, restores the sync queue and schedules the
// periodic flush and cache sweep jobs.
type Server struct {
	log    zerolog.Logger
	config *domain.Config

	scheduler   scheduler.Service
	monitor     netmon.Service
	syncService sync.Service
	cache       cache.Service
}

func NewServer(
	log logger.Logger,
	config *domain.Config,
	schedulerSvc scheduler.Service,
	monitor netmon.Service,
	syncSvc sync.Service,
	cacheSvc cache.Service,
) *Server {
	return &Server{
		log:         log.With().Str("module", "server").Logger(),
		config:      config,
		scheduler:   schedulerSvc,
		monitor:     monitor,
		syncService: syncSvc,
		cache:       cacheSvc,
	}
}

func (s *Server) Start() error {
	s.monitor.Start()

	if err := s.syncService.Start(context.Background()); err != nil {
		return fmt.Errorf("could not start sync service: %w", err)
	}

	if err := s.scheduleJobs(); err != nil {
		return err
	}

	// start cron scheduler
	s.scheduler.Start()

	return nil
}

func (s *Server) Shutdown() {
	s.log.Info().Msg("Shutting down server")

	// stop cron scheduler first so no new flushes are kicked off
	s.scheduler.Stop()
	s.syncService.Stop()
	s.monitor.Stop()
}

func (s *Server) scheduleJobs() error {
	flushInterval := time.Duration(s.config.Sync.FlushIntervalSeconds) * time.Second
	if flushInterval <= 0 {
		flushInterval = 30 * time.Second
	}

	flushJob := &scheduler.FlushJob{
		Name:    jobPeriodicFlush,
		Log:     s.log.With().Str("job", jobPeriodicFlush).Logger(),
		Queue:   s.syncService,
		Monitor: s.monitor,
	}

	if _, err := s.scheduler.AddJob(flushJob, flushInterval, jobPeriodicFlush); err != nil {
		return fmt.Errorf("could not schedule periodic flush: %w", err)
	}

	sweepInterval := time.Duration(s.config.Cache.SweepIntervalSeconds) * time.Second
	if sweepInterval <= 0 {
		sweepInterval = 5 * time.Minute
	}

	sweepJob := &scheduler.CacheSweepJob{
		Name:  jobCacheSweep,
		Log:   s.log.With().Str("job", jobCacheSweep).Logger(),
		Cache: s.cache,
	}

	if _, err := s.scheduler.AddJob(sweepJob, sweepInterval, jobCacheSweep); err != nil {
		return fmt.Errorf("could not schedule cache sweep: %w", err)
	}

	return nil
}
