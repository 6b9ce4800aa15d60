package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/asaskevich/EventBus"
	"github.com/dojopool/pocketsync/internal/cache"
	"github.com/dojopool/pocketsync/internal/config"
	"github.com/dojopool/pocketsync/internal/database"
	"github.com/dojopool/pocketsync/internal/domain"
	"github.com/dojopool/pocketsync/internal/events"
	"github.com/dojopool/pocketsync/internal/http"
	"github.com/dojopool/pocketsync/internal/logger"
	"github.com/dojopool/pocketsync/internal/netmon"
	"github.com/dojopool/pocketsync/internal/remote"
	"github.com/dojopool/pocketsync/internal/scheduler"
	"github.com/dojopool/pocketsync/internal/server"
	"github.com/dojopool/pocketsync/internal/snapshot"
	"github.com/dojopool/pocketsync/internal/sync"
	"github.com/r3labs/sse/v2"
	"github.com/spf13/pflag"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	var configPath string
	pflag.StringVar(&configPath, "config", "", "path to configuration file")
	pflag.Parse()

	// read config
	cfg := config.New(configPath, version)

	// init new logger
	log := logger.New(cfg.Config)

	// init dynamic config
	cfg.DynamicReload(log)

	// setup server-sent-events
	serverEvents := sse.New()
	serverEvents.CreateStreamWithOpts("logs", sse.StreamOpts{MaxEntries: 1000, AutoReplay: true})
	serverEvents.CreateStreamWithOpts("sync", sse.StreamOpts{MaxEntries: 1, AutoReplay: true})

	// register SSE writer
	log.RegisterSSEWriter(serverEvents)

	// setup internal eventbus
	bus := EventBus.New()

	// open database connection
	db, err := database.NewDB(cfg.Config, log)
	if err != nil {
		log.Fatal().Err(err).Msg("could not create new db")
	}

	if err := db.Open(); err != nil {
		log.Fatal().Err(err).Msg("could not open db connection")
	}

	log.Info().Msgf("Starting PocketSync")
	log.Info().Msgf("Version: %s", version)
	log.Info().Msgf("Commit: %s", commit)
	log.Info().Msgf("Build date: %s", date)
	log.Info().Msgf("Log-level: %s", cfg.Config.Logging.Level)

	// setup repos
	kvRepo := database.NewKVRepo(log, db)

	// setup services
	var (
		cacheService    = cache.NewService(log, cfg.Config.Cache)
		monitor         = netmon.NewService(log, cfg.Config.Network)
		remoteClient    = remote.NewClient(log, cfg.Config.Remote)
		broadcaster     = events.NewBroadcaster(log, bus)
		syncService     = sync.NewService(log, cfg.Config.Sync, kvRepo, remoteClient, monitor, broadcaster, bus)
		snapshotService = snapshot.NewService(log, kvRepo)
		schedulerSvc    = scheduler.NewService(log)
	)

	// register event subscribers
	events.NewSubscribers(log, bus)

	// mirror sync state onto the SSE stream for connected UIs
	broadcaster.Subscribe(func(state domain.SyncState) {
		data, err := json.Marshal(state)
		if err != nil {
			return
		}
		serverEvents.Publish("sync", &sse.Event{Data: data})
	})

	errorChannel := make(chan error)

	go func() {
		httpServer := http.NewServer(
			log,
			cfg,
			serverEvents,
			db,
			version,
			commit,
			date,
			syncService,
			snapshotService,
		)
		errorChannel <- httpServer.Open()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)

	srv := server.NewServer(log, cfg.Config, schedulerSvc, monitor, syncService, cacheService)
	if err := srv.Start(); err != nil {
		log.Fatal().Stack().Err(err).Msg("could not start server")
		return
	}

	for {
		select {
		case err := <-errorChannel:
			log.Error().Stack().Err(err).Msg("http server failed")
			srv.Shutdown()
			if err := db.Close(); err != nil {
				log.Error().Stack().Err(err).Msg("could not close db connection")
			}
			os.Exit(1)
		case sig := <-sigCh:
			log.Info().Msgf("Shutting down server on signal: %s", sig)
			srv.Shutdown()
			if err := db.Close(); err != nil {
				log.Error().Stack().Err(err).Msg("could not close db connection")
			}
			os.Exit(0)
		}
	}
}
