package events

import (
	"github.com/asaskevich/EventBus"
	"github.com/dojopool/pocketsync/internal/domain"
	"github.com/dojopool/pocketsync/internal/logger"
	"github.com/rs/zerolog"
)

type Subscriber struct {
	log zerolog.Logger
	bus EventBus.Bus
}

// NewSubscribers registers the core's bus subscribers: state transitions go
// to the log, dropped items get a warning the operator can act on.
func NewSubscribers(log logger.Logger, bus EventBus.Bus) Subscriber {
	s := Subscriber{
		log: log.With().Str("module", "events").Logger(),
		bus: bus,
	}

	s.register()

	return s
}

func (s Subscriber) register() {
	if err := s.bus.Subscribe(TopicSyncStateUpdated, s.syncStateUpdated); err != nil {
		s.log.Error().Err(err).Msgf("could not subscribe to %s", TopicSyncStateUpdated)
	}
	if err := s.bus.Subscribe(TopicSyncItemDropped, s.syncItemDropped); err != nil {
		s.log.Error().Err(err).Msgf("could not subscribe to %s", TopicSyncItemDropped)
	}
}

func (s Subscriber) syncStateUpdated(state domain.SyncState) {
	s.log.Debug().
		Bool("online", state.IsOnline).
		Bool("flush_in_progress", state.FlushInProgress).
		Int("pending", state.PendingCount).
		Str("last_error", state.LastError).
		Msg("sync state updated")
}

func (s Subscriber) syncItemDropped(item domain.SyncQueueItem) {
	s.log.Warn().
		Str("id", item.ID).
		Str("entity", string(item.Entity)).
		Str("operation", string(item.Operation)).
		Int("retry_count", item.RetryCount).
		Msg("queue item dropped after exhausting retries")
}
