package events

import (
	"sync"

	"github.com/asaskevich/EventBus"
	"github.com/dojopool/pocketsync/internal/domain"
	"github.com/dojopool/pocketsync/internal/logger"
	"github.com/rs/zerolog"
)

// Bus topics published by the core.
const (
	TopicSyncStateUpdated = "sync:state:updated"
	TopicSyncItemDropped  = "sync:item:dropped"
)

// Broadcaster publishes the combined online/flush/error state to any number
// of UI listeners. Listeners run synchronously in registration order on the
// same state snapshot and must not mutate it. A panicking listener is
// isolated so it cannot break the others. Every publish is mirrored onto
// the event bus under TopicSyncStateUpdated for loosely coupled consumers.
type Broadcaster interface {
	Subscribe(fn func(state domain.SyncState)) func()
	GetState() domain.SyncState
	Publish(state domain.SyncState)
}

type listener struct {
	id int
	fn func(state domain.SyncState)
}

type broadcaster struct {
	log zerolog.Logger
	bus EventBus.Bus

	mu        sync.Mutex
	state     domain.SyncState
	nextID    int
	listeners []listener
}

func NewBroadcaster(log logger.Logger, bus EventBus.Bus) Broadcaster {
	return &broadcaster{
		log: log.With().Str("module", "events").Logger(),
		bus: bus,
	}
}

func (b *broadcaster) Subscribe(fn func(state domain.SyncState)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.listeners = append(b.listeners, listener{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, l := range b.listeners {
			if l.id == id {
				b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
				return
			}
		}
	}
}

func (b *broadcaster) GetState() domain.SyncState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *broadcaster) Publish(state domain.SyncState) {
	b.mu.Lock()
	b.state = state
	listeners := make([]listener, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.Unlock()

	for _, l := range listeners {
		b.notify(l, state)
	}

	b.bus.Publish(TopicSyncStateUpdated, state)
}

func (b *broadcaster) notify(l listener, state domain.SyncState) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Msg("sync state listener panicked")
		}
	}()

	l.fn(state)
}
