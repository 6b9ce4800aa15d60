package sync

import (
	"context"
	"encoding/json"
	"fmt"
	gosync "sync"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/dojopool/pocketsync/internal/domain"
	"github.com/dojopool/pocketsync/internal/events"
	"github.com/dojopool/pocketsync/internal/logger"
	"github.com/dojopool/pocketsync/internal/netmon"
	"github.com/dojopool/pocketsync/pkg/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service holds pending mutations and drives flush cycles against the
// remote API. The queue is FIFO; a flush snapshots the queue at cycle
// start, so items enqueued mid-flush wait for the next cycle. At most one
// flush runs at a time, guarded by the FlushInProgress flag under the
// service mutex.
type Service interface {
	// Start loads the persisted queue and subscribes to connectivity
	// transitions. Must be called before the first Enqueue.
	Start(ctx context.Context) error
	Stop()
	// Enqueue appends a mutation to the queue and persists it. When the
	// device is online a flush is kicked off asynchronously; the caller is
	// never blocked on network I/O.
	Enqueue(ctx context.Context, m domain.Mutation) (domain.SyncQueueItem, error)
	// Flush attempts to send every currently queued item in FIFO order.
	// No-op while another flush is running or the queue is empty.
	Flush(ctx context.Context)
	PendingCount() int
	// Queue returns a copy of the pending items, oldest first.
	Queue() []domain.SyncQueueItem
	State() domain.SyncState
}

type service struct {
	log         zerolog.Logger
	store       domain.KVStore
	remote      domain.RemoteClient
	monitor     netmon.Service
	broadcaster events.Broadcaster
	bus         EventBus.Bus
	maxAttempts int

	mu    gosync.Mutex
	queue []domain.SyncQueueItem
	state domain.SyncState

	unsubscribe func()
	now         func() time.Time
}

func NewService(
	log logger.Logger,
	cfg domain.SyncConfig,
	store domain.KVStore,
	remote domain.RemoteClient,
	monitor netmon.Service,
	broadcaster events.Broadcaster,
	bus EventBus.Bus,
) Service {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	return &service{
		log:         log.With().Str("module", "sync").Logger(),
		store:       store,
		remote:      remote,
		monitor:     monitor,
		broadcaster: broadcaster,
		bus:         bus,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

func (s *service) Start(ctx context.Context) error {
	s.mu.Lock()

	if err := s.loadLocked(ctx); err != nil {
		s.mu.Unlock()
		return err
	}

	s.state.IsOnline = s.monitor.IsOnline()
	s.state.FlushInProgress = false
	s.state.PendingCount = len(s.queue)
	st := s.state
	s.mu.Unlock()

	s.unsubscribe = s.monitor.Subscribe(s.onConnectivityChange)

	s.broadcaster.Publish(st)

	s.log.Info().Int("pending", st.PendingCount).Bool("online", st.IsOnline).Msg("sync service started")

	if st.IsOnline && st.PendingCount > 0 {
		go s.Flush(context.Background())
	}

	return nil
}

func (s *service) Stop() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// loadLocked restores the queue and last persisted state.
func (s *service) loadLocked(ctx context.Context) error {
	raw, err := s.store.Get(ctx, domain.KVKeySyncQueue)
	if err != nil {
		return errors.Wrap(err, "could not load persisted sync queue")
	}
	if raw != nil {
		if err := json.Unmarshal(raw, &s.queue); err != nil {
			return errors.Wrap(err, "could not decode persisted sync queue")
		}
	}

	raw, err = s.store.Get(ctx, domain.KVKeySyncStatus)
	if err != nil {
		return errors.Wrap(err, "could not load persisted sync status")
	}
	if raw != nil {
		if err := json.Unmarshal(raw, &s.state); err != nil {
			return errors.Wrap(err, "could not decode persisted sync status")
		}
	}

	return nil
}

func (s *service) onConnectivityChange(online bool) {
	s.mu.Lock()
	s.state.IsOnline = online
	st := s.state
	pending := len(s.queue)
	s.mu.Unlock()

	s.broadcaster.Publish(st)

	if online && pending > 0 {
		go s.Flush(context.Background())
	}
}

func (s *service) Enqueue(ctx context.Context, m domain.Mutation) (domain.SyncQueueItem, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return domain.SyncQueueItem{}, errors.Wrap(err, "could not encode mutation payload")
	}

	now := s.now()
	item := domain.SyncQueueItem{
		ID:         fmt.Sprintf("%s-%s-%d-%s", m.Entity(), m.Operation(), now.UnixMilli(), uuid.NewString()[:8]),
		Operation:  m.Operation(),
		Entity:     m.Entity(),
		Payload:    payload,
		EnqueuedAt: now,
	}

	s.mu.Lock()
	s.queue = append(s.queue, item)
	s.state.PendingCount = len(s.queue)
	persistErr := s.persistLocked(ctx)
	st := s.state
	online := s.state.IsOnline
	s.mu.Unlock()

	s.broadcaster.Publish(st)

	s.log.Debug().
		Str("id", item.ID).
		Str("entity", string(item.Entity)).
		Str("operation", string(item.Operation)).
		Msg("mutation enqueued")

	if online {
		go s.Flush(context.Background())
	}

	// the item stays queued in memory even when persisting failed, so the
	// mutation is not lost while the process lives
	return item, persistErr
}

func (s *service) Flush(ctx context.Context) {
	s.mu.Lock()
	if s.state.FlushInProgress || len(s.queue) == 0 {
		s.mu.Unlock()
		return
	}
	s.state.FlushInProgress = true

	// items enqueued from here on belong to the next cycle
	snapshot := make([]domain.SyncQueueItem, len(s.queue))
	copy(snapshot, s.queue)
	st := s.state
	s.mu.Unlock()

	s.broadcaster.Publish(st)

	s.log.Debug().Int("items", len(snapshot)).Msg("flush cycle started")

	var cycleErr string
	for _, item := range snapshot {
		err := s.dispatch(ctx, item)

		s.mu.Lock()
		idx := s.indexLocked(item.ID)
		if idx < 0 {
			s.mu.Unlock()
			continue
		}

		if err == nil {
			s.queue = append(s.queue[:idx], s.queue[idx+1:]...)
			s.mu.Unlock()
			continue
		}

		s.queue[idx].RetryCount++
		retries := s.queue[idx].RetryCount
		if retries >= s.maxAttempts {
			dropped := s.queue[idx]
			s.queue = append(s.queue[:idx], s.queue[idx+1:]...)
			cycleErr = fmt.Sprintf("Failed to sync %s after %d attempts", item.Entity, s.maxAttempts)
			s.mu.Unlock()

			s.log.Error().Err(err).
				Str("id", item.ID).
				Str("entity", string(item.Entity)).
				Msg("dropping item after exhausting retries")
			s.bus.Publish(events.TopicSyncItemDropped, dropped)
			continue
		}
		s.mu.Unlock()

		s.log.Warn().Err(err).
			Str("id", item.ID).
			Int("retry_count", retries).
			Msg("send failed, item kept for next cycle")
	}

	s.mu.Lock()
	s.state.LastSuccessfulSync = s.now()
	s.state.LastError = cycleErr
	// settle the state before persisting so the stored status matches the
	// stored queue
	s.state.FlushInProgress = false
	s.state.PendingCount = len(s.queue)
	if err := s.persistLocked(ctx); err != nil {
		s.log.Error().Err(err).Msg("could not persist queue after flush")
	}
	st = s.state
	s.mu.Unlock()

	s.broadcaster.Publish(st)

	s.log.Debug().Int("pending", st.PendingCount).Msg("flush cycle finished")
}

// dispatch sends one item to the remote API. Entity/operation pairs without
// a remote endpoint are acknowledged without a send.
func (s *service) dispatch(ctx context.Context, item domain.SyncQueueItem) error {
	switch item.Entity {
	case domain.SyncEntityGame:
		switch item.Operation {
		case domain.SyncOpCreate:
			var m domain.CreateGame
			if err := json.Unmarshal(item.Payload, &m); err != nil {
				return errors.Wrap(err, "could not decode CREATE GAME payload")
			}
			return s.remote.CreateGame(ctx, m.Game)
		case domain.SyncOpUpdate:
			var m domain.UpdateGameStatus
			if err := json.Unmarshal(item.Payload, &m); err != nil {
				return errors.Wrap(err, "could not decode UPDATE GAME payload")
			}
			return s.remote.UpdateGameStatus(ctx, m.GameID, m.Status)
		default:
			// DELETE has no remote endpoint yet
			return nil
		}
	case domain.SyncEntityProfile:
		var m domain.UpdateProfile
		if err := json.Unmarshal(item.Payload, &m); err != nil {
			return errors.Wrap(err, "could not decode UPDATE PROFILE payload")
		}
		return s.remote.UpdateProfile(ctx, m.Profile)
	case domain.SyncEntityVenue, domain.SyncEntityUser:
		// not wired to the remote API yet
		s.log.Debug().Str("entity", string(item.Entity)).Msg("entity has no remote endpoint, acknowledging")
		return nil
	default:
		return errors.New("unknown sync entity: %s", item.Entity)
	}
}

func (s *service) indexLocked(id string) int {
	for i, item := range s.queue {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// persistLocked writes the queue and state as whole documents. Caller holds
// the mutex.
func (s *service) persistLocked(ctx context.Context) error {
	rawQueue, err := json.Marshal(s.queue)
	if err != nil {
		return errors.Wrap(err, "could not encode sync queue")
	}
	if err := s.store.Set(ctx, domain.KVKeySyncQueue, rawQueue); err != nil {
		return errors.Wrap(err, "could not persist sync queue")
	}

	rawState, err := json.Marshal(s.state)
	if err != nil {
		return errors.Wrap(err, "could not encode sync status")
	}
	if err := s.store.Set(ctx, domain.KVKeySyncStatus, rawState); err != nil {
		return errors.Wrap(err, "could not persist sync status")
	}

	return nil
}

func (s *service) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *service) Queue() []domain.SyncQueueItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.SyncQueueItem, len(s.queue))
	copy(out, s.queue)
	return out
}

func (s *service) State() domain.SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
