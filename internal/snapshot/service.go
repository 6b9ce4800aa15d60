package snapshot

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dojopool/pocketsync/internal/domain"
	"github.com/dojopool/pocketsync/internal/logger"
	"github.com/dojopool/pocketsync/pkg/errors"
	"github.com/rs/zerolog"
)

// Service maintains the last-known-good read model the UI falls back to
// while offline. Saves are load-merge-replace with no concurrency check:
// the last save wins, even when two partial updates race.
type Service interface {
	// Save shallow-merges the patch over the current snapshot, stamps
	// LastUpdated and persists the result.
	Save(ctx context.Context, patch domain.SnapshotPatch) (domain.OfflineSnapshot, error)
	// Load returns the persisted snapshot, or the empty default when
	// nothing has been saved yet.
	Load(ctx context.Context) (domain.OfflineSnapshot, error)
}

type service struct {
	log   zerolog.Logger
	store domain.KVStore
	now   func() time.Time
}

func NewService(log logger.Logger, store domain.KVStore) Service {
	return &service{
		log:   log.With().Str("module", "snapshot").Logger(),
		store: store,
		now:   time.Now,
	}
}

func (s *service) Load(ctx context.Context) (domain.OfflineSnapshot, error) {
	raw, err := s.store.Get(ctx, domain.KVKeyOfflineData)
	if err != nil {
		return domain.OfflineSnapshot{}, errors.Wrap(err, "could not load offline snapshot")
	}
	if raw == nil {
		return domain.EmptySnapshot(), nil
	}

	var snap domain.OfflineSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return domain.OfflineSnapshot{}, errors.Wrap(err, "could not decode offline snapshot")
	}
	if snap.Games == nil {
		snap.Games = []domain.Game{}
	}
	if snap.Venues == nil {
		snap.Venues = []domain.Venue{}
	}

	return snap, nil
}

func (s *service) Save(ctx context.Context, patch domain.SnapshotPatch) (domain.OfflineSnapshot, error) {
	snap, err := s.Load(ctx)
	if err != nil {
		return domain.OfflineSnapshot{}, err
	}

	if patch.Games != nil {
		snap.Games = patch.Games
	}
	if patch.Venues != nil {
		snap.Venues = patch.Venues
	}
	if patch.User != nil {
		snap.User = patch.User
	}
	snap.LastUpdated = s.now()

	raw, err := json.Marshal(snap)
	if err != nil {
		return domain.OfflineSnapshot{}, errors.Wrap(err, "could not encode offline snapshot")
	}
	if err := s.store.Set(ctx, domain.KVKeyOfflineData, raw); err != nil {
		return domain.OfflineSnapshot{}, errors.Wrap(err, "could not persist offline snapshot")
	}

	s.log.Debug().
		Int("games", len(snap.Games)).
		Int("venues", len(snap.Venues)).
		Bool("has_user", snap.User != nil).
		Msg("offline snapshot saved")

	return snap, nil
}
