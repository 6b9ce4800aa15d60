package cache

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/dojopool/pocketsync/internal/domain"
	"github.com/dojopool/pocketsync/internal/logger"
	"github.com/dojopool/pocketsync/pkg/errors"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Service is a TTL- and size-bounded local cache, independent of the sync
// queue. Expiry is lazy on read; a periodic Sweep bounds memory for keys
// that are never read again. Eviction under size pressure is oldest
// write first, which approximates least-recently-written. Reads do not
// refresh recency.
type Service interface {
	Set(key string, value interface{}, ttl time.Duration) error
	// Get unmarshals the cached value into dest. Returns false when the key
	// is absent or expired; an expired entry is deleted as a side effect.
	Get(key string, dest interface{}) (bool, error)
	Remove(key string)
	Clear()
	// Sweep deletes every expired entry and returns how many were removed.
	Sweep() int
	Len() int
	// Keys returns the live (non-expired) keys in no particular order.
	Keys() []string
	// Do collapses concurrent computations for the same key. Used by
	// WithCache; exposed on the interface because generic helpers cannot be
	// interface methods.
	Do(key string, fn func() (interface{}, error)) (interface{}, error)
}

type entry struct {
	value    json.RawMessage
	storedAt time.Time
	ttl      time.Duration
	size     int64
}

func (e *entry) expired(now time.Time) bool {
	return now.Sub(e.storedAt) > e.ttl
}

type service struct {
	log           zerolog.Logger
	maxTotalBytes int64

	mu      sync.Mutex
	entries map[string]*entry
	group   singleflight.Group

	now func() time.Time
}

func NewService(log logger.Logger, cfg domain.CacheConfig) Service {
	return &service{
		log:           log.With().Str("module", "cache").Logger(),
		maxTotalBytes: cfg.MaxTotalBytes,
		entries:       make(map[string]*entry),
		now:           time.Now,
	}
}

func (s *service) Set(key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "could not serialize cache value for key: %s", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = &entry{
		value:    raw,
		storedAt: s.now(),
		ttl:      ttl,
		size:     int64(len(raw)),
	}

	s.enforceBudgetLocked()

	return nil
}

// enforceBudgetLocked evicts oldest-first until the serialized total fits
// the budget. Sizes are computed once at Set time and summed in a single
// pass, so the remaining budget is never miscounted mid-eviction.
func (s *service) enforceBudgetLocked() {
	if s.maxTotalBytes <= 0 {
		return
	}

	var total int64
	for _, e := range s.entries {
		total += e.size
	}
	if total <= s.maxTotalBytes {
		return
	}

	type keyed struct {
		key string
		e   *entry
	}
	oldest := make([]keyed, 0, len(s.entries))
	for k, e := range s.entries {
		oldest = append(oldest, keyed{k, e})
	}
	sort.Slice(oldest, func(i, j int) bool {
		return oldest[i].e.storedAt.Before(oldest[j].e.storedAt)
	})

	var evicted int
	var freed int64
	for _, kv := range oldest {
		if total <= s.maxTotalBytes {
			break
		}
		delete(s.entries, kv.key)
		total -= kv.e.size
		freed += kv.e.size
		evicted++
	}

	s.log.Debug().
		Int("evicted", evicted).
		Str("freed", humanize.Bytes(uint64(freed))).
		Str("budget", humanize.Bytes(uint64(s.maxTotalBytes))).
		Msg("cache size budget enforced")
}

func (s *service) Get(key string, dest interface{}) (bool, error) {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		return false, nil
	}
	if e.expired(s.now()) {
		delete(s.entries, key)
		s.mu.Unlock()
		return false, nil
	}
	raw := e.value
	s.mu.Unlock()

	if err := json.Unmarshal(raw, dest); err != nil {
		return false, errors.Wrap(err, "could not deserialize cache value for key: %s", key)
	}

	return true, nil
}

func (s *service) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

func (s *service) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*entry)
}

func (s *service) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var removed int
	for k, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, k)
			removed++
		}
	}

	if removed > 0 {
		s.log.Debug().Int("removed", removed).Msg("cache sweep removed expired entries")
	}

	return removed
}

func (s *service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *service) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	keys := make([]string, 0, len(s.entries))
	for k, e := range s.entries {
		if !e.expired(now) {
			keys = append(keys, k)
		}
	}
	return keys
}

func (s *service) Do(key string, fn func() (interface{}, error)) (interface{}, error) {
	v, err, _ := s.group.Do(key, fn)
	return v, err
}
