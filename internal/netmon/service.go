package netmon

import (
	"net/http"
	"sync"
	"time"

	"github.com/dojopool/pocketsync/internal/domain"
	"github.com/dojopool/pocketsync/internal/logger"
	"github.com/rs/zerolog"
)

// Service reports connectivity transitions. Subscribers are notified in
// registration order, only on an actual change. The optional HTTP prober
// flips state from reachability checks; SetOnline lets the hosting app
// feed in platform connectivity events directly.
type Service interface {
	Start()
	Stop()
	IsOnline() bool
	SetOnline(online bool)
	// Subscribe registers a transition listener and returns its
	// unsubscribe func.
	Subscribe(fn func(online bool)) func()
}

type subscriber struct {
	id int
	fn func(online bool)
}

type service struct {
	log    zerolog.Logger
	config domain.NetworkConfig
	client *http.Client

	mu     sync.Mutex
	online bool
	nextID int
	subs   []subscriber

	done chan struct{}
	once sync.Once
}

func NewService(log logger.Logger, cfg domain.NetworkConfig) Service {
	timeout := 5 * time.Second
	return &service{
		log:    log.With().Str("module", "netmon").Logger(),
		config: cfg,
		client: &http.Client{Timeout: timeout},
		done:   make(chan struct{}),
	}
}

func (s *service) Start() {
	if s.config.ProbeURL == "" {
		s.log.Debug().Msg("no probe url configured, relying on reported connectivity")
		return
	}

	interval := time.Duration(s.config.ProbeIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 15 * time.Second
	}

	go s.probeLoop(interval)
}

func (s *service) Stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *service) probeLoop(interval time.Duration) {
	// probe immediately so the first state is not a full interval away
	s.SetOnline(s.probe())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.SetOnline(s.probe())
		}
	}
}

func (s *service) probe() bool {
	req, err := http.NewRequest(http.MethodHead, s.config.ProbeURL, nil)
	if err != nil {
		return false
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode < http.StatusInternalServerError
}

func (s *service) IsOnline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

func (s *service) SetOnline(online bool) {
	s.mu.Lock()
	if s.online == online {
		s.mu.Unlock()
		return
	}
	s.online = online
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	s.log.Info().Bool("online", online).Msg("connectivity changed")

	for _, sub := range subs {
		sub.fn(online)
	}
}

func (s *service) Subscribe(fn func(online bool)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs = append(s.subs, subscriber{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}
