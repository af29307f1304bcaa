// Package session keeps live Bayesian and sequential tests between requests.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ZanzyTHEbar/bayesian-ab/internal/monitoring"
)

// Entry holds a value plus the lock that serialises access to it. Tests are
// not safe for concurrent mutation, so handlers hold Lock while using Value.
type Entry[T any] struct {
	sync.Mutex
	ID        string
	CreatedAt time.Time
	Value     T

	lastUsed time.Time
}

// Store is a TTL map of entries keyed by generated UUIDs. Entries idle for
// longer than the TTL are evicted by a background sweep.
type Store[T any] struct {
	kind    string
	ttl     time.Duration
	metrics *monitoring.Metrics
	logger  *monitoring.Logger

	mu      sync.RWMutex
	entries map[string]*Entry[T]

	done chan struct{}
	once sync.Once
}

// NewStore starts a store; metrics and logger may be nil.
func NewStore[T any](kind string, ttl time.Duration, metrics *monitoring.Metrics, logger *monitoring.Logger) *Store[T] {
	s := &Store[T]{
		kind:    kind,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger,
		entries: make(map[string]*Entry[T]),
		done:    make(chan struct{}),
	}
	sweep := ttl / 2
	if sweep <= 0 || sweep > time.Minute {
		sweep = time.Minute
	}
	go s.cleanup(sweep)
	return s
}

// Create stores value under a new ID
func (s *Store[T]) Create(value T) *Entry[T] {
	now := time.Now()
	e := &Entry[T]{
		ID:        uuid.NewString(),
		CreatedAt: now,
		Value:     value,
		lastUsed:  now,
	}

	s.mu.Lock()
	s.entries[e.ID] = e
	n := len(s.entries)
	s.mu.Unlock()

	s.report(n)
	s.log("created", e.ID)
	return e
}

// Get returns the entry and refreshes its idle timer.
func (s *Store[T]) Get(id string) (*Entry[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	if s.expired(e, time.Now()) {
		delete(s.entries, id)
		return nil, false
	}
	e.lastUsed = time.Now()
	return e, true
}

// Delete removes an entry and reports whether it existed
func (s *Store[T]) Delete(id string) bool {
	s.mu.Lock()
	_, ok := s.entries[id]
	delete(s.entries, id)
	n := len(s.entries)
	s.mu.Unlock()

	if ok {
		s.report(n)
		s.log("deleted", id)
	}
	return ok
}

// Len returns the number of live entries
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Stats returns store statistics
func (s *Store[T]) Stats() map[string]interface{} {
	return map[string]interface{}{
		"kind":        s.kind,
		"active":      s.Len(),
		"ttl_seconds": s.ttl.Seconds(),
	}
}

// Close stops the sweep
func (s *Store[T]) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *Store[T]) expired(e *Entry[T], now time.Time) bool {
	return s.ttl > 0 && now.Sub(e.lastUsed) > s.ttl
}

func (s *Store[T]) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.evictExpired(time.Now())
		}
	}
}

func (s *Store[T]) evictExpired(now time.Time) int {
	var evicted []string
	s.mu.Lock()
	for id, e := range s.entries {
		if s.expired(e, now) {
			delete(s.entries, id)
			evicted = append(evicted, id)
		}
	}
	n := len(s.entries)
	s.mu.Unlock()

	if len(evicted) > 0 {
		s.report(n)
		for _, id := range evicted {
			s.log("expired", id)
		}
	}
	return len(evicted)
}

func (s *Store[T]) report(n int) {
	if s.metrics != nil {
		s.metrics.SetActiveSessions(s.kind, n)
	}
}

func (s *Store[T]) log(event, id string) {
	if s.logger != nil {
		s.logger.SessionLogger(event, s.kind, id)
	}
}
