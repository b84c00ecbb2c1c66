package service

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"applyai/domain"
)

type storedResult struct {
	result  domain.MatchResult
	version string
	touched time.Time
}

// ResultStore holds the latest match result of every session.
// A newer Set replaces the previous result wholesale.
type ResultStore struct {
	mu      sync.RWMutex
	entries map[string]storedResult
	ttl     time.Duration
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// NewResultStore starts a janitor that drops sessions idle for longer than ttl.
// A ttl of zero keeps results until Close.
func NewResultStore(ttl time.Duration) *ResultStore {
	s := &ResultStore{
		entries: make(map[string]storedResult),
		ttl:     ttl,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	if ttl > 0 {
		go s.janitor(ttl / 2)
	}
	return s
}

func (s *ResultStore) Set(session string, result domain.MatchResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[session] = storedResult{result: result.Clone(), version: uuid.NewString(), touched: s.now()}
}

// Get returns a snapshot of the session's result; false means nothing has been stored yet.
func (s *ResultStore) Get(session string) (domain.MatchResult, bool) {
	res, _, ok := s.Version(session)
	return res, ok
}

// Version is Get plus an id that changes every time the session's result is replaced.
func (s *ResultStore) Version(session string) (domain.MatchResult, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[session]
	if !ok {
		return domain.MatchResult{}, "", false
	}
	e.touched = s.now()
	s.entries[session] = e
	return e.result.Clone(), e.version, true
}

func (s *ResultStore) Delete(session string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, session)
}

func (s *ResultStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Evict removes every entry idle for longer than the ttl and returns how many were dropped.
func (s *ResultStore) Evict() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, e := range s.entries {
		if e.touched.Before(cutoff) {
			delete(s.entries, k)
			n++
		}
	}
	return n
}

func (s *ResultStore) janitor(every time.Duration) {
	if every < time.Second {
		every = time.Second
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			s.Evict()
		case <-s.stop:
			return
		}
	}
}

func (s *ResultStore) Close() {
	s.once.Do(func() { close(s.stop) })
}
