package server

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ddll/leadercheck/internal/selfcheck"
)

// Sessions owns one selfcheck.Session per id. Actions on a session are
// serialized by its own lock; sessions never share state.
type Sessions struct {
	bank       *selfcheck.Bank
	dispatcher selfcheck.Dispatcher
	ttl        time.Duration
	now        func() time.Time

	mu      sync.RWMutex
	entries map[string]*sessionEntry
}

type sessionEntry struct {
	id      string
	mu      sync.Mutex
	session *selfcheck.Session
	touched time.Time
}

func NewSessions(bank *selfcheck.Bank, d selfcheck.Dispatcher, ttl time.Duration) *Sessions {
	return &Sessions{
		bank:       bank,
		dispatcher: d,
		ttl:        ttl,
		now:        time.Now,
		entries:    make(map[string]*sessionEntry),
	}
}

func (s *Sessions) Bank() *selfcheck.Bank { return s.bank }

// Create starts a new session in the Introduction section.
func (s *Sessions) Create() SessionView {
	e := &sessionEntry{
		id:      uuid.NewString(),
		session: selfcheck.NewSession(s.bank, s.dispatcher),
		touched: s.now(),
	}
	s.mu.Lock()
	s.entries[e.id] = e
	s.mu.Unlock()
	return newSessionView(e.id, e.session)
}

// Do runs fn against session id and returns the view afterwards, also when
// fn fails. A nil fn only reads. Unknown ids yield ErrNotFound.
func (s *Sessions) Do(id string, fn func(*selfcheck.Session) error) (SessionView, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return SessionView{}, ErrNotFound
	}
	return e.do(s.now(), fn, nil)
}

// Act runs fn like Do, then publishes the resulting view on b as an event of
// the given type before the session lock is released. Followers therefore
// see views in the order the actions ran. Refused actions publish too.
func (s *Sessions) Act(id, event string, fn func(*selfcheck.Session) error, b *Broker) (SessionView, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return SessionView{}, ErrNotFound
	}
	return e.do(s.now(), fn, func(v SessionView) {
		b.Publish(id, SessionEvent{Type: event, Session: &v})
	})
}

// Follow subscribes to the session's events and returns its current view.
// Both happen under the session lock, so every event received is newer than
// the view. Callers unsubscribe ch when done.
func (s *Sessions) Follow(id string, b *Broker) (SessionView, chan []byte, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return SessionView{}, nil, ErrNotFound
	}
	var ch chan []byte
	view, _ := e.do(s.now(), nil, func(SessionView) {
		ch = b.Subscribe(id)
	})
	return view, ch, nil
}

func (s *Sessions) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	delete(s.entries, id)
	return ok
}

func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Sweep drops sessions idle for longer than the TTL.
func (s *Sessions) Sweep() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, e := range s.entries {
		e.mu.Lock()
		idle := e.touched.Before(cutoff)
		e.mu.Unlock()
		if idle {
			delete(s.entries, id)
			n++
		}
	}
	return n
}

// Run sweeps on a ticker until ctx is done.
func (s *Sessions) Run(ctx context.Context) error {
	interval := s.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			s.Sweep()
		}
	}
}

// do runs fn and then after under the session lock, and returns the
// resulting view.
func (e *sessionEntry) do(now time.Time, fn func(*selfcheck.Session) error, after func(SessionView)) (SessionView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touched = now

	var err error
	if fn != nil {
		err = fn(e.session)
	}
	view := newSessionView(e.id, e.session)
	if after != nil {
		after(view)
	}
	return view, err
}
