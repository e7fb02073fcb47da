package server

import (
	"encoding/json"
	"sync"
)

// SessionEvent is published to a session's subscribers after each action.
// Error is only set on messages sent back to a websocket client.
type SessionEvent struct {
	Type    string         `json:"type"`
	Session *SessionView   `json:"session,omitempty"`
	Error   *ErrorResponse `json:"error,omitempty"`
}

// Broker is an in-process pub/sub keyed by session id. It feeds the SSE
// stream so a second tab or a facilitator screen can follow progress.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

func (b *Broker) Subscribe(sessionID string) chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[chan []byte]struct{})
	}
	b.subs[sessionID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(sessionID string, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[sessionID], ch)
	if len(b.subs[sessionID]) == 0 {
		delete(b.subs, sessionID)
	}
	b.mu.Unlock()
}

// Publish never blocks; slow subscribers miss events.
func (b *Broker) Publish(sessionID string, event SessionEvent) {
	data, _ := json.Marshal(event)
	b.mu.RLock()
	for ch := range b.subs[sessionID] {
		select {
		case ch <- data:
		default:
		}
	}
	b.mu.RUnlock()
}
