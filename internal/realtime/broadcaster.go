// Package realtime subscribes to Laravel broadcast channels, either through a
// Pusher-protocol server (Reverb) or straight off the Redis broadcaster.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

var (
	ErrNotConnected     = errors.New("broadcast transport not connected")
	ErrSubscribeTimeout = errors.New("timed out waiting for subscription")
	ErrClosed           = errors.New("broadcaster closed")
)

// Handler receives one event. data is the event payload with any string
// framing already removed.
type Handler func(event string, data json.RawMessage)

// Subscription is a live handle on one channel. Close detaches every
// handler and releases the channel. Done is closed once the handle stops
// delivering, either after Close or when the transport drops.
type Subscription interface {
	Channel() string
	On(event string, h Handler)
	Off(event string)
	Close() error
	Done() <-chan struct{}
}

type Broadcaster interface {
	Subscribe(ctx context.Context, channel string) (Subscription, error)
	Close() error
}

// subscription is the handler table shared by both transports.
type subscription struct {
	channel string

	mu       sync.RWMutex
	handlers map[string]Handler

	closeOnce sync.Once
	closeErr  error
	release   func() error

	endOnce sync.Once
	done    chan struct{}
}

func newSubscription(channel string, release func() error) *subscription {
	return &subscription{
		channel:  channel,
		handlers: make(map[string]Handler),
		release:  release,
		done:     make(chan struct{}),
	}
}

func (s *subscription) Channel() string { return s.channel }

func (s *subscription) On(event string, h Handler) {
	s.mu.Lock()
	s.handlers[event] = h
	s.mu.Unlock()
}

func (s *subscription) Off(event string) {
	s.mu.Lock()
	delete(s.handlers, event)
	s.mu.Unlock()
}

func (s *subscription) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.handlers = make(map[string]Handler)
		s.mu.Unlock()
		s.end()
		if s.release != nil {
			s.closeErr = s.release()
		}
	})
	return s.closeErr
}

func (s *subscription) Done() <-chan struct{} { return s.done }

// end marks the handle dead without releasing the channel. Transports call
// it when the connection carrying the channel is gone.
func (s *subscription) end() {
	s.endOnce.Do(func() { close(s.done) })
}

// dispatch runs the handler for event, reporting whether one was registered.
func (s *subscription) dispatch(event string, data json.RawMessage) bool {
	s.mu.RLock()
	h, ok := s.handlers[event]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	h(event, data)
	return true
}

// unwrapData strips the JSON-string framing Pusher puts around event data.
func unwrapData(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || raw[0] != '"' {
		return raw
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return raw
	}
	return json.RawMessage(s)
}
