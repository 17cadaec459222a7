package runtime

import (
	"context"
	"rent-hub/contract"
	"rent-hub/domain"
	"rent-hub/domain/event"
	"rent-hub/errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var _ contract.Connection = (*Session)(nil)

// Session is the server side of one connection.
// It implements contract.Connection: the router pushes envelopes into its
// bounded outbound queue and the transport drains it.
// The queue is never closed, done is, so a late Deliver cannot panic.
type Session struct {
	id          string
	connectedAt time.Time
	outbound    chan event.Envelope
	done        chan struct{}
	closeOnce   sync.Once

	mu       sync.RWMutex
	identity string
	state    domain.SessionState
}

func NewSession(bufferSize int) *Session {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Session{
		id:          uuid.NewString(),
		connectedAt: time.Now().UTC(),
		outbound:    make(chan event.Envelope, bufferSize),
		done:        make(chan struct{}),
		state:       domain.Anonymous,
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) ConnectedAt() time.Time { return s.connectedAt }

// Identity returns the identity announced by setup, if any.
func (s *Session) Identity() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity, s.state == domain.Identified
}

func (s *Session) State() domain.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Deliver enqueues without blocking.
func (s *Session) Deliver(ctx context.Context, e event.Envelope) error {
	select {
	case <-s.done:
		return errors.ErrConnectionClosed
	default:
	}
	select {
	case s.outbound <- e:
		return nil
	case <-s.done:
		return errors.ErrConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.ErrOutboundFull
	}
}

// Outbound is drained by the transport write loop.
func (s *Session) Outbound() <-chan event.Envelope { return s.outbound }

// Done is closed once the session is disconnected.
func (s *Session) Done() <-chan struct{} { return s.done }

// identify is single-use: the same identity again is accepted and reports
// false, a different one is refused.
func (s *Session) identify(identity string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case domain.Disconnected:
		return false, errors.ErrConnectionClosed
	case domain.Identified:
		if s.identity == identity {
			return false, nil
		}
		return false, errors.ErrAlreadyIdentified
	}
	s.identity = identity
	s.state = domain.Identified
	return true, nil
}

// close reports whether this call is the one that disconnected the session.
func (s *Session) close() bool {
	closed := false
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = domain.Disconnected
		s.mu.Unlock()
		close(s.done)
		closed = true
	})
	return closed
}
