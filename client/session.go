// Package client owns the client side of the hub connection.
//
// A Session holds at most one live connection no matter how many observers
// (UI surfaces) watch it. Observers only own their listeners: detaching one
// never closes the connection, and the connection outlives a brief moment
// with no observer at all. Only Session.Close ends it for good.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"rent-hub/domain/event"
	"rent-hub/errors"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
)

const (
	defaultLinger       = 5 * time.Second
	defaultWriteTimeout = 5 * time.Second
)

type Handler func(payload json.RawMessage)

type Session struct {
	log          *slog.Logger
	dialer       Dialer
	linger       time.Duration
	writeTimeout time.Duration

	mu          sync.Mutex
	transport   Transport
	cancelRead  context.CancelFunc
	observers   map[int]*Observer
	nextID      int
	identity    string
	token       string
	chats       map[string]struct{}
	lingerTimer *time.Timer
	lingerGen   int
	closed      bool
	dials       int
}

type Option func(*Session)

// WithLinger sets how long the connection survives without any observer.
func WithLinger(linger time.Duration) Option {
	return func(s *Session) { s.linger = linger }
}

func WithWriteTimeout(timeout time.Duration) Option {
	return func(s *Session) { s.writeTimeout = timeout }
}

func NewSession(log *slog.Logger, dialer Dialer, opts ...Option) *Session {
	s := &Session{
		log:          log,
		dialer:       dialer,
		linger:       defaultLinger,
		writeTimeout: defaultWriteTimeout,
		observers:    make(map[int]*Observer),
		chats:        make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Observe attaches a new observer, connecting first if needed.
func (s *Session) Observe(ctx context.Context) (*Observer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.connectLocked(ctx); err != nil {
		return nil, err
	}
	if s.lingerTimer != nil {
		s.lingerTimer.Stop()
		s.lingerTimer = nil
	}
	s.nextID++
	o := &Observer{session: s, id: s.nextID, handlers: make(map[event.Name][]Handler)}
	s.observers[o.id] = o
	return o, nil
}

// Setup announces the identity. It is remembered and sent again on every
// new connection.
func (s *Session) Setup(ctx context.Context, identity, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.ErrSessionClosed
	}
	s.identity, s.token = identity, token
	if s.transport == nil {
		return s.connectLocked(ctx)
	}
	return s.writeLocked(ctx, event.Setup, event.SetupPayload{Identity: identity, Token: token})
}

// JoinChat subscribes to a chat. It is remembered and replayed on reconnect.
func (s *Session) JoinChat(ctx context.Context, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.ErrSessionClosed
	}
	s.chats[chatID] = struct{}{}
	if s.transport == nil {
		return s.connectLocked(ctx)
	}
	return s.writeLocked(ctx, event.JoinChat, event.ChatPayload{ChatID: chatID})
}

func (s *Session) LeaveChat(ctx context.Context, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.ErrSessionClosed
	}
	delete(s.chats, chatID)
	if s.transport == nil {
		return nil
	}
	return s.writeLocked(ctx, event.LeaveChat, event.ChatPayload{ChatID: chatID})
}

// Emit sends any event, reconnecting first if the connection dropped.
func (s *Session) Emit(ctx context.Context, name event.Name, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.connectLocked(ctx); err != nil {
		return err
	}
	return s.writeLocked(ctx, name, payload)
}

// Close ends the client session and its connection right away.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.lingerTimer != nil {
		s.lingerTimer.Stop()
		s.lingerTimer = nil
	}
	s.observers = make(map[int]*Observer)
	transport := s.releaseLocked()
	s.mu.Unlock()
	return closeTransport(transport)
}

func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transport != nil
}

// Dials returns how many connections this session has opened so far.
func (s *Session) Dials() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dials
}

// Chats returns the remembered chats, sorted.
func (s *Session) Chats() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	chats := lo.Keys(s.chats)
	sort.Strings(chats)
	return chats
}

func (s *Session) connectLocked(ctx context.Context) error {
	if s.closed {
		return errors.ErrSessionClosed
	}
	if s.transport != nil {
		return nil
	}

	transport, err := s.dialer.Dial(ctx)
	if err != nil {
		return err
	}
	s.transport = transport
	s.dials++

	readCtx, cancel := context.WithCancel(context.Background())
	s.cancelRead = cancel
	go s.readLoop(readCtx, transport)

	if err := s.replayLocked(ctx); err != nil {
		s.abandonLocked()
		return fmt.Errorf("replay session state: %w", err)
	}
	s.log.Debug("Connected to hub", "dials", s.dials)
	return nil
}

// replayLocked restores identity and chats on a fresh connection.
func (s *Session) replayLocked(ctx context.Context) error {
	if s.identity != "" {
		if err := s.writeLocked(ctx, event.Setup, event.SetupPayload{Identity: s.identity, Token: s.token}); err != nil {
			return err
		}
	}
	chats := lo.Keys(s.chats)
	sort.Strings(chats)
	for _, chatID := range chats {
		if err := s.writeLocked(ctx, event.JoinChat, event.ChatPayload{ChatID: chatID}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) writeLocked(ctx context.Context, name event.Name, payload any) error {
	if s.transport == nil {
		return errors.ErrNotConnected
	}
	envelope, err := event.NewEnvelope(name, payload)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()
	if err := s.transport.Write(writeCtx, envelope); err != nil {
		s.log.Warn("Write failed, dropping connection", "event", name, "error", err)
		s.abandonLocked()
		return fmt.Errorf("write %q: %w", name, err)
	}
	return nil
}

// releaseLocked forgets the current transport and stops its read loop.
// The caller closes the returned transport once s.mu is released, so a slow
// close handshake never blocks dispatch or new calls.
func (s *Session) releaseLocked() Transport {
	transport := s.transport
	if transport == nil {
		return nil
	}
	s.cancelRead()
	s.transport, s.cancelRead = nil, nil
	return transport
}

// abandonLocked drops a transport that already failed, from inside a locked call.
func (s *Session) abandonLocked() {
	if transport := s.releaseLocked(); transport != nil {
		go func() { _ = transport.Close() }()
	}
}

func closeTransport(transport Transport) error {
	if transport == nil {
		return nil
	}
	return transport.Close()
}

func (s *Session) readLoop(ctx context.Context, transport Transport) {
	for {
		envelope, err := transport.Read(ctx)
		if err != nil {
			s.dropped(transport, err)
			return
		}
		s.dispatch(envelope)
	}
}

// dropped forgets a transport that failed. The next Observe or Emit dials again.
func (s *Session) dropped(transport Transport, err error) {
	s.mu.Lock()
	if s.transport != transport {
		s.mu.Unlock()
		return
	}
	s.log.Warn("Connection to hub lost", "error", err)
	released := s.releaseLocked()
	s.mu.Unlock()
	_ = closeTransport(released)
}

func (s *Session) dispatch(envelope event.Envelope) {
	s.mu.Lock()
	var handlers []Handler
	ids := lo.Keys(s.observers)
	sort.Ints(ids)
	for _, id := range ids {
		handlers = append(handlers, s.observers[id].handlers[envelope.Event]...)
	}
	s.mu.Unlock()

	for _, h := range handlers {
		h(envelope.Payload)
	}
}

func (s *Session) detach(o *Observer) {
	s.mu.Lock()
	if _, ok := s.observers[o.id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.observers, o.id)
	if len(s.observers) > 0 || s.closed {
		s.mu.Unlock()
		return
	}
	if s.linger <= 0 {
		transport := s.releaseLocked()
		s.mu.Unlock()
		_ = closeTransport(transport)
		return
	}
	s.lingerGen++
	gen := s.lingerGen
	s.lingerTimer = time.AfterFunc(s.linger, func() { s.expire(gen) })
	s.mu.Unlock()
}

// expire only acts for the latest linger; an older timer that fired late is ignored.
func (s *Session) expire(gen int) {
	s.mu.Lock()
	if s.lingerTimer == nil || s.lingerGen != gen || len(s.observers) > 0 {
		s.mu.Unlock()
		return
	}
	s.lingerTimer = nil
	s.log.Debug("No observer left, closing connection")
	transport := s.releaseLocked()
	s.mu.Unlock()
	_ = closeTransport(transport)
}
