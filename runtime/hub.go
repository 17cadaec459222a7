package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"rent-hub/contract"
	"rent-hub/domain"
	"rent-hub/domain/event"
	apperr "rent-hub/errors"
	"sync"
)

// Hub wires the registry, the router and the confirmation handshake together.
// It is built once at startup and handed to every connection handler.
type Hub struct {
	log           *slog.Logger
	registry      *Registry
	router        *Router
	confirmations *Confirmations
	verifier      contract.IdentityVerifier
	telemetry     chan event.Event
	bufferSize    int

	mu       sync.RWMutex
	sessions map[string]*Session
}

type Option func(*Hub)

// WithVerifier makes setup require a token accepted by verifier.
func WithVerifier(verifier contract.IdentityVerifier) Option {
	return func(h *Hub) { h.verifier = verifier }
}

func WithTelemetry(telemetry chan event.Event) Option {
	return func(h *Hub) { h.telemetry = telemetry }
}

// WithBufferSize bounds the outbound queue of each connection.
func WithBufferSize(size int) Option {
	return func(h *Hub) { h.bufferSize = size }
}

func NewHub(log *slog.Logger, opts ...Option) *Hub {
	h := &Hub{
		log:        log,
		registry:   NewRegistry(),
		bufferSize: 64,
		sessions:   make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.router = NewRouter(log, h.registry, h.telemetry, h.evict)
	h.confirmations = NewConfirmations(log, h.router, h.telemetry)
	return h
}

func (h *Hub) Registry() *Registry { return h.registry }

func (h *Hub) Confirmations() *Confirmations { return h.confirmations }

// Connect opens an anonymous session.
func (h *Hub) Connect() *Session {
	s := NewSession(h.bufferSize)
	h.mu.Lock()
	h.sessions[s.ID()] = s
	h.mu.Unlock()
	h.log.Debug("Connection opened", "connection_id", s.ID())
	return s
}

// Disconnect removes the session from every room before returning.
// Calling it more than once is harmless.
func (h *Hub) Disconnect(s *Session) {
	if !s.close() {
		return
	}
	rooms := h.registry.DropAll(s)
	h.mu.Lock()
	delete(h.sessions, s.ID())
	h.mu.Unlock()
	identity, _ := s.Identity()
	h.log.Debug("Connection closed", "connection_id", s.ID(), "identity", identity, "rooms", len(rooms))
}

func (h *Hub) evict(conn contract.Connection) {
	h.mu.RLock()
	s, ok := h.sessions[conn.ID()]
	h.mu.RUnlock()
	if ok {
		h.Disconnect(s)
	}
}

// Shutdown disconnects every open session.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()
	for _, s := range sessions {
		h.Disconnect(s)
	}
}

// Handle dispatches one inbound envelope and applies the error policy:
// a malformed payload is logged and dropped, any other failure is reported
// to that connection only.
func (h *Hub) Handle(ctx context.Context, s *Session, envelope event.Envelope) {
	err := h.Dispatch(ctx, s, envelope)
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrInvalidPayload):
		h.log.Warn("Dropping malformed event", "connection_id", s.ID(), "event", envelope.Event, "error", err)
	default:
		h.log.Info("Event rejected", "connection_id", s.ID(), "event", envelope.Event, "error", err)
		h.Fail(ctx, s, err)
	}
}

// Dispatch routes one inbound envelope to the matching operation.
func (h *Hub) Dispatch(ctx context.Context, s *Session, envelope event.Envelope) error {
	switch envelope.Event {
	case event.Setup:
		p, err := event.DecodeSetup(envelope.Payload)
		if err != nil {
			return err
		}
		return h.Setup(ctx, s, p.Identity, p.Token)
	case event.JoinChat:
		p, err := event.DecodeChat(envelope.Payload)
		if err != nil {
			return err
		}
		return h.JoinChat(s, p.ChatID)
	case event.LeaveChat:
		p, err := event.DecodeChat(envelope.Payload)
		if err != nil {
			return err
		}
		h.LeaveChat(s, p.ChatID)
		return nil
	case event.NewMessage:
		p, err := event.DecodeNewMessage(envelope.Payload)
		if err != nil {
			return err
		}
		h.SendMessage(ctx, s, p, envelope)
		return nil
	case event.MarkAsRented:
		p, err := event.DecodeMarkRented(envelope.Payload)
		if err != nil {
			return err
		}
		h.confirmations.MarkRented(ctx, p.ChatID, p.OwnerID, p.RenterID, p.RenterInfo)
		return nil
	case event.ConfirmationApproved:
		p, err := event.DecodeApproval(envelope.Payload)
		if err != nil {
			return err
		}
		_, err = h.Approve(ctx, s, p)
		return err
	case event.Disconnect:
		h.Disconnect(s)
		return nil
	default:
		return fmt.Errorf("%q: %w", envelope.Event, apperr.ErrUnknownEvent)
	}
}

// Setup identifies the session and subscribes it to its identity room.
// It is single-use: repeating the same identity only re-acknowledges.
func (h *Hub) Setup(ctx context.Context, s *Session, identity, token string) error {
	if identity == "" {
		return apperr.ErrMissingIdentity
	}
	if h.verifier != nil {
		if err := h.verifier.Verify(identity, token); err != nil {
			return err
		}
	}
	first, err := s.identify(identity)
	if err != nil {
		return err
	}
	if first {
		h.join(s, domain.Identity(identity))
		h.log.Debug("Connection identified", "connection_id", s.ID(), "identity", identity)
	}
	h.send(ctx, s, event.Connected, nil)
	return nil
}

func (h *Hub) JoinChat(s *Session, chatID string) error {
	roomID := domain.Chat(chatID)
	if err := roomID.Validate(); err != nil {
		return fmt.Errorf("%v: %w", err, apperr.ErrInvalidPayload)
	}
	if s.State() == domain.Disconnected {
		return apperr.ErrConnectionClosed
	}
	h.join(s, roomID)
	return nil
}

func (h *Hub) LeaveChat(s *Session, chatID string) {
	h.registry.Leave(s, domain.Chat(chatID))
}

// SendMessage forwards the inbound payload untouched to the chat room and
// both participants. Membership of the sender is not checked here.
func (h *Hub) SendMessage(ctx context.Context, s *Session, p event.NewMessagePayload, envelope event.Envelope) int {
	sender, _ := s.Identity()
	message := domain.Message{
		SenderID:     sender,
		ChatID:       p.ChatID,
		Participants: [2]string{p.ParticipantA, p.ParticipantB},
		Body:         envelope.Payload,
	}
	if sentAt, ok := p.Timestamp(); ok {
		message.SentAt = sentAt
	}
	delivered := h.router.Publish(ctx, event.MessageReceived, message.Body, message.TargetRooms()...)
	h.log.Debug("Message delivered",
		"chat_id", message.ChatID,
		"sender", message.SenderID,
		"recipients", delivered)
	return delivered
}

// Approve accepts both approval forms: by chat, or by owner for the
// renter behind this session. The owner form needs an identified session.
func (h *Hub) Approve(ctx context.Context, s *Session, p event.ApprovalPayload) (bool, error) {
	if p.ChatID != "" {
		return h.confirmations.Approve(ctx, p.ChatID), nil
	}
	renter, identified := s.Identity()
	if !identified {
		return false, fmt.Errorf("approval by owner %q: %w", p.OwnerID, apperr.ErrMissingIdentity)
	}
	return h.confirmations.ApproveByOwner(ctx, p.OwnerID, renter), nil
}

// Fail reports err to the session as an error event.
func (h *Hub) Fail(ctx context.Context, s *Session, err error) {
	h.send(ctx, s, event.Error, event.ErrorPayload{Code: ErrorCode(err), Message: err.Error()})
}

func (h *Hub) Stats() (connections, rooms int) {
	h.mu.RLock()
	connections = len(h.sessions)
	h.mu.RUnlock()
	_, rooms = h.registry.Stats()
	return connections, rooms
}

// QueueUsage is the fill level of one connection's outbound queue.
type QueueUsage struct {
	ConnectionID string
	Identity     string
	Length       int
	Capacity     int
}

// Queues samples the outbound queue of every open session.
func (h *Hub) Queues() []QueueUsage {
	h.mu.RLock()
	defer h.mu.RUnlock()
	usage := make([]QueueUsage, 0, len(h.sessions))
	for _, s := range h.sessions {
		identity, _ := s.Identity()
		usage = append(usage, QueueUsage{
			ConnectionID: s.ID(),
			Identity:     identity,
			Length:       len(s.outbound),
			Capacity:     cap(s.outbound),
		})
	}
	return usage
}

func (h *Hub) Snapshot() []RoomSnapshot {
	return h.registry.Snapshot()
}

// join keeps the room free of a session that disconnected concurrently.
func (h *Hub) join(s *Session, roomID domain.RoomID) {
	h.registry.Join(s, roomID)
	if s.State() == domain.Disconnected {
		h.registry.DropAll(s)
	}
}

func (h *Hub) send(ctx context.Context, s *Session, name event.Name, payload any) {
	envelope, err := event.NewEnvelope(name, payload)
	if err != nil {
		h.log.Error("Unable to encode outbound event", "event", name, "error", err)
		return
	}
	err = s.Deliver(ctx, envelope)
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrOutboundFull):
		h.log.Warn("Slow consumer, evicting", "connection_id", s.ID(), "event", name)
		h.Disconnect(s)
	default:
		h.log.Debug("Event not delivered", "connection_id", s.ID(), "event", name, "error", err)
	}
}

// ErrorCode is the stable code sent in error events.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, apperr.ErrMalformedFrame):
		return "malformed_frame"
	case errors.Is(err, apperr.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, apperr.ErrUnknownEvent):
		return "unknown_event"
	case errors.Is(err, apperr.ErrAlreadyIdentified):
		return "already_identified"
	case errors.Is(err, apperr.ErrMissingIdentity):
		return "missing_identity"
	case errors.Is(err, apperr.ErrInvalidToken), errors.Is(err, apperr.ErrTokenMismatch):
		return "invalid_token"
	case errors.Is(err, apperr.ErrConnectionClosed):
		return "connection_closed"
	default:
		return "internal"
	}
}

