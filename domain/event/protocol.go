package event

import (
	"encoding/json"
	"fmt"
	"rent-hub/errors"
	"time"

	"github.com/go-playground/validator/v10"
)

// Name is the wire name of an event.
type Name string

// Inbound events, sent by clients.
const (
	Setup                Name = "setup"
	JoinChat             Name = "join chat"
	LeaveChat            Name = "leave chat"
	NewMessage           Name = "new message"
	MarkAsRented         Name = "mark as rented"
	ConfirmationApproved Name = "confirmation approved"
	Disconnect           Name = "disconnect"
)

// Outbound events, sent by the hub.
const (
	Connected            Name = "connected"
	MessageReceived      Name = "message received"
	ConfirmationRequired Name = "confirmation required"
	Rented               Name = "rented"
	Error                Name = "error"
)

// Envelope is one frame on the wire, in both directions.
type Envelope struct {
	Event   Name            `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope marshals payload once. A nil payload leaves the field out.
func NewEnvelope(name Name, payload any) (Envelope, error) {
	switch p := payload.(type) {
	case nil:
		return Envelope{Event: name}, nil
	case json.RawMessage:
		return Envelope{Event: name, Payload: p}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %q payload: %w", name, err)
	}
	return Envelope{Event: name, Payload: raw}, nil
}

type SetupPayload struct {
	Identity string `json:"identity" validate:"required"`
	Token    string `json:"token,omitempty"`
}

type ChatPayload struct {
	ChatID string `json:"chatId" validate:"required"`
}

// NewMessagePayload holds the routing fields of a message.
// Everything else in the frame is body and is forwarded as is.
type NewMessagePayload struct {
	ChatID       string          `json:"chatId" validate:"required"`
	ParticipantA string          `json:"participantA" validate:"required"`
	ParticipantB string          `json:"participantB" validate:"required"`
	SentAt       json.RawMessage `json:"sentAt,omitempty"`
}

// Timestamp reads sentAt when it is an RFC3339 string or epoch milliseconds.
// The timestamp belongs to the caller, so any other shape is ignored.
func (p NewMessagePayload) Timestamp() (time.Time, bool) {
	if len(p.SentAt) == 0 {
		return time.Time{}, false
	}
	var text string
	if err := json.Unmarshal(p.SentAt, &text); err == nil {
		t, err := time.Parse(time.RFC3339Nano, text)
		return t, err == nil
	}
	var millis int64
	if err := json.Unmarshal(p.SentAt, &millis); err == nil {
		return time.UnixMilli(millis).UTC(), true
	}
	return time.Time{}, false
}

type MarkRentedPayload struct {
	ChatID     string          `json:"chatId" validate:"required"`
	OwnerID    string          `json:"ownerId" validate:"required"`
	RenterID   string          `json:"renterId" validate:"required"`
	RenterInfo json.RawMessage `json:"renterInfo,omitempty"`
}

// ApprovalPayload carries either the chat being approved or, in the
// bare-string form, only the owner to notify.
type ApprovalPayload struct {
	ChatID  string `json:"chatId" validate:"required_without=OwnerID"`
	OwnerID string `json:"ownerId" validate:"required_without=ChatID"`
}

type ConfirmationRequiredPayload struct {
	ChatID     string          `json:"chatId"`
	OwnerID    string          `json:"ownerId"`
	RenterInfo json.RawMessage `json:"renterInfo,omitempty"`
}

type RentedPayload struct {
	ChatID string `json:"chatId"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var validate = validator.New()

func decode[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, fmt.Errorf("empty payload: %w", errors.ErrInvalidPayload)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("%v: %w", err, errors.ErrInvalidPayload)
	}
	if err := validate.Struct(v); err != nil {
		return v, fmt.Errorf("%v: %w", err, errors.ErrInvalidPayload)
	}
	return v, nil
}

// bareString reports the value of a JSON string payload such as "c1".
func bareString(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func DecodeSetup(raw json.RawMessage) (SetupPayload, error) {
	return decode[SetupPayload](raw)
}

// DecodeChat accepts "c1" as well as {"chatId":"c1"}.
func DecodeChat(raw json.RawMessage) (ChatPayload, error) {
	if s, ok := bareString(raw); ok {
		return decode[ChatPayload](mustMarshal(ChatPayload{ChatID: s}))
	}
	return decode[ChatPayload](raw)
}

func DecodeNewMessage(raw json.RawMessage) (NewMessagePayload, error) {
	return decode[NewMessagePayload](raw)
}

func DecodeMarkRented(raw json.RawMessage) (MarkRentedPayload, error) {
	return decode[MarkRentedPayload](raw)
}

// DecodeApproval accepts a bare owner id "u1" as well as {"chatId":"c1"}.
func DecodeApproval(raw json.RawMessage) (ApprovalPayload, error) {
	if s, ok := bareString(raw); ok {
		return decode[ApprovalPayload](mustMarshal(ApprovalPayload{OwnerID: s}))
	}
	return decode[ApprovalPayload](raw)
}

func mustMarshal(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}
