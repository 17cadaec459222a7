package event

import (
	"encoding/json"
	"rent-hub/errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDecodeChat_Accepts_Both_Forms(t *testing.T) {
	req := require.New(t)

	bare, err := DecodeChat(json.RawMessage(`"c1"`))
	req.NoError(err)
	req.Equal("c1", bare.ChatID)

	object, err := DecodeChat(json.RawMessage(`{"chatId":"c2"}`))
	req.NoError(err)
	req.Equal("c2", object.ChatID)

	_, err = DecodeChat(json.RawMessage(`""`))
	req.ErrorIs(err, errors.ErrInvalidPayload)
}

func TestDecodeNewMessage_Requires_Routing_Fields(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"complete", `{"chatId":"c1","participantA":"u1","participantB":"u2","content":"hi"}`, false},
		{"with timestamp", `{"chatId":"c1","participantA":"u1","participantB":"u2","sentAt":"2026-01-02T15:04:05Z"}`, false},
		{"epoch timestamp", `{"chatId":"c1","participantA":"u1","participantB":"u2","sentAt":1700000000000}`, false},
		{"free form timestamp", `{"chatId":"c1","participantA":"u1","participantB":"u2","sentAt":"2024-01-01 10:00"}`, false},
		{"missing chat", `{"participantA":"u1","participantB":"u2"}`, true},
		{"missing participant", `{"chatId":"c1","participantA":"u1"}`, true},
		{"not an object", `"hello"`, true},
		{"empty", ``, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeNewMessage(json.RawMessage(tt.raw))
			if tt.wantErr {
				require.ErrorIs(t, err, errors.ErrInvalidPayload)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestNewMessagePayload_Timestamp_Is_Best_Effort(t *testing.T) {
	tests := []struct {
		name   string
		sentAt string
		want   time.Time
		ok     bool
	}{
		{"rfc3339", `"2026-01-02T15:04:05Z"`, time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC), true},
		{"epoch millis", `1700000000000`, time.UnixMilli(1700000000000).UTC(), true},
		{"free form", `"2024-01-01 10:00"`, time.Time{}, false},
		{"object", `{"at":1}`, time.Time{}, false},
		{"absent", ``, time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NewMessagePayload{SentAt: json.RawMessage(tt.sentAt)}.Timestamp()
			require.Equal(t, tt.ok, ok)
			require.True(t, tt.want.Equal(got))
		})
	}
}

func TestDecodeApproval_Bare_Owner_Or_Chat(t *testing.T) {
	req := require.New(t)

	byOwner, err := DecodeApproval(json.RawMessage(`"u1"`))
	req.NoError(err)
	req.Equal("u1", byOwner.OwnerID)
	req.Empty(byOwner.ChatID)

	byChat, err := DecodeApproval(json.RawMessage(`{"chatId":"c1"}`))
	req.NoError(err)
	req.Equal("c1", byChat.ChatID)

	_, err = DecodeApproval(json.RawMessage(`{}`))
	req.ErrorIs(err, errors.ErrInvalidPayload)
}

func TestDecodeMarkRented_Keeps_Renter_Info(t *testing.T) {
	req := require.New(t)

	p, err := DecodeMarkRented(json.RawMessage(`{"chatId":"c1","ownerId":"u1","renterId":"u2","renterInfo":{"name":"Bob"}}`))
	req.NoError(err)
	req.JSONEq(`{"name":"Bob"}`, string(p.RenterInfo))

	_, err = DecodeMarkRented(json.RawMessage(`{"chatId":"c1","ownerId":"u1"}`))
	req.ErrorIs(err, errors.ErrInvalidPayload)
}

func TestNewEnvelope(t *testing.T) {
	req := require.New(t)

	empty, err := NewEnvelope(Connected, nil)
	req.NoError(err)
	req.Nil(empty.Payload)

	raw, err := json.Marshal(empty)
	req.NoError(err)
	req.JSONEq(`{"event":"connected"}`, string(raw))

	rented, err := NewEnvelope(Rented, RentedPayload{ChatID: "c1"})
	req.NoError(err)
	req.JSONEq(`{"chatId":"c1"}`, string(rented.Payload))

	passthrough, err := NewEnvelope(MessageReceived, json.RawMessage(`{"body":"hi"}`))
	req.NoError(err)
	req.JSONEq(`{"body":"hi"}`, string(passthrough.Payload))
}
