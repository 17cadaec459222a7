// Package domain contains core concepts of the rental hub.
// This file defines chat messages as they travel through the hub.
// The hub is transport, not storage: messages are never persisted here.
package domain

import (
	"encoding/json"
	"time"
)

// Message is a chat message in transit.
// Body is the raw inbound payload, forwarded to recipients untouched.
type Message struct {
	SenderID     string
	ChatID       string
	Participants [2]string
	Body         json.RawMessage
	SentAt       time.Time
}

// TargetRooms returns the chat room followed by both participants' identity rooms.
func (m Message) TargetRooms() []RoomID {
	return []RoomID{
		Chat(m.ChatID),
		Identity(m.Participants[0]),
		Identity(m.Participants[1]),
	}
}
