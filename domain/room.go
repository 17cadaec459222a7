package domain

import (
	"fmt"
	"rent-hub/errors"
)

// RoomKind tells what a room identifier stands for.
type RoomKind int

const (
	// IdentityRoom is the private inbox of a single user across all their chats.
	IdentityRoom RoomKind = iota + 1
	// ChatRoom groups the connections following one chat thread.
	ChatRoom
)

func (k RoomKind) String() string {
	switch k {
	case IdentityRoom:
		return "identity"
	case ChatRoom:
		return "chat"
	default:
		return "unknown"
	}
}

// RoomID is either Identity(userID) or Chat(chatID).
// Two rooms with the same key but different kinds never collide.
type RoomID struct {
	Kind RoomKind
	Key  string
}

func Identity(userID string) RoomID {
	return RoomID{Kind: IdentityRoom, Key: userID}
}

func Chat(chatID string) RoomID {
	return RoomID{Kind: ChatRoom, Key: chatID}
}

// Validate rejects zero-kind and empty-key identifiers.
func (r RoomID) Validate() error {
	if r.Kind != IdentityRoom && r.Kind != ChatRoom {
		return fmt.Errorf("room kind %d: %w", r.Kind, errors.ErrInvalidPayload)
	}
	if r.Key == "" {
		return errors.ErrEmptyRoomKey
	}
	return nil
}

func (r RoomID) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.Key)
}
