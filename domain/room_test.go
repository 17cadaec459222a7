package domain

import (
	"rent-hub/errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoomID_Kinds_Do_Not_Collide(t *testing.T) {
	req := require.New(t)

	// Given a user and a chat sharing the same raw key
	identity := Identity("42")
	chat := Chat("42")

	// Then they are distinct rooms
	req.NotEqual(identity, chat)
	req.Equal("identity:42", identity.String())
	req.Equal("chat:42", chat.String())

	set := map[RoomID]struct{}{identity: {}, chat: {}}
	req.Len(set, 2)
}

func TestRoomID_Validate(t *testing.T) {
	req := require.New(t)

	req.NoError(Chat("c1").Validate())
	req.NoError(Identity("u1").Validate())
	req.ErrorIs(Chat("").Validate(), errors.ErrEmptyRoomKey)
	req.ErrorIs(RoomID{Key: "x"}.Validate(), errors.ErrInvalidPayload)
}
