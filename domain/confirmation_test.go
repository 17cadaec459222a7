package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRentalConfirmation_Forward_Only(t *testing.T) {
	req := require.New(t)
	now := time.Now().UTC()
	c := RentalConfirmation{ChatID: "c1"}

	// Given no confirmation yet, approving is refused
	req.False(c.Approve(now))
	req.Equal(ConfirmationNone, c.State)

	// When the owner marks the chat as rented
	req.True(c.MarkRented("u1", "u2", nil, now))
	req.Equal(ConfirmationPending, c.State)
	req.Equal("u1", c.OwnerID)
	req.Equal("u2", c.RenterID)

	// Then a second mark is absorbed and keeps the first parties
	req.False(c.MarkRented("u9", "u8", nil, now))
	req.Equal("u1", c.OwnerID)

	// When the renter approves
	req.True(c.Approve(now))
	req.Equal(ConfirmationApproved, c.State)

	// Then nothing moves it anymore
	req.False(c.Approve(now))
	req.False(c.MarkRented("u1", "u2", nil, now))
	req.Equal(ConfirmationApproved, c.State)
}

func TestMessage_TargetRooms(t *testing.T) {
	req := require.New(t)
	msg := Message{ChatID: "c1", Participants: [2]string{"u1", "u2"}}

	req.Equal([]RoomID{Chat("c1"), Identity("u1"), Identity("u2")}, msg.TargetRooms())
}
