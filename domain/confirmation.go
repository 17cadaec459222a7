package domain

import (
	"encoding/json"
	"time"
)

// ConfirmationState only moves forward: None -> Pending -> Approved.
type ConfirmationState int

const (
	ConfirmationNone ConfirmationState = iota
	ConfirmationPending
	ConfirmationApproved
)

func (s ConfirmationState) String() string {
	switch s {
	case ConfirmationNone:
		return "none"
	case ConfirmationPending:
		return "pending"
	case ConfirmationApproved:
		return "approved"
	default:
		return "unknown"
	}
}

// RentalConfirmation is the handshake state of one chat.
// It lives for the process lifetime only.
type RentalConfirmation struct {
	ChatID     string
	OwnerID    string
	RenterID   string
	RenterInfo json.RawMessage
	State      ConfirmationState
	MarkedAt   time.Time
	ApprovedAt time.Time
}

// MarkRented moves None to Pending and records both parties.
// It reports false, leaving the confirmation untouched, in any other state.
func (c *RentalConfirmation) MarkRented(ownerID, renterID string, renterInfo json.RawMessage, at time.Time) bool {
	if c.State != ConfirmationNone {
		return false
	}
	c.OwnerID = ownerID
	c.RenterID = renterID
	c.RenterInfo = renterInfo
	c.State = ConfirmationPending
	c.MarkedAt = at
	return true
}

// Approve moves Pending to Approved. None and Approved are left as they are.
func (c *RentalConfirmation) Approve(at time.Time) bool {
	if c.State != ConfirmationPending {
		return false
	}
	c.State = ConfirmationApproved
	c.ApprovedAt = at
	return true
}
