package runtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"rent-hub/contract"
	"rent-hub/domain"
	"rent-hub/domain/event"
	"sort"
	"sync"
	"time"
)

// Confirmations holds the rental handshake of every chat, in memory only.
// A restart forgets every pending confirmation.
//
// Each transition is decided under the lock and its notification is
// published once the lock is released: at most one caller ever wins a
// given transition, so at most one notification is sent per step.
type Confirmations struct {
	log       *slog.Logger
	router    contract.IRouter
	telemetry chan event.Event
	now       func() time.Time

	mu     sync.Mutex
	byChat map[string]*domain.RentalConfirmation
}

func NewConfirmations(log *slog.Logger, router contract.IRouter, telemetry chan event.Event) *Confirmations {
	return &Confirmations{
		log:       log,
		router:    router,
		telemetry: telemetry,
		now:       func() time.Time { return time.Now().UTC() },
		byChat:    make(map[string]*domain.RentalConfirmation),
	}
}

// MarkRented advances a chat from None to Pending and notifies the renter.
// Any later call for the same chat is absorbed.
func (c *Confirmations) MarkRented(ctx context.Context, chatID, ownerID, renterID string, renterInfo json.RawMessage) bool {
	c.mu.Lock()
	confirmation, ok := c.byChat[chatID]
	if !ok {
		confirmation = &domain.RentalConfirmation{ChatID: chatID}
		c.byChat[chatID] = confirmation
	}
	advanced := confirmation.MarkRented(ownerID, renterID, renterInfo, c.now())
	state := confirmation.State
	c.mu.Unlock()

	if !advanced {
		c.log.Debug("Mark as rented ignored", "chat_id", chatID, "state", state)
		return false
	}

	c.advanced(chatID, domain.ConfirmationNone, domain.ConfirmationPending)
	c.router.Publish(ctx, event.ConfirmationRequired, event.ConfirmationRequiredPayload{
		ChatID:     chatID,
		OwnerID:    ownerID,
		RenterInfo: renterInfo,
	}, domain.Identity(renterID))
	return true
}

// Approve advances a chat from Pending to Approved and notifies the owner.
func (c *Confirmations) Approve(ctx context.Context, chatID string) bool {
	c.mu.Lock()
	confirmation, ok := c.byChat[chatID]
	advanced := ok && confirmation.Approve(c.now())
	var ownerID string
	if advanced {
		ownerID = confirmation.OwnerID
	}
	c.mu.Unlock()

	if !advanced {
		c.log.Debug("Approval ignored", "chat_id", chatID)
		return false
	}
	c.notifyOwner(ctx, chatID, ownerID)
	return true
}

// ApproveByOwner approves the oldest pending confirmation between owner and
// renter. Clients that only know the owner id approve this way.
// Both ids are required: an unknown renter approves nothing.
func (c *Confirmations) ApproveByOwner(ctx context.Context, ownerID, renterID string) bool {
	if ownerID == "" || renterID == "" {
		c.log.Debug("Approval ignored, owner and renter required", "owner_id", ownerID, "renter_id", renterID)
		return false
	}
	c.mu.Lock()
	var candidates []*domain.RentalConfirmation
	for _, confirmation := range c.byChat {
		if confirmation.State != domain.ConfirmationPending ||
			confirmation.OwnerID != ownerID ||
			confirmation.RenterID != renterID {
			continue
		}
		candidates = append(candidates, confirmation)
	}
	if len(candidates) == 0 {
		c.mu.Unlock()
		c.log.Debug("Approval ignored, nothing pending", "owner_id", ownerID, "renter_id", renterID)
		return false
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].MarkedAt.Equal(candidates[j].MarkedAt) {
			return candidates[i].ChatID < candidates[j].ChatID
		}
		return candidates[i].MarkedAt.Before(candidates[j].MarkedAt)
	})
	confirmation := candidates[0]
	confirmation.Approve(c.now())
	chatID := confirmation.ChatID
	c.mu.Unlock()

	c.notifyOwner(ctx, chatID, ownerID)
	return true
}

// Get returns a copy of the confirmation of a chat.
func (c *Confirmations) Get(chatID string) (domain.RentalConfirmation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	confirmation, ok := c.byChat[chatID]
	if !ok {
		return domain.RentalConfirmation{ChatID: chatID}, false
	}
	return *confirmation, true
}

func (c *Confirmations) State(chatID string) domain.ConfirmationState {
	confirmation, _ := c.Get(chatID)
	return confirmation.State
}

func (c *Confirmations) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	pending := 0
	for _, confirmation := range c.byChat {
		if confirmation.State == domain.ConfirmationPending {
			pending++
		}
	}
	return pending
}

func (c *Confirmations) notifyOwner(ctx context.Context, chatID, ownerID string) {
	c.advanced(chatID, domain.ConfirmationPending, domain.ConfirmationApproved)
	c.router.Publish(ctx, event.Rented, event.RentedPayload{ChatID: chatID}, domain.Identity(ownerID))
}

func (c *Confirmations) advanced(chatID string, from, to domain.ConfirmationState) {
	c.log.Info("Rental confirmation advanced", "chat_id", chatID, "from", from, "to", to)
	if c.telemetry == nil {
		return
	}
	select {
	case c.telemetry <- event.Event{
		Type:      event.ConfirmationAdvancedType,
		CreatedAt: c.now(),
		Payload:   event.ConfirmationAdvanced{ChatID: chatID, From: from, To: to},
	}:
	default:
		c.log.Debug("Telemetry event lost", "type", event.ConfirmationAdvancedType)
	}
}
