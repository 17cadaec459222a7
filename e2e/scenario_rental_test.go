package e2e

import (
	"context"
	"encoding/json"
	"rent-hub/domain/event"
	"rent-hub/infrastructure/grpc/client"
	"rent-hub/infrastructure/grpc/server"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type testRentalSuite struct {
	BaseHubSuite
}

func TestRentalSuite(t *testing.T) {
	suite.Run(t, &testRentalSuite{})
}

func (s *testRentalSuite) TestHealth() {
	s.Step("Probe gRPC health")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	status, err := client.Probe(ctx, s.Config.HealthAddr, server.HubServiceName)
	s.Require().NoError(err)
	s.Require().Equal("SERVING", status)
}

func (s *testRentalSuite) TestMessageAndRentalFlow() {
	ctx := context.Background()
	// Unique ids so the suite can run against a shared hub
	suffix := uuid.NewString()[:8]
	owner, renter, outsider := "owner-"+suffix, "renter-"+suffix, "outsider-"+suffix
	chatID := "chat-" + suffix

	var a, b, c *Participant
	s.Run("Step 1: Three clients identify", func() {
		s.Step("Setup owner, renter and outsider")
		a = s.Connect(owner)
		b = s.Connect(renter)
		c = s.Connect(outsider)
	})

	s.Run("Step 2: Message reaches both participants once", func() {
		s.Require().NoError(a.Session.JoinChat(ctx, chatID))
		s.Require().NoError(b.Session.JoinChat(ctx, chatID))
		time.Sleep(100 * time.Millisecond)

		s.Require().NoError(a.Session.Emit(ctx, event.NewMessage, map[string]string{
			"chatId": chatID, "participantA": owner, "participantB": renter, "text": "hi",
		}))
		s.Expect(a, event.MessageReceived)
		s.Expect(b, event.MessageReceived)
		s.Quiet(a)
		s.Quiet(b)
		s.Quiet(c)
	})

	s.Run("Step 3: Rental handshake", func() {
		s.Require().NoError(a.Session.Emit(ctx, event.MarkAsRented, event.MarkRentedPayload{
			ChatID: chatID, OwnerID: owner, RenterID: renter, RenterInfo: json.RawMessage(`{"dates":"2026-11-01/2026-11-07"}`),
		}))
		required := s.Expect(b, event.ConfirmationRequired)
		s.Require().Contains(string(required.Payload), chatID)

		s.Require().NoError(b.Session.Emit(ctx, event.ConfirmationApproved, owner))
		rented := s.Expect(a, event.Rented)
		s.Require().JSONEq(`{"chatId":"`+chatID+`"}`, string(rented.Payload))

		s.Require().NoError(b.Session.Emit(ctx, event.ConfirmationApproved, owner))
		s.Quiet(a)
		s.Quiet(c)
	})
}
