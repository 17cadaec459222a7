package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"rent-hub/auth"
	"rent-hub/client"
	"rent-hub/domain/event"
	"time"

	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"
)

type BaseHubSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseHubSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.HubURL == "" {
		s.T().Skip("HUB_URL not set, skipping end-to-end suite")
	}
}

// Step prints a colorized header for a scenario step.
func (s *BaseHubSuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// Participant is one identified client session with its received events.
type Participant struct {
	Session *client.Session
	Events  chan event.Envelope
}

// Connect opens a client session identified as identity and records every
// event it receives.
func (s *BaseHubSuite) Connect(identity string) *Participant {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session := client.NewSession(slog.Default(), client.WebsocketDialer{URL: s.Config.HubURL})
	s.T().Cleanup(func() { _ = session.Close() })

	p := &Participant{Session: session, Events: make(chan event.Envelope, 32)}
	observer, err := session.Observe(ctx)
	s.Require().NoError(err)
	for _, name := range []event.Name{event.Connected, event.MessageReceived, event.ConfirmationRequired, event.Rented, event.Error} {
		observer.On(name, func(payload json.RawMessage) {
			p.Events <- event.Envelope{Event: name, Payload: payload}
		})
	}

	token := ""
	if s.Config.TokenSecret != "" {
		token, err = auth.GenerateToken(s.Config.TokenSecret, identity, time.Minute)
		s.Require().NoError(err)
	}
	s.Require().NoError(session.Setup(ctx, identity, token))
	s.Expect(p, event.Connected)
	return p
}

// Expect waits for the next event of p and checks its name.
func (s *BaseHubSuite) Expect(p *Participant, name event.Name) event.Envelope {
	select {
	case e := <-p.Events:
		s.Require().Equal(name, e.Event, "payload: %s", e.Payload)
		return e
	case <-time.After(5 * time.Second):
		s.Require().Failf("timeout", "no %q received", name)
		return event.Envelope{}
	}
}

// Quiet checks that p receives nothing for a while.
func (s *BaseHubSuite) Quiet(p *Participant) {
	select {
	case e := <-p.Events:
		s.Require().Failf("unexpected event", "%s: %s", e.Event, e.Payload)
	case <-time.After(300 * time.Millisecond):
	}
}
