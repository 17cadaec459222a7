package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"rent-hub/client"
	"rent-hub/domain/event"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	HubURL   string        `env:"HUB_URL,default=ws://localhost:8080/ws"`
	Identity string        `env:"IDENTITY,required=true"`
	Token    string        `env:"IDENTITY_TOKEN"`
	Linger   time.Duration `env:"LINGER,default=5s"`
	LogLevel string        `env:"LOG_LEVEL,default=WARN"`
}

const usage = `commands:
  /join <chat>                     join a chat
  /leave <chat>                    leave a chat
  /msg <chat> <peer> <text>        send a message to peer in chat
  /rent <chat> <renter>            mark chat as rented to renter
  /approve <owner>                 approve the rental offered by owner
  /quit`

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := client.NewSession(log, client.WebsocketDialer{URL: config.HubURL}, client.WithLinger(config.Linger))
	defer func() { _ = session.Close() }()

	observer, err := session.Observe(ctx)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to hub at %s: %w", config.HubURL, err)
	}
	defer observer.Close()
	observer.
		On(event.Connected, func(json.RawMessage) {
			color.Green.Printf(">>> Connected as %s (type /help)\n", config.Identity)
		}).
		On(event.MessageReceived, func(p json.RawMessage) {
			var m struct {
				ChatID       string `json:"chatId"`
				ParticipantA string `json:"participantA"`
				Text         string `json:"text"`
			}
			_ = json.Unmarshal(p, &m)
			fmt.Printf("[%s] %s %s: %s\n", time.Now().Format(time.TimeOnly), color.Cyan.Sprint(m.ChatID), m.ParticipantA, m.Text)
		}).
		On(event.ConfirmationRequired, func(p json.RawMessage) {
			color.Yellow.Printf("Rental confirmation required: %s\n", p)
		}).
		On(event.Rented, func(p json.RawMessage) {
			color.Green.Printf("Rented: %s\n", p)
		}).
		On(event.Error, func(p json.RawMessage) {
			color.Red.Printf("Hub error: %s\n", p)
		})

	if err := session.Setup(ctx, config.Identity, config.Token); err != nil {
		return exitRuntime, fmt.Errorf("setup failed: %w", err)
	}

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return exitOK, nil
		case line, ok := <-lines:
			if !ok || strings.TrimSpace(line) == "/quit" {
				return exitOK, nil
			}
			if err := execute(ctx, session, config.Identity, line); err != nil {
				color.Red.Println(err)
			}
		}
	}
}

func execute(ctx context.Context, session *client.Session, identity, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	switch {
	case fields[0] == "/join" && len(fields) == 2:
		return session.JoinChat(ctx, fields[1])
	case fields[0] == "/leave" && len(fields) == 2:
		return session.LeaveChat(ctx, fields[1])
	case fields[0] == "/msg" && len(fields) >= 4:
		return session.Emit(ctx, event.NewMessage, map[string]any{
			"chatId":       fields[1],
			"participantA": identity,
			"participantB": fields[2],
			"text":         strings.Join(fields[3:], " "),
			"sentAt":       time.Now().UTC(),
		})
	case fields[0] == "/rent" && len(fields) == 3:
		return session.Emit(ctx, event.MarkAsRented, event.MarkRentedPayload{
			ChatID: fields[1], OwnerID: identity, RenterID: fields[2],
		})
	case fields[0] == "/approve" && len(fields) == 2:
		return session.Emit(ctx, event.ConfirmationApproved, fields[1])
	default:
		fmt.Println(usage)
		return nil
	}
}
