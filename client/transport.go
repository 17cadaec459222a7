package client

import (
	"context"
	"fmt"
	"net/http"
	"rent-hub/domain/event"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// Transport is one live connection to the hub.
type Transport interface {
	Read(ctx context.Context) (event.Envelope, error)
	Write(ctx context.Context, envelope event.Envelope) error
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context) (Transport, error)
}

// WebsocketDialer connects to the hub websocket endpoint, e.g. ws://localhost:8080/ws.
type WebsocketDialer struct {
	URL    string
	Header http.Header
}

func (d WebsocketDialer) Dial(ctx context.Context) (Transport, error) {
	conn, _, err := websocket.Dial(ctx, d.URL, &websocket.DialOptions{HTTPHeader: d.Header})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", d.URL, err)
	}
	return &websocketTransport{conn: conn}, nil
}

type websocketTransport struct {
	conn      *websocket.Conn
	closeOnce sync.Once
	closeErr  error
}

func (t *websocketTransport) Read(ctx context.Context) (event.Envelope, error) {
	var envelope event.Envelope
	err := wsjson.Read(ctx, t.conn, &envelope)
	return envelope, err
}

func (t *websocketTransport) Write(ctx context.Context, envelope event.Envelope) error {
	return wsjson.Write(ctx, t.conn, envelope)
}

func (t *websocketTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.conn.Close(websocket.StatusNormalClosure, "client session ended")
	})
	return t.closeErr
}
