package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"rent-hub/domain"
	"rent-hub/domain/event"
	"rent-hub/errors"
	"rent-hub/runtime"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"golang.org/x/time/rate"
)

type Options struct {
	// OriginPatterns restricts cross-origin upgrades. Empty accepts any origin.
	OriginPatterns []string
	PingInterval   time.Duration
	PingTimeout    time.Duration
	WriteTimeout   time.Duration
	ReadLimit      int64
	InboundRate    rate.Limit
	InboundBurst   int
}

func DefaultOptions() Options {
	return Options{
		PingInterval: 25 * time.Second,
		PingTimeout:  6 * time.Second,
		WriteTimeout: 10 * time.Second,
		ReadLimit:    64 << 10,
		InboundRate:  20,
		InboundBurst: 40,
	}
}

// Server binds websocket connections to the hub.
// Each connection runs a read loop, handling inbound events one at a time in
// arrival order, and a write loop draining the session queue and pinging.
type Server struct {
	log  *slog.Logger
	hub  *runtime.Hub
	opts Options
}

func NewServer(log *slog.Logger, hub *runtime.Hub, opts Options) *Server {
	return &Server{log: log, hub: hub, opts: opts}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.ServeWS)
	mux.HandleFunc("GET /healthz", s.health)
	mux.HandleFunc("GET /debug/rooms", s.rooms)
	return mux
}

// ServeWS upgrades the request and blocks until the connection is gone.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: len(s.opts.OriginPatterns) == 0,
		OriginPatterns:     s.opts.OriginPatterns,
	})
	if err != nil {
		s.log.Warn("Websocket upgrade refused", "remote", r.RemoteAddr, "error", err)
		return
	}
	if s.opts.ReadLimit > 0 {
		conn.SetReadLimit(s.opts.ReadLimit)
	}

	session := s.hub.Connect()
	s.log.Info("Client connected", "connection_id", session.ID(), "remote", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	written := make(chan struct{})
	go func() {
		defer close(written)
		defer cancel()
		s.writePump(ctx, conn, session)
	}()
	s.readPump(ctx, conn, session)

	s.hub.Disconnect(session)
	<-written
	_ = conn.Close(websocket.StatusNormalClosure, "disconnected")
	s.log.Info("Client disconnected", "connection_id", session.ID())
}

// readPump returns when the transport fails or the session ends.
func (s *Server) readPump(ctx context.Context, conn *websocket.Conn, session *runtime.Session) {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if s.opts.InboundRate > 0 {
		limiter = rate.NewLimiter(s.opts.InboundRate, max(s.opts.InboundBurst, 1))
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				s.log.Debug("Read failed", "connection_id", session.ID(), "error", err)
			}
			return
		}

		if !limiter.Allow() {
			s.hub.Fail(ctx, session, errors.ErrRateLimited)
			continue
		}

		var envelope event.Envelope
		if err := json.Unmarshal(data, &envelope); err != nil || envelope.Event == "" {
			s.log.Warn("Undecodable frame", "connection_id", session.ID(), "size", len(data))
			s.hub.Fail(ctx, session, errors.ErrMalformedFrame)
			continue
		}

		s.hub.Handle(ctx, session, envelope)
		if session.State() == domain.Disconnected {
			return
		}
	}
}

// writePump is the only writer of conn. A failed ping means the peer is gone.
func (s *Server) writePump(ctx context.Context, conn *websocket.Conn, session *runtime.Session) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-session.Done():
			s.flush(ctx, conn, session)
			return
		case envelope := <-session.Outbound():
			if err := s.write(ctx, conn, envelope); err != nil {
				s.log.Debug("Write failed", "connection_id", session.ID(), "error", err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, s.opts.PingTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				s.log.Info("Liveness check failed", "connection_id", session.ID(), "error", err)
				return
			}
		}
	}
}

// flush writes what was queued before the session ended.
func (s *Server) flush(ctx context.Context, conn *websocket.Conn, session *runtime.Session) {
	for {
		select {
		case envelope := <-session.Outbound():
			if err := s.write(ctx, conn, envelope); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (s *Server) write(ctx context.Context, conn *websocket.Conn, envelope event.Envelope) error {
	writeCtx, cancel := context.WithTimeout(ctx, s.opts.WriteTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, envelope)
}

type healthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
	Rooms       int    `json:"rooms"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	connections, rooms := s.hub.Stats()
	writeJSON(w, healthResponse{Status: "ok", Connections: connections, Rooms: rooms})
}

func (s *Server) rooms(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.hub.Snapshot())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
