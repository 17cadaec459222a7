package errors

import "fmt"

var (
	ErrWorkerPanic     = fmt.Errorf("worker panic")
	ErrInvalidPayload  = fmt.Errorf("invalid payload")
	ErrUnknownEvent    = fmt.Errorf("unknown event")
	ErrMalformedFrame  = fmt.Errorf("malformed frame")
	ErrRateLimited     = fmt.Errorf("too many events")
	ErrEmptyRoomKey    = fmt.Errorf("room key must not be empty")
	ErrMissingIdentity = fmt.Errorf("identity is required")

	ErrAlreadyIdentified = fmt.Errorf("connection already identified")
	ErrConnectionClosed  = fmt.Errorf("connection closed")
	ErrOutboundFull      = fmt.Errorf("outbound queue full")
	ErrInvalidToken      = fmt.Errorf("invalid identity token")
	ErrTokenMismatch     = fmt.Errorf("token subject does not match identity")
	ErrSessionClosed     = fmt.Errorf("client session closed")
	ErrNotConnected      = fmt.Errorf("client not connected")
)
