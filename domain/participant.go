// Package domain contains core concepts of the rental hub.
// This file defines connection lifecycle states.
// No runtime, network, or UI logic should be added here.
package domain

// SessionState is the lifecycle of one connection.
type SessionState int

const (
	Anonymous SessionState = iota
	Identified
	Disconnected
)

func (s SessionState) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Identified:
		return "identified"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}
