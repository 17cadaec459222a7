package client

import "rent-hub/domain/event"

// Observer is one consumer of the session events, typically a UI surface.
// Closing it removes its listeners and nothing else.
type Observer struct {
	session  *Session
	id       int
	handlers map[event.Name][]Handler
}

// On registers h for the named event. Handlers run on the session read loop,
// one event at a time, in arrival order.
func (o *Observer) On(name event.Name, h Handler) *Observer {
	o.session.mu.Lock()
	defer o.session.mu.Unlock()
	o.handlers[name] = append(o.handlers[name], h)
	return o
}

func (o *Observer) Close() {
	o.session.detach(o)
}
