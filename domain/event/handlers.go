package event

import "sync"

// Handler Each kind of event has his own handler
// Based on the Chain of responsibility pattern
type Handler interface {
	Handle(event Event)
}

// Counter keeps per-type totals shared by handlers.
type Counter struct {
	mu     sync.Mutex
	totals map[Type]int
}

func NewCounter() *Counter {
	return &Counter{totals: make(map[Type]int)}
}

func (c *Counter) Increment(t Type) {
	c.Add(t, 1)
}

func (c *Counter) Add(t Type, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totals[t] += n
}

func (c *Counter) Get(t Type) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totals[t]
}
