package core

import "sync"

// Channel is an unbounded FIFO of events. Sending never blocks and receiving
// never waits, consumers poll it on their own schedule.
type Channel struct {
	mu    sync.Mutex
	queue []Event
}

// NewChannel creates an empty channel
func NewChannel() *Channel {
	return &Channel{}
}

// Send appends e
func (c *Channel) Send(e Event) {
	c.mu.Lock()
	c.queue = append(c.queue, e)
	c.mu.Unlock()
}

// TryReceive pops the oldest event, ok is false when the channel is empty
func (c *Channel) TryReceive() (e Event, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.queue) == 0 {
		return nil, false
	}
	e = c.queue[0]
	c.queue[0] = nil
	c.queue = c.queue[1:]
	return e, true
}

// Drain pops every event currently queued, oldest first
func (c *Channel) Drain() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	events := c.queue
	c.queue = nil
	return events
}

// Len returns the number of queued events
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}
