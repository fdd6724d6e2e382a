package display

import (
	"context"

	"github.com/okian/trophycase/pkg/logger"
)

// Subscribe appends s to the subscriber list. It returns false, and logs the
// refusal, when s is already subscribed or the list is full.
func (c *Cycle) Subscribe(s Subscriber) bool {
	if s == nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return false
	}
	if c.indexOf(s) >= 0 {
		c.log.Warn(context.Background(), "display subscriber already registered")
		return false
	}
	if len(c.subscribers) >= c.maxSubscribers {
		c.log.Warn(context.Background(), "display subscriber limit reached",
			logger.Int("max_subscribers", c.maxSubscribers))
		return false
	}
	c.subscribers = append(c.subscribers, s)
	return true
}

// Unsubscribe removes the first registration of s, keeping the order of the
// others. It reports whether s was registered.
func (c *Cycle) Unsubscribe(s Subscriber) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(s)
	if i < 0 {
		return false
	}
	c.subscribers = append(c.subscribers[:i:i], c.subscribers[i+1:]...)
	return true
}

// Subscribers returns the number of registered subscribers.
func (c *Cycle) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subscribers)
}

// indexOf compares by identity. Must be called with c.mu held.
func (c *Cycle) indexOf(s Subscriber) int {
	for i, have := range c.subscribers {
		if have == s {
			return i
		}
	}
	return -1
}
