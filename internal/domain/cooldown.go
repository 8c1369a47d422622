// Package domain contains the core business entities and value objects.
package domain

import (
	"sync"
	"time"
)

// Cooldown holds a provider back after it has signalled a rate limit.
// A tripped provider is revived automatically once its wait hint elapses,
// so callers never have to clear it by hand.
type Cooldown struct {
	// until maps a throttled provider to the moment it may be used again.
	until map[ProviderType]time.Time

	// mu protects until.
	mu sync.RWMutex

	// now is injectable for tests.
	now func() time.Time
}

// NewCooldown creates an empty Cooldown.
func NewCooldown() *Cooldown {
	return &Cooldown{
		until: make(map[ProviderType]time.Time),
		now:   time.Now,
	}
}

// Trip marks the provider as throttled for wait. A zero or negative wait uses
// DefaultRetryAfter. An existing longer window is kept.
func (c *Cooldown) Trip(provider ProviderType, wait time.Duration) time.Time {
	if wait <= 0 {
		wait = DefaultRetryAfter
	}
	deadline := c.now().Add(wait)

	c.mu.Lock()
	defer c.mu.Unlock()
	if current, ok := c.until[provider]; ok && current.After(deadline) {
		return current
	}
	c.until[provider] = deadline
	return deadline
}

// Remaining returns how long the provider stays throttled. The second value
// is false when the provider is usable now.
func (c *Cooldown) Remaining(provider ProviderType) (time.Duration, bool) {
	now := c.now()

	c.mu.RLock()
	deadline, ok := c.until[provider]
	c.mu.RUnlock()
	if !ok {
		return 0, false
	}

	if !now.Before(deadline) {
		c.mu.Lock()
		// Re-check under the write lock; another Trip may have extended it.
		if d, still := c.until[provider]; still && !now.Before(d) {
			delete(c.until, provider)
		}
		c.mu.Unlock()
		return 0, false
	}
	return deadline.Sub(now), true
}

// Reset clears the throttle for provider.
func (c *Cooldown) Reset(provider ProviderType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.until, provider)
}

// Snapshot returns a copy of every active throttle window.
// Useful for the health endpoint.
func (c *Cooldown) Snapshot() map[ProviderType]time.Time {
	now := c.now()

	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make(map[ProviderType]time.Time, len(c.until))
	for p, deadline := range c.until {
		if now.Before(deadline) {
			result[p] = deadline
		}
	}
	return result
}
