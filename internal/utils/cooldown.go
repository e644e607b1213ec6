package utils

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Cooldowns rate limits each user to one invocation per command per window.
// A nil *Cooldowns allows everything.
type Cooldowns struct {
	mu        sync.Mutex
	window    time.Duration
	overrides map[string]time.Duration
	limiters  map[string]*rate.Limiter
	now       func() time.Time
}

func NewCooldowns(window time.Duration) *Cooldowns {
	return &Cooldowns{
		window:    window,
		overrides: make(map[string]time.Duration),
		limiters:  make(map[string]*rate.Limiter),
		now:       time.Now,
	}
}

// Override sets a different window for one command
func (c *Cooldowns) Override(command string, window time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overrides[command] = window
}

// Allow consumes the user's slot for command. When the user is still cooling
// down it returns the remaining wait and false.
func (c *Cooldowns) Allow(command, userID string) (time.Duration, bool) {
	if c == nil {
		return 0, true
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	window := c.window
	if w, ok := c.overrides[command]; ok {
		window = w
	}
	if window <= 0 || userID == "" {
		return 0, true
	}

	key := command + ":" + userID
	lim, ok := c.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(window), 1)
		c.limiters[key] = lim
	}

	now := c.now()
	if lim.AllowN(now, 1) {
		return 0, true
	}
	r := lim.ReserveN(now, 1)
	wait := r.DelayFrom(now)
	r.CancelAt(now)
	return wait, false
}

// Prune drops limiters that have fully recovered. Returns how many were removed.
func (c *Cooldowns) Prune() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, lim := range c.limiters {
		if lim.TokensAt(now) >= 1 {
			delete(c.limiters, key)
			removed++
		}
	}
	return removed
}
