package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// DefaultCooldown is the minimum time between two gated actions of a user.
const DefaultCooldown = time.Hour

// Cooldown is a per-user "once per window" gate backed by a Store. Holding
// the gate is a TTL entry under cooldown:{userID}; when it expires the
// user may act again. With a shared store the gate holds across processes.
type Cooldown struct {
	store  Store
	window time.Duration
	now    func() time.Time
}

func NewCooldown(store Store, window time.Duration) *Cooldown {
	if window <= 0 {
		window = DefaultCooldown
	}
	return &Cooldown{store: store, window: window, now: time.Now}
}

func cooldownKey(userID string) string {
	return "cooldown:" + userID
}

// Acquire takes the gate for userID. It returns false and the remaining
// wait when the gate is already held.
func (c *Cooldown) Acquire(ctx context.Context, userID string) (bool, time.Duration, error) {
	stamp := []byte(strconv.FormatInt(c.now().Unix(), 10))
	ok, remaining, err := c.store.SetIfAbsent(ctx, cooldownKey(userID), stamp, c.window)
	if err != nil {
		return false, 0, fmt.Errorf("cache: acquiring cooldown for %s: %w", userID, err)
	}
	return ok, remaining, nil
}

// Release drops the gate early, e.g. when the gated action failed.
func (c *Cooldown) Release(ctx context.Context, userID string) error {
	return c.store.Delete(ctx, cooldownKey(userID))
}
