package runtime

import (
	"log/slog"
	"sync"
	"time"

	"convocube/domain"
)

type typingKey struct {
	Chat domain.ChatID
	User domain.UserID
}

// TypingCoordinator maintains the per-(chat, user) typing flag with
// automatic expiry. A key is either absent or holds exactly one live
// timer; refreshing cancels the previous timer and installs a new one as
// a single locked operation. On expiry the coordinator invokes the
// injected callback, which synthesizes a stop-typing fanout exactly as if
// the client had sent it.
type TypingCoordinator struct {
	mu     sync.Mutex
	log    *slog.Logger
	expiry time.Duration
	timers map[typingKey]*time.Timer
	expire func(chat domain.ChatID, user domain.UserID)
}

func NewTypingCoordinator(log *slog.Logger, expiry time.Duration,
	expire func(chat domain.ChatID, user domain.UserID)) *TypingCoordinator {
	return &TypingCoordinator{
		log:    log,
		expiry: expiry,
		timers: make(map[typingKey]*time.Timer),
		expire: expire,
	}
}

// Refresh sets or extends the typing flag for (chat, user).
func (c *TypingCoordinator) Refresh(chat domain.ChatID, user domain.UserID) {
	key := typingKey{Chat: chat, User: user}

	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.timers[key]; ok {
		prev.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(c.expiry, func() {
		c.mu.Lock()
		current, ok := c.timers[key]
		if !ok || current != timer {
			// Cancelled or superseded by a fresher refresh while we
			// were waiting for the lock.
			c.mu.Unlock()
			return
		}
		delete(c.timers, key)
		c.mu.Unlock()
		c.expire(chat, user)
	})
	c.timers[key] = timer
}

// Stop clears the flag immediately, short-circuiting the expiry path.
// It reports whether the flag was actually set.
func (c *TypingCoordinator) Stop(chat domain.ChatID, user domain.UserID) bool {
	key := typingKey{Chat: chat, User: user}

	c.mu.Lock()
	defer c.mu.Unlock()

	timer, ok := c.timers[key]
	if !ok {
		return false
	}
	timer.Stop()
	delete(c.timers, key)
	return true
}

// CancelUser drops every typing flag owned by the user, without emitting
// synthetic events. Called on disconnect.
func (c *TypingCoordinator) CancelUser(user domain.UserID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, timer := range c.timers {
		if key.User == user {
			timer.Stop()
			delete(c.timers, key)
		}
	}
}

// Active reports whether the typing flag is currently set.
func (c *TypingCoordinator) Active(chat domain.ChatID, user domain.UserID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.timers[typingKey{Chat: chat, User: user}]
	return ok
}
