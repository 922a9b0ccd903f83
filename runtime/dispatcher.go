package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"convocube/contract"
	"convocube/domain"
	"convocube/domain/event"
)

// FanoutDispatcher routes one outbound event to every live connection in
// its recipient set.
//
// It provides best-effort fan-out with no delivery guarantees, no queuing
// for offline recipients, and no retries. An offline recipient observes
// the message later only through persisted history, which is a separate
// concern. Delivery attempts are independent: one slow or dead sink never
// affects the others.
//
// FanoutDispatcher is safe for concurrent use by multiple goroutines.
type FanoutDispatcher struct {
	log         *slog.Logger
	registry    contract.IConnectionRegistry
	resolver    contract.ITargetResolver
	pushTimeout time.Duration
}

func NewFanoutDispatcher(log *slog.Logger, registry contract.IConnectionRegistry,
	resolver contract.ITargetResolver, pushTimeout time.Duration) *FanoutDispatcher {
	return &FanoutDispatcher{
		log:         log,
		registry:    registry,
		resolver:    resolver,
		pushTimeout: pushTimeout,
	}
}

// Dispatch resolves the destination and fans the built event out to the
// recipient set. The build callback receives the resolved target so the
// caller can shape group metadata (isGroup, groupName) onto the event.
// It returns the number of live recipients actually reached.
func (d *FanoutDispatcher) Dispatch(ctx context.Context, sender domain.UserID,
	destination domain.ChatID, build func(target domain.ChatTarget) event.ServerEvent) int {
	target := d.resolver.Resolve(ctx, destination)
	return d.Fanout(ctx, sender, target, build(target))
}

// Fanout pushes evt to every member of target except the sender.
// Offline recipients are silently skipped.
func (d *FanoutDispatcher) Fanout(ctx context.Context, sender domain.UserID,
	target domain.ChatTarget, evt event.ServerEvent) int {
	delivered := 0
	for _, recipient := range target.Recipients(sender) {
		if d.PushTo(ctx, recipient, evt) {
			delivered++
		}
	}
	return delivered
}

// PushTo delivers one event to a single user's live connection, if any.
// The push is bounded by the configured timeout so a stalled sink cannot
// hold up the dispatch loop.
func (d *FanoutDispatcher) PushTo(ctx context.Context, user domain.UserID, evt event.ServerEvent) bool {
	sink, ok := d.registry.Lookup(user)
	if !ok {
		d.log.Debug(fmt.Sprintf("User %s is offline, skipping %s", user, evt.EventName()))
		return false
	}
	pushCtx, cancel := context.WithTimeout(ctx, d.pushTimeout)
	defer cancel()
	if err := sink.Push(pushCtx, evt); err != nil {
		d.log.Warn("Failed to push event to connection",
			"user", user,
			"event", evt.EventName(),
			"error", err)
		return false
	}
	return true
}
