package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"convocube/domain"
	"convocube/domain/event"
)

// StatusTracker advances the per-message delivery state machine
// (sending → sent → delivered → seen) and fans status changes back to the
// original sender's connection only.
//
// Transitions are strictly monotonic and idempotent: an ack for a status
// the message already reached (or passed) produces no second fanout. An
// ack arriving before the message is even Sent is rejected as a no-op
// with a warning; we never advance a message that persistence has not
// confirmed yet.
//
// StatusTracker is safe for concurrent use by multiple goroutines.
type StatusTracker struct {
	mu         sync.Mutex
	log        *slog.Logger
	dispatcher *FanoutDispatcher
	statuses   map[string]domain.MessageStatus
}

func NewStatusTracker(log *slog.Logger, dispatcher *FanoutDispatcher) *StatusTracker {
	return &StatusTracker{
		log:        log,
		dispatcher: dispatcher,
		statuses:   make(map[string]domain.MessageStatus),
	}
}

// Track seeds the state machine at Sending the instant the sender emits
// the message. Re-tracking a known id is a no-op.
func (t *StatusTracker) Track(messageID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.statuses[messageID]; ok {
		return
	}
	t.statuses[messageID] = domain.StatusSending
}

// MarkSent records a successful persistence. It reports whether the
// transition actually happened.
func (t *StatusTracker) MarkSent(messageID string) bool {
	advanced, _ := t.advance(messageID, domain.StatusSent)
	return advanced
}

// MarkDelivered processes a recipient's delivered ack and, on a real
// transition, pushes msg-delivered to the sender. Duplicate acks fan out
// exactly once.
func (t *StatusTracker) MarkDelivered(ctx context.Context, messageID string, sender, recipient domain.UserID) {
	advanced, known := t.advance(messageID, domain.StatusDelivered)
	if !known || !advanced {
		return
	}
	t.dispatcher.PushTo(ctx, sender, event.MessageDelivered{To: recipient, MessageID: messageID})
}

// MarkSeen processes a recipient's seen ack analogously. Seen is accepted
// from both Sent and Delivered.
func (t *StatusTracker) MarkSeen(ctx context.Context, messageID string, sender, recipient domain.UserID) {
	advanced, known := t.advance(messageID, domain.StatusSeen)
	if !known || !advanced {
		return
	}
	t.dispatcher.PushTo(ctx, sender, event.MessageSeen{To: recipient, MessageID: messageID})
}

// Status returns the current lifecycle position of a tracked message.
func (t *StatusTracker) Status(messageID string) (domain.MessageStatus, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	status, ok := t.statuses[messageID]
	return status, ok
}

// advance applies one transition under the lock. The fanout to the sender
// happens outside the critical section, in the callers.
func (t *StatusTracker) advance(messageID string, next domain.MessageStatus) (advanced, known bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	current, ok := t.statuses[messageID]
	if !ok {
		t.log.Warn(fmt.Sprintf("Status ack for unknown message %s, dropping", messageID))
		return false, false
	}
	if current >= next {
		// Idempotence: the message already reached or passed this status.
		return false, true
	}
	if !current.CanAdvanceTo(next) {
		t.log.Warn("Out-of-order status ack rejected",
			"message_id", messageID,
			"current", current.String(),
			"requested", next.String())
		return false, true
	}
	t.statuses[messageID] = next
	return true, true
}
