package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"convocube/domain"
	"convocube/domain/event"
)

type recordingSink struct {
	mu     sync.Mutex
	events []event.ServerEvent
}

func (s *recordingSink) Push(_ context.Context, e event.ServerEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) Events() []event.ServerEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.ServerEvent(nil), s.events...)
}

type failingSink struct{}

func (failingSink) Push(_ context.Context, _ event.ServerEvent) error {
	return fmt.Errorf("connection gone")
}

func newTestDispatcher(registry *Registry, group *domain.GroupRecord) *FanoutDispatcher {
	log := slog.Default()
	resolver := NewTargetResolver(stubDirectory{group: group}, log)
	return NewFanoutDispatcher(log, registry, resolver, 100*time.Millisecond)
}

func TestDispatcher_Group_Fanout_Excludes_Sender(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	group := &domain.GroupRecord{
		ID:      domain.ChatID("g-friends"),
		Name:    "friends",
		Members: []domain.UserID{"alice", "bob", "clara"},
	}
	alice, bob, clara := &recordingSink{}, &recordingSink{}, &recordingSink{}
	registry.Register("alice", alice)
	registry.Register("bob", bob)
	registry.Register("clara", clara)

	dispatcher := newTestDispatcher(registry, group)

	// When alice sends into the group
	delivered := dispatcher.Dispatch(context.Background(), "alice", group.ID,
		func(target domain.ChatTarget) event.ServerEvent {
			return event.MessageReceived{MessageID: "m1", From: "alice", IsGroup: target.IsGroup()}
		})

	// Then everyone but alice received exactly one event
	req.Equal(2, delivered)
	req.Empty(alice.Events())
	req.Len(bob.Events(), 1)
	req.Len(clara.Events(), 1)
}

func TestDispatcher_Offline_Recipient_Is_Skipped(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	group := &domain.GroupRecord{
		ID:      domain.ChatID("g-friends"),
		Members: []domain.UserID{"alice", "bob", "clara"},
	}
	bob := &recordingSink{}
	registry.Register("bob", bob)
	// clara is offline

	dispatcher := newTestDispatcher(registry, group)

	delivered := dispatcher.Dispatch(context.Background(), "alice", group.ID,
		func(domain.ChatTarget) event.ServerEvent {
			return event.MessageReceived{MessageID: "m1", From: "alice"}
		})

	// Then delivery is best-effort: online members only, no error
	req.Equal(1, delivered)
	req.Len(bob.Events(), 1)
}

func TestDispatcher_Dead_Sink_Does_Not_Affect_Others(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	group := &domain.GroupRecord{
		ID:      domain.ChatID("g-friends"),
		Members: []domain.UserID{"alice", "bob", "clara"},
	}
	clara := &recordingSink{}
	registry.Register("bob", failingSink{})
	registry.Register("clara", clara)

	dispatcher := newTestDispatcher(registry, group)

	delivered := dispatcher.Dispatch(context.Background(), "alice", group.ID,
		func(domain.ChatTarget) event.ServerEvent {
			return event.MessageReceived{MessageID: "m1", From: "alice"}
		})

	// Then the healthy recipient still got the event
	req.Equal(1, delivered)
	req.Len(clara.Events(), 1)
}

func TestDispatcher_PushTo_Offline_User(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	dispatcher := newTestDispatcher(registry, nil)

	ok := dispatcher.PushTo(context.Background(), "ghost", event.MessageSeen{MessageID: "m1"})

	req.False(ok)
}
