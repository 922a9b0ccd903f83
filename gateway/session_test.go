package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"convocube/contract"
	"convocube/domain"
	"convocube/domain/event"
)

type stubCoordinator struct {
	mu       sync.Mutex
	sinks    map[domain.UserID]contract.ConnectionSink
	commands []domain.Command
	detached int
}

func newStubCoordinator() *stubCoordinator {
	return &stubCoordinator{sinks: make(map[domain.UserID]contract.ConnectionSink)}
}

func (c *stubCoordinator) Attach(user domain.UserID, sink contract.ConnectionSink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sinks[user] = sink
}

func (c *stubCoordinator) Detach(_ domain.UserID, _ contract.ConnectionSink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detached++
}

func (c *stubCoordinator) Dispatch(cmd domain.Command) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands = append(c.commands, cmd)
}

func (c *stubCoordinator) Sink(user domain.UserID) (contract.ConnectionSink, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sink, ok := c.sinks[user]
	return sink, ok
}

func (c *stubCoordinator) Commands() []domain.Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Command(nil), c.commands...)
}

func (c *stubCoordinator) Detached() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.detached
}

func dialTestGateway(t *testing.T) (*stubCoordinator, *websocket.Conn) {
	t.Helper()
	coordinator := newStubCoordinator()
	server := NewServer(slog.Default(), "", coordinator, 16)

	ts := httptest.NewServer(server.handleWS(context.Background()))
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return coordinator, conn
}

func sendFrame(t *testing.T, conn *websocket.Conn, eventName string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(Envelope{Event: eventName, Data: data}))
}

func TestSession_AddUser_Attaches_And_Receives_Events(t *testing.T) {
	req := require.New(t)
	coordinator, conn := dialTestGateway(t)

	// When the client announces its identity
	sendFrame(t, conn, "add-user", AddUserPayload{UserID: "alice"})

	var sink contract.ConnectionSink
	req.Eventually(func() bool {
		var ok bool
		sink, ok = coordinator.Sink("alice")
		return ok
	}, time.Second, 5*time.Millisecond)

	// When the fanout layer pushes an event into the session's sink
	err := sink.Push(context.Background(), event.MessageReceived{
		MessageID: "m1",
		Msg:       "hello",
		From:      "bob",
		Status:    "sent",
	})
	req.NoError(err)

	// Then the client reads it as a protocol frame
	req.NoError(conn.SetReadDeadline(time.Now().Add(time.Second)))
	var envelope Envelope
	req.NoError(conn.ReadJSON(&envelope))
	req.Equal("msg-recieve", envelope.Event)

	var received struct {
		MessageID string `json:"messageId"`
		Msg       string `json:"msg"`
	}
	req.NoError(json.Unmarshal(envelope.Data, &received))
	req.Equal("m1", received.MessageID)
	req.Equal("hello", received.Msg)
}

func TestSession_SendMsg_Becomes_A_Command(t *testing.T) {
	req := require.New(t)
	coordinator, conn := dialTestGateway(t)

	sendFrame(t, conn, "send-msg", SendMsgPayload{
		To:        "bob",
		From:      "alice",
		Msg:       "hello bob",
		MessageID: "m1",
	})

	req.Eventually(func() bool {
		return len(coordinator.Commands()) == 1
	}, time.Second, 5*time.Millisecond)

	cmd, ok := coordinator.Commands()[0].(domain.SendMessageCommand)
	req.True(ok)
	req.Equal(domain.UserID("alice"), cmd.From)
	req.Equal(domain.ChatID("bob"), cmd.To)
	req.Equal("hello bob", cmd.Body)
	req.Equal("m1", cmd.MessageID)
	req.False(cmd.At.IsZero())
}

func TestSession_Status_Acks_Route_Back_To_The_Author(t *testing.T) {
	req := require.New(t)
	coordinator, conn := dialTestGateway(t)

	// bob acknowledges alice's message: "to" names the author
	sendFrame(t, conn, "message-delivered", StatusAckPayload{
		To:        "alice",
		From:      "bob",
		MessageID: "m1",
	})
	sendFrame(t, conn, "message-seen", StatusAckPayload{
		To:        "alice",
		From:      "bob",
		MessageID: "m1",
	})

	req.Eventually(func() bool {
		return len(coordinator.Commands()) == 2
	}, time.Second, 5*time.Millisecond)

	delivered, ok := coordinator.Commands()[0].(domain.MarkDeliveredCommand)
	req.True(ok)
	req.Equal(domain.UserID("alice"), delivered.Sender)
	req.Equal(domain.UserID("bob"), delivered.Recipient)
	req.Equal("m1", delivered.MessageID)

	seen, ok := coordinator.Commands()[1].(domain.MarkSeenCommand)
	req.True(ok)
	req.Equal(domain.UserID("alice"), seen.Sender)
}

func TestSession_Malformed_Payload_Does_Not_Kill_The_Connection(t *testing.T) {
	req := require.New(t)
	coordinator, conn := dialTestGateway(t)

	// Given a frame missing its required messageId
	sendFrame(t, conn, "send-msg", map[string]any{"to": "bob", "from": "alice"})
	// And a frame for an event nobody knows
	sendFrame(t, conn, "self-destruct", map[string]any{})

	// When a valid frame follows on the same connection
	sendFrame(t, conn, "typing", TypingPayload{To: "bob", From: "alice"})

	// Then only the valid frame produced a command
	req.Eventually(func() bool {
		return len(coordinator.Commands()) == 1
	}, time.Second, 5*time.Millisecond)
	_, ok := coordinator.Commands()[0].(domain.TypingCommand)
	req.True(ok)
}

func TestSession_Close_Detaches(t *testing.T) {
	req := require.New(t)
	coordinator, conn := dialTestGateway(t)

	sendFrame(t, conn, "add-user", AddUserPayload{UserID: "alice"})
	req.Eventually(func() bool {
		_, ok := coordinator.Sink("alice")
		return ok
	}, time.Second, 5*time.Millisecond)

	req.NoError(conn.Close())

	req.Eventually(func() bool {
		return coordinator.Detached() == 1
	}, time.Second, 5*time.Millisecond)
}
