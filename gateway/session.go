package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"convocube/domain"
	"convocube/domain/event"
	apperrors "convocube/errors"
	"convocube/sink"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
)

// Session owns one WebSocket connection end to end: the read loop that
// turns frames into commands and the write loop that drains the
// connection's event sink. The session stays anonymous until the client
// announces itself with add-user; until then every other event is
// dropped.
type Session struct {
	log         *slog.Logger
	conn        *websocket.Conn
	coordinator Coordinator
	validate    *validator.Validate
	sink        *sink.Connection

	user domain.UserID
}

func NewSession(log *slog.Logger, conn *websocket.Conn, coordinator Coordinator,
	validate *validator.Validate, bufferSize int) *Session {
	return &Session{
		log:         log,
		conn:        conn,
		coordinator: coordinator,
		validate:    validate,
		sink:        sink.NewConnection(log, bufferSize),
	}
}

// Run blocks until the connection dies or the context is cancelled,
// then detaches the session from the registry.
func (s *Session) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.writeLoop(ctx)
	s.readLoop(ctx)

	s.coordinator.Detach(s.user, s.sink)
}

func (s *Session) readLoop(ctx context.Context) {
	s.conn.SetReadLimit(maxMessageSize)
	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		s.log.Warn("Failed to set read deadline", "error", err)
	}
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	handlers := map[string]func(ctx context.Context, raw json.RawMessage) error{
		"add-user":          s.onAddUser,
		"send-msg":          s.onSendMsg,
		"typing":            s.onTyping,
		"stop-typing":       s.onStopTyping,
		"message-delivered": s.onDelivered,
		"message-seen":      s.onSeen,
	}

	for {
		var envelope Envelope
		if err := s.conn.ReadJSON(&envelope); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("Unexpected connection close", "error", err)
			}
			return
		}

		handler, known := handlers[envelope.Event]
		if !known {
			s.log.Warn("Skipping client event",
				"event", envelope.Event,
				"error", apperrors.ErrUnknownEvent)
			continue
		}
		// Malformed payloads are logged and skipped; they never kill
		// the connection.
		if err := handler(ctx, envelope.Data); err != nil {
			s.log.Warn("Rejected client event",
				"event", envelope.Event,
				"error", err)
		}
	}
}

// writeLoop serializes every outbound event for this connection and
// keeps the connection alive with pings.
func (s *Session) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case e := <-s.sink.Events:
			if err := s.writeEvent(e); err != nil {
				s.log.Debug("Write failed, closing connection", "error", err)
				_ = s.conn.Close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = s.conn.Close()
				return
			}
		case <-ctx.Done():
			_ = s.conn.Close()
			return
		}
	}
}

func (s *Session) writeEvent(e event.ServerEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(Envelope{Event: e.EventName(), Data: data})
}

func (s *Session) onAddUser(_ context.Context, raw json.RawMessage) error {
	var payload AddUserPayload
	if err := decodePayload(s.validate, raw, &payload); err != nil {
		return err
	}
	s.user = domain.UserID(payload.UserID)
	s.coordinator.Attach(s.user, s.sink)
	return nil
}

func (s *Session) onSendMsg(_ context.Context, raw json.RawMessage) error {
	var payload SendMsgPayload
	if err := decodePayload(s.validate, raw, &payload); err != nil {
		return err
	}
	s.coordinator.Dispatch(domain.SendMessageCommand{
		From:       domain.UserID(payload.From),
		To:         domain.ChatID(payload.To),
		Body:       payload.Msg,
		MessageID:  payload.MessageID,
		ReplyTo:    payload.ReplyTo,
		Attachment: payload.Attachment,
		At:         time.Now().UTC(),
	})
	return nil
}

func (s *Session) onTyping(_ context.Context, raw json.RawMessage) error {
	var payload TypingPayload
	if err := decodePayload(s.validate, raw, &payload); err != nil {
		return err
	}
	s.coordinator.Dispatch(domain.TypingCommand{
		From: domain.UserID(payload.From),
		To:   domain.ChatID(payload.To),
	})
	return nil
}

func (s *Session) onStopTyping(_ context.Context, raw json.RawMessage) error {
	var payload StopTypingPayload
	if err := decodePayload(s.validate, raw, &payload); err != nil {
		return err
	}
	s.coordinator.Dispatch(domain.StopTypingCommand{
		From: domain.UserID(payload.From),
		To:   domain.ChatID(payload.To),
	})
	return nil
}

func (s *Session) onDelivered(_ context.Context, raw json.RawMessage) error {
	var payload StatusAckPayload
	if err := decodePayload(s.validate, raw, &payload); err != nil {
		return err
	}
	s.coordinator.Dispatch(domain.MarkDeliveredCommand{
		Sender:    domain.UserID(payload.To),
		Recipient: domain.UserID(payload.From),
		MessageID: payload.MessageID,
	})
	return nil
}

func (s *Session) onSeen(_ context.Context, raw json.RawMessage) error {
	var payload StatusAckPayload
	if err := decodePayload(s.validate, raw, &payload); err != nil {
		return err
	}
	s.coordinator.Dispatch(domain.MarkSeenCommand{
		Sender:    domain.UserID(payload.To),
		Recipient: domain.UserID(payload.From),
		MessageID: payload.MessageID,
	})
	return nil
}
