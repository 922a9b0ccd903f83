package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	apperrors "convocube/errors"
)

// Envelope is the frame every client event travels in: a kind
// discriminator plus the raw payload, decoded per handler.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// AddUserPayload announces the identity behind a fresh connection.
type AddUserPayload struct {
	UserID string `json:"userId" validate:"required"`
}

// SendMsgPayload carries an outbound message. Attachment is optional
// base64 content used only to classify the message type.
type SendMsgPayload struct {
	To         string  `json:"to" validate:"required"`
	From       string  `json:"from" validate:"required"`
	Msg        string  `json:"msg"`
	MessageID  string  `json:"messageId" validate:"required"`
	ReplyTo    *string `json:"replyTo,omitempty"`
	Attachment []byte  `json:"attachment,omitempty"`
}

// TypingPayload flags the start (or refresh) of composing in a chat.
// IsTyping is carried for wire compatibility; the event kind alone
// decides the action.
type TypingPayload struct {
	To       string `json:"to" validate:"required"`
	From     string `json:"from" validate:"required"`
	IsTyping bool   `json:"isTyping"`
}

// StopTypingPayload clears the typing flag before it expires.
type StopTypingPayload struct {
	To   string `json:"to" validate:"required"`
	From string `json:"from" validate:"required"`
}

// StatusAckPayload is a recipient acknowledgment for one message.
// To names the original sender the ack is routed back to.
type StatusAckPayload struct {
	To        string `json:"to" validate:"required"`
	From      string `json:"from" validate:"required"`
	MessageID string `json:"messageId" validate:"required"`
}

// decodePayload unmarshals and validates one payload. Anything wrong
// with the frame surfaces as ErrPayloadInvalid so the session can log
// and skip it without tearing the connection down.
func decodePayload[T any](validate *validator.Validate, raw json.RawMessage, out *T) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrPayloadInvalid, err)
	}
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrPayloadInvalid, err)
	}
	return nil
}
