// Package event defines the server→client events pushed over live
// connections. Field names and event names match the wire protocol the
// web client already speaks.
package event

import "convocube/domain"

// ServerEvent is anything the fanout layer can push to a live connection.
type ServerEvent interface {
	EventName() string
}

// MessageReceived delivers a chat message to a recipient.
type MessageReceived struct {
	MessageID   string        `json:"messageId"`
	Msg         string        `json:"msg"`
	From        domain.UserID `json:"from"`
	To          domain.ChatID `json:"to,omitempty"`
	Status      string        `json:"status"`
	IsGroup     bool          `json:"isGroup,omitempty"`
	GroupName   string        `json:"groupName,omitempty"`
	ReplyTo     *string       `json:"replyTo,omitempty"`
	MessageType string        `json:"messageType,omitempty"`
}

func (MessageReceived) EventName() string { return "msg-recieve" }

type UserTyping struct {
	From     domain.UserID `json:"from"`
	To       domain.ChatID `json:"to,omitempty"`
	IsTyping bool          `json:"isTyping"`
	IsGroup  bool          `json:"isGroup,omitempty"`
}

func (UserTyping) EventName() string { return "user-typing" }

type UserStoppedTyping struct {
	From    domain.UserID `json:"from"`
	To      domain.ChatID `json:"to,omitempty"`
	IsGroup bool          `json:"isGroup,omitempty"`
}

func (UserStoppedTyping) EventName() string { return "user-stopped-typing" }

// MessageDelivered is fanned back only to the original sender.
type MessageDelivered struct {
	To        domain.UserID `json:"to"`
	MessageID string        `json:"messageId"`
}

func (MessageDelivered) EventName() string { return "msg-delivered" }

// MessageSeen is fanned back only to the original sender.
type MessageSeen struct {
	To        domain.UserID `json:"to"`
	MessageID string        `json:"messageId"`
}

func (MessageSeen) EventName() string { return "msg-seen" }

// SendFailed informs the sender that persistence failed and the message
// is still stuck at sending.
type SendFailed struct {
	MessageID string `json:"messageId"`
	Reason    string `json:"reason"`
}

func (SendFailed) EventName() string { return "msg-failed" }
