package domain

import (
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// MessageStatus is the strictly monotonic delivery lifecycle of a message.
type MessageStatus int

const (
	StatusSending MessageStatus = iota
	StatusSent
	StatusDelivered
	StatusSeen
)

func (s MessageStatus) String() string {
	switch s {
	case StatusSending:
		return "sending"
	case StatusSent:
		return "sent"
	case StatusDelivered:
		return "delivered"
	case StatusSeen:
		return "seen"
	}
	return "unknown"
}

// CanAdvanceTo reports whether next is a legal forward transition.
// Sent requires Sending, Delivered requires Sent. Seen is reachable from
// both Sent and Delivered: clients report seen directly when the chat is
// already open and the delivered ack never fired. A status never regresses.
func (s MessageStatus) CanAdvanceTo(next MessageStatus) bool {
	switch next {
	case StatusSent:
		return s == StatusSending
	case StatusDelivered:
		return s == StatusSent
	case StatusSeen:
		return s == StatusSent || s == StatusDelivered
	}
	return false
}

// MessageKind mirrors the messageType enum of the wire protocol.
type MessageKind string

const (
	KindText  MessageKind = "text"
	KindImage MessageKind = "image"
	KindVideo MessageKind = "video"
	KindFile  MessageKind = "file"
)

// DetectKind sniffs an attachment payload and maps its MIME type to a
// wire-level message kind. A nil payload is a plain text message.
func DetectKind(attachment []byte) MessageKind {
	if len(attachment) == 0 {
		return KindText
	}
	mime := mimetype.Detect(attachment)
	switch {
	case mime.Is("image/png"), mime.Is("image/jpeg"), mime.Is("image/gif"), mime.Is("image/webp"):
		return KindImage
	case mime.Is("video/mp4"), mime.Is("video/webm"), mime.Is("video/quicktime"):
		return KindVideo
	}
	return KindFile
}

// Message represents a chat message owned by a sender. ID is assigned by
// the sending client so it can render an optimistic local echo before the
// server acknowledges anything.
type Message struct {
	ID        string
	Sender    UserID
	Chat      ChatID
	Body      string
	Kind      MessageKind
	Lang      string
	ReplyTo   *string
	Status    MessageStatus
	CreatedAt time.Time
}
