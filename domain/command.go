package domain

import "time"

// Command is a client intent that travels through the dispatch pipeline.
type Command interface {
	Origin() UserID
}

// SendMessageCommand carries an outbound chat message.
type SendMessageCommand struct {
	From       UserID
	To         ChatID
	Body       string
	MessageID  string
	ReplyTo    *string
	Attachment []byte
	At         time.Time
}

func (c SendMessageCommand) Origin() UserID { return c.From }

// TypingCommand signals that a user started (or refreshed) composing.
type TypingCommand struct {
	From UserID
	To   ChatID
}

func (c TypingCommand) Origin() UserID { return c.From }

// StopTypingCommand clears the typing flag ahead of its expiry.
type StopTypingCommand struct {
	From UserID
	To   ChatID
}

func (c StopTypingCommand) Origin() UserID { return c.From }

// MarkDeliveredCommand is a recipient ack that a message reached its device.
// Sender is the original author the ack is fanned back to.
type MarkDeliveredCommand struct {
	Sender    UserID
	Recipient UserID
	MessageID string
}

func (c MarkDeliveredCommand) Origin() UserID { return c.Recipient }

// MarkSeenCommand is a recipient ack that a message was read.
type MarkSeenCommand struct {
	Sender    UserID
	Recipient UserID
	MessageID string
}

func (c MarkSeenCommand) Origin() UserID { return c.Recipient }
