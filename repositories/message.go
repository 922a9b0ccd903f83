//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"

	"convocube/domain"
)

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// diskMessage is the stored shape of a message.
type diskMessage struct {
	ID      string             `json:"id"`
	Chat    domain.ChatID      `json:"chat"`
	Sender  domain.UserID      `json:"sender"`
	Body    string             `json:"body"`
	Kind    domain.MessageKind `json:"kind"`
	Lang    string             `json:"lang,omitempty"`
	ReplyTo *string            `json:"replyTo,omitempty"`
	Status  string             `json:"status"`
	At      int64              `json:"at"`
}

// StoreMessage persists a message in BadgerDB.
// The key is formatted as "msg:{chat_id}:{timestamp_padded}:{message_id}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using the client message id as a collision
//     disconnector if two messages arrive at the same nanosecond.
func (m MessageRepository) StoreMessage(msg domain.Message) error {
	key := fmt.Sprintf("msg:%s:%019d:%s",
		msg.Chat,
		msg.CreatedAt.UnixNano(),
		msg.ID,
	)
	bytes, err := json.Marshal(fromMessage(msg))
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// GetMessages retrieves messages for a chat using a reverse prefix scan.
// Thanks to the padded timestamp in the key, messages come back newest
// first. The returned cursor resumes the scan on the next page; it stops
// collecting once the configured limitMessages is reached.
func (m MessageRepository) GetMessages(chat domain.ChatID, cursor *string) ([]domain.Message, *string, error) {
	var rawMessages [][]byte
	var lastKey string
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%s:", chat)
		prefix := []byte(prefixStr)
		prefixLen := len(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past the newest possible timestamp, then walk backwards.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(rawMessages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.limitMessages))
				break
			}
			item := it.Item()
			// Memorize the cursor part of the actual key
			lastKey = string(item.Key()[prefixLen:])
			err := item.Value(func(value []byte) error {
				rawMessages = append(rawMessages, append([]byte(nil), value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	var messages []domain.Message
	for _, b := range rawMessages {
		msg, err := DecodeMessage(b)
		if err != nil {
			return nil, nil, err
		}
		messages = append(messages, msg)
	}
	return messages, &lastKey, nil
}

// DecodeMessage turns a stored value back into a domain message. Exposed
// for the store inspection tooling.
func DecodeMessage(raw []byte) (domain.Message, error) {
	var dm diskMessage
	if err := json.Unmarshal(raw, &dm); err != nil {
		return domain.Message{}, err
	}
	return toMessage(dm), nil
}

func fromMessage(msg domain.Message) diskMessage {
	return diskMessage{
		ID:      msg.ID,
		Chat:    msg.Chat,
		Sender:  msg.Sender,
		Body:    msg.Body,
		Kind:    msg.Kind,
		Lang:    msg.Lang,
		ReplyTo: msg.ReplyTo,
		Status:  msg.Status.String(),
		At:      msg.CreatedAt.UnixNano(),
	}
}

func toMessage(dm diskMessage) domain.Message {
	return domain.Message{
		ID:        dm.ID,
		Sender:    dm.Sender,
		Chat:      dm.Chat,
		Body:      dm.Body,
		Kind:      dm.Kind,
		Lang:      dm.Lang,
		ReplyTo:   dm.ReplyTo,
		Status:    parseStatus(dm.Status),
		CreatedAt: time.Unix(0, dm.At).UTC(),
	}
}

func parseStatus(s string) domain.MessageStatus {
	statuses := []domain.MessageStatus{
		domain.StatusSending,
		domain.StatusSent,
		domain.StatusDelivered,
		domain.StatusSeen,
	}
	status, found := lo.Find(statuses, func(st domain.MessageStatus) bool {
		return st.String() == s
	})
	if !found {
		return domain.StatusSending
	}
	return status
}
