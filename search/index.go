// Package search maintains the full-text index over persisted messages.
package search

import (
	"context"
	"log/slog"

	"github.com/blugelabs/bluge"

	"convocube/domain"
)

// MessageIndex wraps a Bluge writer. The writer is not safe for
// concurrent batches, so updates are serialized by the single writer
// instance Bluge maintains internally; Search opens a point-in-time
// reader per call.
type MessageIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewMessageIndex(writer *bluge.Writer, log *slog.Logger) *MessageIndex {
	return &MessageIndex{writer: writer, log: log}
}

// Index upserts one message document, keyed by the client message id.
func (i *MessageIndex) Index(msg domain.Message) error {
	doc := bluge.NewDocument(msg.ID).
		AddField(bluge.NewTextField("body", msg.Body).StoreValue()).
		AddField(bluge.NewKeywordField("chat", string(msg.Chat)).StoreValue()).
		AddField(bluge.NewKeywordField("sender", string(msg.Sender))).
		AddField(bluge.NewDateTimeField("created_at", msg.CreatedAt))
	return i.writer.Update(doc.ID(), doc)
}

// Search returns the ids of messages matching the terms, newest-scored
// first, optionally restricted to one chat.
func (i *MessageIndex) Search(ctx context.Context, terms string, chat domain.ChatID, limit int) ([]string, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			i.log.Warn("Failed to close index reader", "error", err)
		}
	}()

	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(terms).SetField("body"))
	if chat != "" {
		query.AddMust(bluge.NewTermQuery(string(chat)).SetField("chat"))
	}

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, err
	}

	var ids []string
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				ids = append(ids, string(value))
			}
			return true
		})
		if err != nil {
			return nil, err
		}
	}
	return ids, nil
}
