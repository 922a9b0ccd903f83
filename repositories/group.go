//go:generate go run go.uber.org/mock/mockgen -source=group.go -destination=../mocks/mock_group_repository.go -package=mocks
package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"convocube/domain"
	apperrors "convocube/errors"
)

// GroupRepository is the directory behind group chat resolution.
// Group ids carry a "g-" prefix so they can never collide with user ids;
// the resolver relies on the two namespaces being disjoint.
type GroupRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewGroupRepository(db *badger.DB, log *slog.Logger) *GroupRepository {
	return &GroupRepository{db: db, log: log}
}

type diskGroup struct {
	ID      domain.ChatID   `json:"id"`
	Name    string          `json:"name"`
	Members []domain.UserID `json:"members"`
}

// CreateGroup mints a new group id and persists the member list.
func (g *GroupRepository) CreateGroup(name string, members []domain.UserID) (domain.GroupRecord, error) {
	record := domain.GroupRecord{
		ID:      domain.ChatID("g-" + uuid.NewString()),
		Name:    name,
		Members: members,
	}
	bytes, err := json.Marshal(diskGroup{ID: record.ID, Name: record.Name, Members: record.Members})
	if err != nil {
		return domain.GroupRecord{}, err
	}
	err = g.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("group:"+string(record.ID)), bytes)
	})
	if err != nil {
		return domain.GroupRecord{}, err
	}
	return record, nil
}

// UpdateMembers replaces the member list of an existing group.
func (g *GroupRepository) UpdateMembers(id domain.ChatID, members []domain.UserID) error {
	return g.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("group:"+string(id)))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return apperrors.ErrGroupNotFound
			}
			return err
		}
		var dg diskGroup
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &dg)
		}); err != nil {
			return err
		}
		dg.Members = members
		bytes, err := json.Marshal(dg)
		if err != nil {
			return err
		}
		return txn.Set([]byte("group:"+string(id)), bytes)
	})
}

// GetGroup resolves a chat id to its group record. Returns
// ErrGroupNotFound when the id is not a group, which the resolver treats
// as individual semantics.
func (g *GroupRepository) GetGroup(_ context.Context, id domain.ChatID) (*domain.GroupRecord, error) {
	var dg diskGroup
	err := g.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("group:"+string(id)))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &dg)
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, apperrors.ErrGroupNotFound
		}
		return nil, fmt.Errorf("group lookup: %w", err)
	}
	return &domain.GroupRecord{ID: dg.ID, Name: dg.Name, Members: dg.Members}, nil
}
