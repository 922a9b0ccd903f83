package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"convocube/domain"
	apperrors "convocube/errors"
)

type stubDirectory struct {
	group *domain.GroupRecord
	err   error
}

func (d stubDirectory) GetGroup(_ context.Context, _ domain.ChatID) (*domain.GroupRecord, error) {
	return d.group, d.err
}

func TestResolver_Known_Group(t *testing.T) {
	req := require.New(t)
	group := &domain.GroupRecord{
		ID:      domain.ChatID("g-friends"),
		Name:    "friends",
		Members: []domain.UserID{"alice", "bob", "clara"},
	}
	resolver := NewTargetResolver(stubDirectory{group: group}, slog.Default())

	// When the destination is a known group
	target := resolver.Resolve(context.Background(), group.ID)

	// Then the target carries group semantics and excludes the sender
	req.True(target.IsGroup())
	req.Equal("friends", target.GroupName())
	req.ElementsMatch([]domain.UserID{"bob", "clara"}, target.Recipients("alice"))
}

func TestResolver_Unknown_Id_Is_Individual(t *testing.T) {
	req := require.New(t)
	resolver := NewTargetResolver(stubDirectory{err: apperrors.ErrGroupNotFound}, slog.Default())

	// When the destination is not in the directory
	target := resolver.Resolve(context.Background(), domain.ChatID("bob"))

	// Then it resolves to a direct conversation with that user
	req.False(target.IsGroup())
	req.Equal([]domain.UserID{"bob"}, target.Recipients("alice"))
}

func TestResolver_Directory_Failure_Falls_Back_To_Individual(t *testing.T) {
	req := require.New(t)
	resolver := NewTargetResolver(stubDirectory{err: fmt.Errorf("directory down")}, slog.Default())

	// When the directory lookup fails transiently
	target := resolver.Resolve(context.Background(), domain.ChatID("bob"))

	// Then messaging degrades to individual semantics instead of erroring
	req.False(target.IsGroup())
	req.Equal([]domain.UserID{"bob"}, target.Recipients("alice"))
}
