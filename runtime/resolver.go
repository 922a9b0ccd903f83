package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"convocube/contract"
	"convocube/domain"
	apperrors "convocube/errors"
)

// TargetResolver classifies a destination id by consulting the group
// directory. The lookup happens on every dispatch, never cached, so a
// membership change is visible on the very next send.
type TargetResolver struct {
	directory contract.IGroupDirectory
	log       *slog.Logger
}

func NewTargetResolver(directory contract.IGroupDirectory, log *slog.Logger) *TargetResolver {
	return &TargetResolver{directory: directory, log: log}
}

// Resolve returns a Group target when the directory knows the id, and an
// Individual target otherwise. A transient directory failure degrades to
// Individual semantics: messaging stays best-effort rather than erroring
// out the whole dispatch.
func (r *TargetResolver) Resolve(ctx context.Context, destination domain.ChatID) domain.ChatTarget {
	group, err := r.directory.GetGroup(ctx, destination)
	if err != nil {
		if !errors.Is(err, apperrors.ErrGroupNotFound) {
			r.log.Warn(fmt.Sprintf("Group lookup failed for %s, falling back to individual", destination),
				"error", err)
		}
		return domain.IndividualTarget(domain.UserID(destination))
	}
	if group == nil {
		return domain.IndividualTarget(domain.UserID(destination))
	}
	return domain.GroupTarget(group)
}
