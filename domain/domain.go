// Package domain contains core concepts of the chat system.
// No runtime, network, or UI logic should be added here.
package domain

// UserID is the opaque, stable identifier of an account.
type UserID string

// ChatID identifies the destination of an event: either a peer UserID
// or a group id. Group ids are minted with a "g-" prefix so the two id
// namespaces stay disjoint and a destination can never be both.
type ChatID string

// GroupRecord is the directory entry for a group chat.
type GroupRecord struct {
	ID      ChatID
	Name    string
	Members []UserID
}

// Contains reports whether the user belongs to the group.
func (g GroupRecord) Contains(user UserID) bool {
	for _, m := range g.Members {
		if m == user {
			return true
		}
	}
	return false
}
