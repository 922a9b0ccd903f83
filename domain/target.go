package domain

import "github.com/samber/lo"

type TargetKind int

const (
	TargetIndividual TargetKind = iota
	TargetGroup
)

// ChatTarget is the classified destination of a dispatch: a single peer
// or a group with its current member list. A target is resolved fresh for
// every dispatch and never cached beyond it, so membership changes take
// effect immediately.
type ChatTarget struct {
	Kind  TargetKind
	Peer  UserID
	Group *GroupRecord
}

func IndividualTarget(peer UserID) ChatTarget {
	return ChatTarget{Kind: TargetIndividual, Peer: peer}
}

func GroupTarget(group *GroupRecord) ChatTarget {
	return ChatTarget{Kind: TargetGroup, Group: group}
}

func (t ChatTarget) IsGroup() bool {
	return t.Kind == TargetGroup
}

// GroupName returns the display name carried alongside group events,
// empty for individual targets.
func (t ChatTarget) GroupName() string {
	if t.Group == nil {
		return ""
	}
	return t.Group.Name
}

// Recipients computes the delivery set for an event emitted by sender.
// A group fanout never includes the sender's own id.
func (t ChatTarget) Recipients(sender UserID) []UserID {
	if t.Kind == TargetIndividual {
		return []UserID{t.Peer}
	}
	if t.Group == nil {
		return nil
	}
	return lo.Filter(t.Group.Members, func(member UserID, _ int) bool {
		return member != sender
	})
}
