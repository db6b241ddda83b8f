package domain

import (
	"cmp"
	"slices"
)

// Conversation is the inbox view of a thread, materialized on demand.
// LastMessage is nil only when the thread is empty.
type Conversation struct {
	Counterpart ParticipantID
	LastMessage *Message
	UnreadCount int
}

// RankConversations sorts the inbox with the most recently active
// conversation first. Conversations without a last message go last,
// ties on created_at are broken by the highest message id.
func RankConversations(conversations []Conversation) {
	slices.SortStableFunc(conversations, func(a, b Conversation) int {
		switch {
		case a.LastMessage == nil && b.LastMessage == nil:
			return cmp.Compare(a.Counterpart, b.Counterpart)
		case a.LastMessage == nil:
			return 1
		case b.LastMessage == nil:
			return -1
		}
		if c := b.LastMessage.CreatedAt.Compare(a.LastMessage.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.LastMessage.ID, a.LastMessage.ID)
	})
}
