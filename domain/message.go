// Package domain contains core concepts of the direct messaging system.
// This file defines Message entities exchanged between two participants.
// Messages are immutable except for their read flag.
package domain

import "time"

// ParticipantID identifies a user able to send and receive messages.
type ParticipantID string

// MessageID is assigned by the store, strictly increasing in insertion order.
type MessageID uint64

// Message represents a direct message between two distinct participants.
type Message struct {
	ID         MessageID
	SenderID   ParticipantID
	ReceiverID ParticipantID
	Body       string
	CreatedAt  time.Time
	IsRead     bool
}

// Between reports whether the message belongs to the thread of a and b,
// whatever its direction.
func (m Message) Between(a, b ParticipantID) bool {
	return (m.SenderID == a && m.ReceiverID == b) ||
		(m.SenderID == b && m.ReceiverID == a)
}

// Counterpart returns the other participant of the message as seen by user.
func (m Message) Counterpart(user ParticipantID) ParticipantID {
	if m.SenderID == user {
		return m.ReceiverID
	}
	return m.SenderID
}

// UnreadBy reports whether the message still waits to be read by reader.
// A sender never has its own messages unread.
func (m Message) UnreadBy(reader ParticipantID) bool {
	return m.ReceiverID == reader && !m.IsRead
}

// Before is the thread ordering: created_at ascending, id ascending on ties.
func (m Message) Before(other Message) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.Before(other.CreatedAt)
	}
	return m.ID < other.ID
}
