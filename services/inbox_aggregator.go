package services

import (
	"context"
	"fmt"
	"housing-chat/domain"
	"housing-chat/repositories"

	"github.com/samber/lo"
)

type InboxAggregator struct {
	resolver   *ConversationResolver
	repository repositories.IMessageRepository
}

func NewInboxAggregator(resolver *ConversationResolver, repository repositories.IMessageRepository) *InboxAggregator {
	return &InboxAggregator{resolver: resolver, repository: repository}
}

// Inbox lists the conversations of userID, most recently active first.
// It is read-only: nothing is marked as read.
func (a *InboxAggregator) Inbox(ctx context.Context, userID domain.ParticipantID) ([]domain.Conversation, error) {
	counterparts, err := a.resolver.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	conversations := make([]domain.Conversation, 0, len(counterparts))
	for _, counterpart := range counterparts {
		last, err := a.repository.LastMessage(ctx, userID, counterpart)
		if err != nil {
			return nil, fmt.Errorf("inbox of %s: %w", userID, err)
		}
		unread, err := a.repository.UnreadCount(ctx, userID, counterpart)
		if err != nil {
			return nil, fmt.Errorf("inbox of %s: %w", userID, err)
		}
		conversations = append(conversations, domain.Conversation{
			Counterpart: counterpart,
			LastMessage: last,
			UnreadCount: unread,
		})
	}
	domain.RankConversations(conversations)
	return conversations, nil
}

// UnreadTotal is the number of messages waiting for userID across all conversations.
func (a *InboxAggregator) UnreadTotal(ctx context.Context, userID domain.ParticipantID) (int, error) {
	conversations, err := a.Inbox(ctx, userID)
	if err != nil {
		return 0, err
	}
	return lo.SumBy(conversations, func(c domain.Conversation) int { return c.UnreadCount }), nil
}
