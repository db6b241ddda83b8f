package services

import (
	"context"
	"fmt"
	"housing-chat/domain"
	"housing-chat/errors"
	"housing-chat/repositories"
	"slices"

	"github.com/samber/lo"
)

type ConversationResolver struct {
	repository repositories.IMessageRepository
}

func NewConversationResolver(repository repositories.IMessageRepository) *ConversationResolver {
	return &ConversationResolver{repository: repository}
}

// Resolve returns the distinct participants userID has sent to or received
// from, sorted, never including userID itself.
func (r *ConversationResolver) Resolve(ctx context.Context, userID domain.ParticipantID) ([]domain.ParticipantID, error) {
	if userID == "" {
		return nil, errors.ErrInvalidParticipantID
	}
	counterparts, err := r.repository.Counterparts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve counterparts of %s: %w", userID, err)
	}
	counterparts = lo.Without(lo.Uniq(counterparts), userID)
	slices.Sort(counterparts)
	return counterparts, nil
}
