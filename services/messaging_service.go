package services

import (
	"context"
	"housing-chat/domain"
	"housing-chat/repositories"
	"log/slog"
)

// IMessagingService is what the request layer calls once it has
// authenticated the viewer.
type IMessagingService interface {
	Send(ctx context.Context, senderID, receiverID domain.ParticipantID, body string) (domain.Message, error)
	OpenThread(ctx context.Context, viewerID, counterpartID domain.ParticipantID) ([]domain.Message, error)
	Inbox(ctx context.Context, userID domain.ParticipantID) ([]domain.Conversation, error)
	UnreadTotal(ctx context.Context, userID domain.ParticipantID) (int, error)
}

type MessagingService struct {
	threads *ThreadReader
	inbox   *InboxAggregator
}

func NewMessagingService(repository repositories.IMessageRepository, log *slog.Logger, maxContentLength int) *MessagingService {
	return &MessagingService{
		threads: NewThreadReader(repository, log, maxContentLength),
		inbox:   NewInboxAggregator(NewConversationResolver(repository), repository),
	}
}

func (s *MessagingService) Send(ctx context.Context, senderID, receiverID domain.ParticipantID, body string) (domain.Message, error) {
	return s.threads.Send(ctx, senderID, receiverID, body)
}

func (s *MessagingService) OpenThread(ctx context.Context, viewerID, counterpartID domain.ParticipantID) ([]domain.Message, error) {
	return s.threads.OpenThread(ctx, viewerID, counterpartID)
}

func (s *MessagingService) Inbox(ctx context.Context, userID domain.ParticipantID) ([]domain.Conversation, error) {
	return s.inbox.Inbox(ctx, userID)
}

func (s *MessagingService) UnreadTotal(ctx context.Context, userID domain.ParticipantID) (int, error) {
	return s.inbox.UnreadTotal(ctx, userID)
}
