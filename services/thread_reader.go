package services

import (
	"context"
	"fmt"
	"housing-chat/domain"
	"housing-chat/errors"
	"housing-chat/repositories"
	"log/slog"
)

type ThreadReader struct {
	repository       repositories.IMessageRepository
	log              *slog.Logger
	maxContentLength int
}

func NewThreadReader(repository repositories.IMessageRepository, log *slog.Logger, maxContentLength int) *ThreadReader {
	return &ThreadReader{repository: repository, log: log, maxContentLength: maxContentLength}
}

// OpenThread returns the conversation between viewer and counterpart, then
// marks the counterpart's messages to the viewer as read. The returned
// messages reflect the state before that transition.
func (t *ThreadReader) OpenThread(ctx context.Context, viewerID, counterpartID domain.ParticipantID) ([]domain.Message, error) {
	if viewerID == "" || counterpartID == "" {
		return nil, errors.ErrInvalidParticipantID
	}
	if viewerID == counterpartID {
		return nil, errors.ErrSelfConversation
	}
	messages, err := t.repository.ReadThread(ctx, viewerID, counterpartID)
	if err != nil {
		t.log.Error("Unable to open thread", "viewer", viewerID, "counterpart", counterpartID, "error", err)
		return nil, fmt.Errorf("open thread: %w", err)
	}
	return messages, nil
}

// Send stores a trimmed, non-empty message from sender to receiver.
func (t *ThreadReader) Send(ctx context.Context, senderID, receiverID domain.ParticipantID, body string) (domain.Message, error) {
	trimmed, err := ValidateSend(senderID, receiverID, body, t.maxContentLength)
	if err != nil {
		t.log.Debug("Message rejected", "sender", senderID, "receiver", receiverID, "reason", err)
		return domain.Message{}, err
	}
	message, err := t.repository.Append(ctx, senderID, receiverID, trimmed)
	if err != nil {
		if errors.IsValidation(err) {
			t.log.Debug("Message rejected", "sender", senderID, "receiver", receiverID, "reason", err)
			return domain.Message{}, err
		}
		t.log.Error("Unable to store message", "sender", senderID, "receiver", receiverID, "error", err)
		return domain.Message{}, fmt.Errorf("send message: %w", err)
	}
	return message, nil
}
