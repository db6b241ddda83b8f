package services

import (
	"context"
	"housing-chat/domain"
	"housing-chat/errors"
	"housing-chat/repositories"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func newMessagingService(t *testing.T) *MessagingService {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		at = at.Add(time.Second)
		return at
	}
	return NewMessagingService(repositories.NewInMemoryMessageRepository(log, clock), log, 500)
}

func participant() domain.ParticipantID {
	return domain.ParticipantID(uuid.NewString())
}

func unreadWith(req *require.Assertions, inbox []domain.Conversation, counterpart domain.ParticipantID) int {
	conversation, ok := lo.Find(inbox, func(c domain.Conversation) bool { return c.Counterpart == counterpart })
	req.True(ok)
	return conversation.UnreadCount
}

func Test_Scenario_Three_Messages(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	service := newMessagingService(t)
	a, b := participant(), participant()

	_, err := service.Send(ctx, a, b, "hi")
	req.NoError(err)
	_, err = service.Send(ctx, b, a, "hello")
	req.NoError(err)
	_, err = service.Send(ctx, a, b, "how are you")
	req.NoError(err)

	inboxB, err := service.Inbox(ctx, b)
	req.NoError(err)
	req.Len(inboxB, 1)
	req.Equal(2, inboxB[0].UnreadCount)
	req.Equal("how are you", inboxB[0].LastMessage.Body)

	thread, err := service.OpenThread(ctx, b, a)
	req.NoError(err)
	req.Equal([]string{"hi", "hello", "how are you"},
		lo.Map(thread, func(m domain.Message, _ int) string { return m.Body }))

	inboxB, err = service.Inbox(ctx, b)
	req.NoError(err)
	req.Zero(unreadWith(req, inboxB, a))

	inboxA, err := service.Inbox(ctx, a)
	req.NoError(err)
	req.Equal(1, unreadWith(req, inboxA, b))

	// viewing the inbox does not mark anything as read
	inboxA, err = service.Inbox(ctx, a)
	req.NoError(err)
	req.Equal(1, unreadWith(req, inboxA, b))

	_, err = service.OpenThread(ctx, a, b)
	req.NoError(err)
	total, err := service.UnreadTotal(ctx, a)
	req.NoError(err)
	req.Zero(total)
}

func Test_Sent_Message_Is_Visible_Once_From_Both_Sides(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	service := newMessagingService(t)
	a, b := participant(), participant()

	sent, err := service.Send(ctx, a, b, "Is the house in Nyarutarama still for rent?")
	req.NoError(err)

	for _, viewer := range [][2]domain.ParticipantID{{a, b}, {b, a}} {
		thread, err := service.OpenThread(ctx, viewer[0], viewer[1])
		req.NoError(err)
		matches := lo.Filter(thread, func(m domain.Message, _ int) bool { return m.ID == sent.ID })
		req.Len(matches, 1)
	}
}

func Test_Sender_Never_Has_Own_Message_Unread(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	service := newMessagingService(t)
	a, b := participant(), participant()

	_, err := service.Send(ctx, a, b, "hi")
	req.NoError(err)

	totalA, err := service.UnreadTotal(ctx, a)
	req.NoError(err)
	req.Zero(totalA)
	totalB, err := service.UnreadTotal(ctx, b)
	req.NoError(err)
	req.Equal(1, totalB)
}

func Test_Inbox_Ranks_Most_Recent_First(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	service := newMessagingService(t)
	a, b, c, d := participant(), participant(), participant(), participant()

	_, err := service.Send(ctx, b, a, "first")
	req.NoError(err)
	_, err = service.Send(ctx, a, c, "second")
	req.NoError(err)
	_, err = service.Send(ctx, d, a, "third")
	req.NoError(err)
	_, err = service.Send(ctx, a, b, "fourth")
	req.NoError(err)

	inbox, err := service.Inbox(ctx, a)
	req.NoError(err)
	req.Equal([]domain.ParticipantID{b, d, c},
		lo.Map(inbox, func(c domain.Conversation, _ int) domain.ParticipantID { return c.Counterpart }))
	for i := 1; i < len(inbox); i++ {
		req.False(inbox[i].LastMessage.CreatedAt.After(inbox[i-1].LastMessage.CreatedAt))
	}
}

func Test_User_Without_Messages(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	service := newMessagingService(t)

	inbox, err := service.Inbox(ctx, participant())
	req.NoError(err)
	req.Empty(inbox)
}

func Test_Validation_Errors(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	service := newMessagingService(t)
	a, b := participant(), participant()

	_, err := service.OpenThread(ctx, a, a)
	req.ErrorIs(err, errors.ErrSelfConversation)

	_, err = service.Send(ctx, a, b, "")
	req.ErrorIs(err, errors.ErrEmptyMessage)
	_, err = service.Send(ctx, a, b, "   ")
	req.ErrorIs(err, errors.ErrEmptyMessage)
	_, err = service.Send(ctx, a, a, "hi")
	req.ErrorIs(err, errors.ErrInvalidParticipants)

	inbox, err := service.Inbox(ctx, a)
	req.NoError(err)
	req.Empty(inbox)
}
