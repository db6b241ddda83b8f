package repositories

import (
	"context"
	"housing-chat/domain"
	"housing-chat/errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

// stepClock returns at, then advances it by step on every call.
type stepClock struct {
	mu   sync.Mutex
	at   time.Time
	step time.Duration
}

func newStepClock(step time.Duration) *stepClock {
	return &stepClock{at: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), step: step}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	at := c.at
	c.at = c.at.Add(c.step)
	return at
}

type repositoryFactory func(t *testing.T, clock Clock) IMessageRepository

func newParticipant() domain.ParticipantID {
	return domain.ParticipantID(uuid.NewString())
}

func bodies(messages []domain.Message) []string {
	return lo.Map(messages, func(m domain.Message, _ int) string { return m.Body })
}

// runRepositoryContract checks the behaviour every store backend must share.
func runRepositoryContract(t *testing.T, newRepository repositoryFactory) {
	ctx := context.Background()

	t.Run("append rejects a participant messaging themself", func(t *testing.T) {
		req := require.New(t)
		repository := newRepository(t, nil)
		alice := newParticipant()

		_, err := repository.Append(ctx, alice, alice, "hi")
		req.ErrorIs(err, errors.ErrInvalidParticipants)

		_, err = repository.Append(ctx, "", alice, "hi")
		req.ErrorIs(err, errors.ErrInvalidParticipantID)

		counterparts, err := repository.Counterparts(ctx, alice)
		req.NoError(err)
		req.Empty(counterparts)
	})

	t.Run("append assigns increasing ids and timestamps", func(t *testing.T) {
		req := require.New(t)
		repository := newRepository(t, newStepClock(time.Second).Now)
		alice, bob := newParticipant(), newParticipant()

		first, err := repository.Append(ctx, alice, bob, "first")
		req.NoError(err)
		second, err := repository.Append(ctx, bob, alice, "second")
		req.NoError(err)

		req.Greater(second.ID, first.ID)
		req.True(second.CreatedAt.After(first.CreatedAt))
		req.False(first.IsRead)
		req.Equal(alice, first.SenderID)
		req.Equal(bob, first.ReceiverID)
	})

	t.Run("thread interleaves both directions chronologically", func(t *testing.T) {
		req := require.New(t)
		repository := newRepository(t, newStepClock(time.Minute).Now)
		alice, bob, clara := newParticipant(), newParticipant(), newParticipant()

		for _, m := range []struct {
			from, to domain.ParticipantID
			body     string
		}{
			{alice, bob, "hi"},
			{bob, alice, "hello"},
			{clara, alice, "unrelated"},
			{alice, bob, "how are you"},
		} {
			_, err := repository.Append(ctx, m.from, m.to, m.body)
			req.NoError(err)
		}

		fromAlice, err := repository.Thread(ctx, alice, bob)
		req.NoError(err)
		fromBob, err := repository.Thread(ctx, bob, alice)
		req.NoError(err)

		req.Equal([]string{"hi", "hello", "how are you"}, bodies(fromAlice))
		req.Equal(fromAlice, fromBob)
		for _, m := range fromAlice {
			req.True(m.Between(alice, bob))
		}
	})

	t.Run("thread is empty for strangers", func(t *testing.T) {
		req := require.New(t)
		repository := newRepository(t, nil)

		messages, err := repository.Thread(ctx, newParticipant(), newParticipant())
		req.NoError(err)
		req.Empty(messages)
	})

	t.Run("identical timestamps are ordered by id", func(t *testing.T) {
		req := require.New(t)
		repository := newRepository(t, newStepClock(0).Now)
		alice, bob := newParticipant(), newParticipant()

		for _, body := range []string{"one", "two", "three", "four"} {
			_, err := repository.Append(ctx, alice, bob, body)
			req.NoError(err)
		}

		messages, err := repository.Thread(ctx, bob, alice)
		req.NoError(err)
		req.Equal([]string{"one", "two", "three", "four"}, bodies(messages))
		req.True(messages[0].CreatedAt.Equal(messages[3].CreatedAt))
	})

	t.Run("timestamps never go backward", func(t *testing.T) {
		req := require.New(t)
		repository := newRepository(t, newStepClock(-time.Hour).Now)
		alice, bob := newParticipant(), newParticipant()

		first, err := repository.Append(ctx, alice, bob, "first")
		req.NoError(err)
		second, err := repository.Append(ctx, alice, bob, "second")
		req.NoError(err)

		req.False(second.CreatedAt.Before(first.CreatedAt))
	})

	t.Run("unread count only counts the counterpart's messages", func(t *testing.T) {
		req := require.New(t)
		repository := newRepository(t, nil)
		alice, bob := newParticipant(), newParticipant()

		_, err := repository.Append(ctx, alice, bob, "hi")
		req.NoError(err)

		sent, err := repository.UnreadCount(ctx, alice, bob)
		req.NoError(err)
		req.Zero(sent)

		received, err := repository.UnreadCount(ctx, bob, alice)
		req.NoError(err)
		req.Equal(1, received)
	})

	t.Run("mark read is idempotent and tolerates zero matches", func(t *testing.T) {
		req := require.New(t)
		repository := newRepository(t, nil)
		alice, bob := newParticipant(), newParticipant()

		req.NoError(repository.MarkRead(ctx, bob, alice))

		_, err := repository.Append(ctx, alice, bob, "hi")
		req.NoError(err)
		_, err = repository.Append(ctx, bob, alice, "hello")
		req.NoError(err)

		req.NoError(repository.MarkRead(ctx, bob, alice))
		req.NoError(repository.MarkRead(ctx, bob, alice))

		count, err := repository.UnreadCount(ctx, bob, alice)
		req.NoError(err)
		req.Zero(count)

		// the other direction is untouched
		count, err = repository.UnreadCount(ctx, alice, bob)
		req.NoError(err)
		req.Equal(1, count)

		messages, err := repository.Thread(ctx, alice, bob)
		req.NoError(err)
		req.True(messages[0].IsRead)
		req.False(messages[1].IsRead)
	})

	t.Run("read thread returns the pre transition state then marks read", func(t *testing.T) {
		req := require.New(t)
		repository := newRepository(t, newStepClock(time.Second).Now)
		alice, bob := newParticipant(), newParticipant()

		_, err := repository.Append(ctx, alice, bob, "hi")
		req.NoError(err)
		_, err = repository.Append(ctx, bob, alice, "hello")
		req.NoError(err)
		_, err = repository.Append(ctx, alice, bob, "how are you")
		req.NoError(err)

		count, err := repository.UnreadCount(ctx, bob, alice)
		req.NoError(err)
		req.Equal(2, count)

		messages, err := repository.ReadThread(ctx, bob, alice)
		req.NoError(err)
		req.Equal([]string{"hi", "hello", "how are you"}, bodies(messages))
		req.False(messages[0].IsRead)
		req.False(messages[2].IsRead)

		count, err = repository.UnreadCount(ctx, bob, alice)
		req.NoError(err)
		req.Zero(count)
		count, err = repository.UnreadCount(ctx, alice, bob)
		req.NoError(err)
		req.Equal(1, count)

		messages, err = repository.Thread(ctx, alice, bob)
		req.NoError(err)
		req.True(messages[0].IsRead)
		req.False(messages[1].IsRead)
		req.True(messages[2].IsRead)
	})

	t.Run("counterparts appear once whatever the direction", func(t *testing.T) {
		req := require.New(t)
		repository := newRepository(t, nil)
		alice, bob, clara := newParticipant(), newParticipant(), newParticipant()

		_, err := repository.Append(ctx, alice, bob, "hi")
		req.NoError(err)
		_, err = repository.Append(ctx, bob, alice, "hello")
		req.NoError(err)
		_, err = repository.Append(ctx, clara, alice, "hey")
		req.NoError(err)

		counterparts, err := repository.Counterparts(ctx, alice)
		req.NoError(err)
		req.ElementsMatch([]domain.ParticipantID{bob, clara}, counterparts)

		counterparts, err = repository.Counterparts(ctx, clara)
		req.NoError(err)
		req.Equal([]domain.ParticipantID{alice}, counterparts)
	})

	t.Run("last message follows the newest append", func(t *testing.T) {
		req := require.New(t)
		repository := newRepository(t, newStepClock(time.Second).Now)
		alice, bob := newParticipant(), newParticipant()

		last, err := repository.LastMessage(ctx, alice, bob)
		req.NoError(err)
		req.Nil(last)

		_, err = repository.Append(ctx, alice, bob, "hi")
		req.NoError(err)
		reply, err := repository.Append(ctx, bob, alice, "hello")
		req.NoError(err)

		last, err = repository.LastMessage(ctx, alice, bob)
		req.NoError(err)
		req.Equal(reply, *last)

		last, err = repository.LastMessage(ctx, bob, alice)
		req.NoError(err)
		req.Equal(reply, *last)
	})

	t.Run("concurrent writers never lose a message or a read transition", func(t *testing.T) {
		req := require.New(t)
		repository := newRepository(t, nil)
		alice, bob := newParticipant(), newParticipant()
		const perWriter = 50

		var wg sync.WaitGroup
		errs := make(chan error, 4*perWriter)
		for _, pair := range [][2]domain.ParticipantID{{alice, bob}, {bob, alice}} {
			wg.Add(1)
			go func(from, to domain.ParticipantID) {
				defer wg.Done()
				for i := 0; i < perWriter; i++ {
					if _, err := repository.Append(ctx, from, to, "ping"); err != nil {
						errs <- err
					}
				}
			}(pair[0], pair[1])
		}
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < perWriter/5; j++ {
					if err := repository.MarkRead(ctx, bob, alice); err != nil {
						errs <- err
					}
				}
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			req.NoError(err)
		}

		messages, err := repository.Thread(ctx, alice, bob)
		req.NoError(err)
		req.Len(messages, 2*perWriter)
		ids := lo.Map(messages, func(m domain.Message, _ int) domain.MessageID { return m.ID })
		req.Len(lo.Uniq(ids), 2*perWriter)
		for i := 1; i < len(messages); i++ {
			req.True(messages[i-1].Before(messages[i]))
		}

		req.NoError(repository.MarkRead(ctx, bob, alice))
		count, err := repository.UnreadCount(ctx, bob, alice)
		req.NoError(err)
		req.Zero(count)
		count, err = repository.UnreadCount(ctx, alice, bob)
		req.NoError(err)
		req.Equal(perWriter, count)
	})

	t.Run("cancelled context fails before touching the store", func(t *testing.T) {
		req := require.New(t)
		repository := newRepository(t, nil)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := repository.Append(cancelled, newParticipant(), newParticipant(), "hi")
		req.ErrorIs(err, context.Canceled)
		_, err = repository.Thread(cancelled, newParticipant(), newParticipant())
		req.ErrorIs(err, context.Canceled)
	})
}
