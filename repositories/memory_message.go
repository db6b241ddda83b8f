package repositories

import (
	"context"
	"housing-chat/domain"
	"log/slog"
	"slices"
	"sync"
	"time"
)

type pairKey struct {
	low, high domain.ParticipantID
}

func newPairKey(a, b domain.ParticipantID) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{low: a, high: b}
}

type directedKey struct {
	receiver, sender domain.ParticipantID
}

// InMemoryMessageRepository keeps the whole log in process memory, indexed
// by participant pair. Nothing survives a restart.
type InMemoryMessageRepository struct {
	log *slog.Logger
	now Clock

	mu       sync.RWMutex
	lastAt   time.Time
	messages []domain.Message // messages[i] has id i+1
	threads  map[pairKey][]domain.MessageID
	unread   map[directedKey]map[domain.MessageID]struct{}
	peers    map[domain.ParticipantID]map[domain.ParticipantID]domain.MessageID
}

func NewInMemoryMessageRepository(log *slog.Logger, now Clock) *InMemoryMessageRepository {
	if now == nil {
		now = time.Now
	}
	return &InMemoryMessageRepository{
		log:     log,
		now:     now,
		threads: make(map[pairKey][]domain.MessageID),
		unread:  make(map[directedKey]map[domain.MessageID]struct{}),
		peers:   make(map[domain.ParticipantID]map[domain.ParticipantID]domain.MessageID),
	}
}

func (r *InMemoryMessageRepository) Append(ctx context.Context, senderID, receiverID domain.ParticipantID, body string) (domain.Message, error) {
	if err := checkParticipants(senderID, receiverID); err != nil {
		return domain.Message{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	message := domain.Message{
		ID:         domain.MessageID(len(r.messages) + 1),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       body,
		CreatedAt:  stamp(r.now(), r.lastAt),
	}
	r.messages = append(r.messages, message)
	r.lastAt = message.CreatedAt

	pair := newPairKey(senderID, receiverID)
	r.threads[pair] = append(r.threads[pair], message.ID)

	direction := directedKey{receiver: receiverID, sender: senderID}
	if r.unread[direction] == nil {
		r.unread[direction] = make(map[domain.MessageID]struct{})
	}
	r.unread[direction][message.ID] = struct{}{}

	r.setPeer(senderID, receiverID, message.ID)
	r.setPeer(receiverID, senderID, message.ID)
	return message, nil
}

func (r *InMemoryMessageRepository) Thread(ctx context.Context, a, b domain.ParticipantID) ([]domain.Message, error) {
	if err := requireIdentity(ctx, a, b); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.thread(a, b), nil
}

func (r *InMemoryMessageRepository) ReadThread(ctx context.Context, viewerID, counterpartID domain.ParticipantID) ([]domain.Message, error) {
	if err := requireIdentity(ctx, viewerID, counterpartID); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	messages := r.thread(viewerID, counterpartID)
	if marked := r.markRead(viewerID, counterpartID); marked > 0 {
		r.log.Debug("Messages marked as read", "receiver", viewerID, "sender", counterpartID, "count", marked)
	}
	return messages, nil
}

func (r *InMemoryMessageRepository) MarkRead(ctx context.Context, receiverID, senderID domain.ParticipantID) error {
	if err := requireIdentity(ctx, receiverID, senderID); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if marked := r.markRead(receiverID, senderID); marked > 0 {
		r.log.Debug("Messages marked as read", "receiver", receiverID, "sender", senderID, "count", marked)
	}
	return nil
}

func (r *InMemoryMessageRepository) Counterparts(ctx context.Context, userID domain.ParticipantID) ([]domain.ParticipantID, error) {
	if err := requireIdentity(ctx, userID); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	counterparts := make([]domain.ParticipantID, 0, len(r.peers[userID]))
	for counterpart := range r.peers[userID] {
		counterparts = append(counterparts, counterpart)
	}
	slices.Sort(counterparts)
	return counterparts, nil
}

func (r *InMemoryMessageRepository) UnreadCount(ctx context.Context, receiverID, senderID domain.ParticipantID) (int, error) {
	if err := requireIdentity(ctx, receiverID, senderID); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.unread[directedKey{receiver: receiverID, sender: senderID}]), nil
}

func (r *InMemoryMessageRepository) LastMessage(ctx context.Context, a, b domain.ParticipantID) (*domain.Message, error) {
	if err := requireIdentity(ctx, a, b); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.peers[a][b]
	if !ok {
		return nil, nil
	}
	last := r.messages[id-1]
	return &last, nil
}

func (r *InMemoryMessageRepository) thread(a, b domain.ParticipantID) []domain.Message {
	ids := r.threads[newPairKey(a, b)]
	messages := make([]domain.Message, 0, len(ids))
	for _, id := range ids {
		messages = append(messages, r.messages[id-1])
	}
	domain.SortThread(messages)
	return messages
}

func (r *InMemoryMessageRepository) markRead(receiverID, senderID domain.ParticipantID) int {
	direction := directedKey{receiver: receiverID, sender: senderID}
	pending := r.unread[direction]
	for id := range pending {
		r.messages[id-1].IsRead = true
	}
	delete(r.unread, direction)
	return len(pending)
}

func (r *InMemoryMessageRepository) setPeer(userID, counterpartID domain.ParticipantID, id domain.MessageID) {
	if r.peers[userID] == nil {
		r.peers[userID] = make(map[domain.ParticipantID]domain.MessageID)
	}
	r.peers[userID][counterpartID] = id
}
