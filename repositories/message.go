//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"housing-chat/domain"
	"housing-chat/errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// IMessageRepository is the durable log of direct messages.
// It is append-only except for the read flag of each message.
type IMessageRepository interface {
	Append(ctx context.Context, senderID, receiverID domain.ParticipantID, body string) (domain.Message, error)
	Thread(ctx context.Context, a, b domain.ParticipantID) ([]domain.Message, error)
	ReadThread(ctx context.Context, viewerID, counterpartID domain.ParticipantID) ([]domain.Message, error)
	MarkRead(ctx context.Context, receiverID, senderID domain.ParticipantID) error
	Counterparts(ctx context.Context, userID domain.ParticipantID) ([]domain.ParticipantID, error)
	UnreadCount(ctx context.Context, receiverID, senderID domain.ParticipantID) (int, error)
	LastMessage(ctx context.Context, a, b domain.ParticipantID) (*domain.Message, error)
}

// Clock returns the wall-clock time used to stamp new messages.
type Clock func() time.Time

const (
	sequenceKey       = "dm:seq"
	sequenceBandwidth = 100
	messagePrefix     = "dm:msg:"
	threadPrefix      = "dm:thread:"
	unreadPrefix      = "dm:unread:"
	peerPrefix        = "dm:peer:"
	// Highest possible padded id, used to seek backward from the end of a prefix.
	maxPaddedID = "99999999999999999999"
)

// MessageRepository stores messages in BadgerDB with the following keys:
//
//	dm:msg:{id}                      the encoded message
//	dm:thread:{pair}:{id}            thread index, pair is the ordered couple of participants
//	dm:unread:{receiver}:{sender}:{id} one entry per message not yet read by its receiver
//	dm:peer:{user}:{counterpart}     counterpart index, value is the id of the last message
//
// Ids are zero padded to 20 digits so lexicographical order is numerical order.
// Participants are hex encoded so they never collide with the separator.
type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
	seq *badger.Sequence
	now Clock

	// mu is the serialization point of every write. Holding it while
	// assigning ids and timestamps keeps both in insertion order.
	mu     sync.Mutex
	lastAt time.Time
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, now Clock) (*MessageRepository, error) {
	if now == nil {
		now = time.Now
	}
	seq, err := db.GetSequence([]byte(sequenceKey), sequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("message sequence: %w", err)
	}
	repository := &MessageRepository{db: db, log: log, seq: seq, now: now}
	if repository.lastAt, err = repository.newestCreatedAt(); err != nil {
		_ = seq.Release()
		return nil, err
	}
	return repository, nil
}

// Close releases the leased ids. The badger handle stays open.
func (r *MessageRepository) Close() error {
	return r.seq.Release()
}

// Append persists a new unread message from sender to receiver and updates
// the thread, unread and counterpart indexes in the same transaction.
func (r *MessageRepository) Append(ctx context.Context, senderID, receiverID domain.ParticipantID, body string) (domain.Message, error) {
	if err := checkParticipants(senderID, receiverID); err != nil {
		return domain.Message{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next, err := r.seq.Next()
	if err != nil {
		return domain.Message{}, fmt.Errorf("next message id: %w", err)
	}
	message := domain.Message{
		ID:         domain.MessageID(next + 1),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       body,
		CreatedAt:  stamp(r.now(), r.lastAt),
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(messageKey(message.ID), EncodeMessage(message)); err != nil {
			return err
		}
		if err := txn.Set(threadKey(senderID, receiverID, message.ID), nil); err != nil {
			return err
		}
		if err := txn.Set(unreadKey(receiverID, senderID, message.ID), nil); err != nil {
			return err
		}
		last := encodeID(message.ID)
		if err := txn.Set(peerKey(senderID, receiverID), last); err != nil {
			return err
		}
		return txn.Set(peerKey(receiverID, senderID), last)
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("append message: %w", err)
	}
	r.lastAt = message.CreatedAt
	return message, nil
}

// Thread returns every message exchanged between a and b in chronological order.
func (r *MessageRepository) Thread(ctx context.Context, a, b domain.ParticipantID) ([]domain.Message, error) {
	if err := requireIdentity(ctx, a, b); err != nil {
		return nil, err
	}
	var messages []domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		messages, err = readThread(txn, a, b)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("read thread: %w", err)
	}
	return messages, nil
}

// ReadThread fetches the thread then marks the counterpart's messages to the
// viewer as read. Both steps run under the write lock so no message can be
// appended in between. The returned messages carry the read flags as they
// were before the transition.
func (r *MessageRepository) ReadThread(ctx context.Context, viewerID, counterpartID domain.ParticipantID) ([]domain.Message, error) {
	if err := requireIdentity(ctx, viewerID, counterpartID); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var messages []domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		messages, err = readThread(txn, viewerID, counterpartID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("read thread: %w", err)
	}
	if err = r.markRead(viewerID, counterpartID); err != nil {
		return nil, fmt.Errorf("read thread: %w", err)
	}
	return messages, nil
}

// MarkRead flags every unread message from sender to receiver as read.
// It is idempotent and succeeds when nothing matches.
func (r *MessageRepository) MarkRead(ctx context.Context, receiverID, senderID domain.ParticipantID) error {
	if err := requireIdentity(ctx, receiverID, senderID); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.markRead(receiverID, senderID); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}

// Counterparts lists, once each, the participants userID has exchanged messages with.
func (r *MessageRepository) Counterparts(ctx context.Context, userID domain.ParticipantID) ([]domain.ParticipantID, error) {
	if err := requireIdentity(ctx, userID); err != nil {
		return nil, err
	}
	prefix := peerKeyPrefix(userID)
	counterparts := make([]domain.ParticipantID, 0)
	err := r.db.View(func(txn *badger.Txn) error {
		return scanKeys(txn, prefix, func(key []byte) error {
			counterpart, err := decodeParticipant(key[len(prefix):])
			if err != nil {
				return err
			}
			counterparts = append(counterparts, counterpart)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list counterparts: %w", err)
	}
	return counterparts, nil
}

// UnreadCount counts messages from sender to receiver the receiver has not read yet.
func (r *MessageRepository) UnreadCount(ctx context.Context, receiverID, senderID domain.ParticipantID) (int, error) {
	if err := requireIdentity(ctx, receiverID, senderID); err != nil {
		return 0, err
	}
	count := 0
	err := r.db.View(func(txn *badger.Txn) error {
		return scanKeys(txn, unreadKeyPrefix(receiverID, senderID), func([]byte) error {
			count++
			return nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

// LastMessage returns the most recent message between a and b, or nil when
// they never exchanged any.
func (r *MessageRepository) LastMessage(ctx context.Context, a, b domain.ParticipantID) (*domain.Message, error) {
	if err := requireIdentity(ctx, a, b); err != nil {
		return nil, err
	}
	var last *domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(peerKey(a, b))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		var id domain.MessageID
		err = item.Value(func(val []byte) error {
			id, err = decodeID(val)
			return err
		})
		if err != nil {
			return err
		}
		message, err := getMessage(txn, id)
		if err != nil {
			return err
		}
		last = &message
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("last message: %w", err)
	}
	return last, nil
}

// newestCreatedAt restores the timestamp floor after a restart.
func (r *MessageRepository) newestCreatedAt() (time.Time, error) {
	var newest time.Time
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(messagePrefix)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		it.Seek(append(prefix, []byte(maxPaddedID)...))
		if !it.ValidForPrefix(prefix) {
			return nil
		}
		return it.Item().Value(func(val []byte) error {
			message, err := DecodeMessage(val)
			if err != nil {
				return err
			}
			newest = message.CreatedAt
			return nil
		})
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("restore newest message: %w", err)
	}
	return newest, nil
}

func readThread(txn *badger.Txn, a, b domain.ParticipantID) ([]domain.Message, error) {
	ids, err := collectIDs(txn, threadKeyPrefix(a, b))
	if err != nil {
		return nil, err
	}
	messages := make([]domain.Message, 0, len(ids))
	for _, id := range ids {
		message, err := getMessage(txn, id)
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	domain.SortThread(messages)
	return messages, nil
}

// markRead rewrites the pending messages through a write batch, which
// splits the work into as many transactions as the backlog needs. Each
// message is flagged before its unread entry is removed, so an interrupted
// batch leaves entries that the next call marks again. Callers hold r.mu.
func (r *MessageRepository) markRead(receiverID, senderID domain.ParticipantID) error {
	var pending []domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		ids, err := collectIDs(txn, unreadKeyPrefix(receiverID, senderID))
		if err != nil {
			return err
		}
		pending = make([]domain.Message, 0, len(ids))
		for _, id := range ids {
			message, err := getMessage(txn, id)
			if err != nil {
				return err
			}
			pending = append(pending, message)
		}
		return nil
	})
	if err != nil || len(pending) == 0 {
		return err
	}

	wb := r.db.NewWriteBatch()
	defer wb.Cancel()
	for _, message := range pending {
		message.IsRead = true
		if err = wb.Set(messageKey(message.ID), EncodeMessage(message)); err != nil {
			return err
		}
		if err = wb.Delete(unreadKey(receiverID, senderID, message.ID)); err != nil {
			return err
		}
	}
	if err = wb.Flush(); err != nil {
		return err
	}
	r.log.Debug("Messages marked as read", "receiver", receiverID, "sender", senderID, "count", len(pending))
	return nil
}

func getMessage(txn *badger.Txn, id domain.MessageID) (domain.Message, error) {
	item, err := txn.Get(messageKey(id))
	if err != nil {
		return domain.Message{}, fmt.Errorf("message %d: %w", id, err)
	}
	var message domain.Message
	err = item.Value(func(val []byte) error {
		message, err = DecodeMessage(val)
		return err
	})
	return message, err
}

// collectIDs reads the trailing ids of an index prefix.
func collectIDs(txn *badger.Txn, prefix []byte) ([]domain.MessageID, error) {
	var ids []domain.MessageID
	err := scanKeys(txn, prefix, func(key []byte) error {
		id, err := idFromKey(key)
		if err != nil {
			return err
		}
		ids = append(ids, id)
		return nil
	})
	return ids, err
}

func scanKeys(txn *badger.Txn, prefix []byte, fn func(key []byte) error) error {
	options := badger.DefaultIteratorOptions
	options.PrefetchValues = false
	options.Prefix = prefix
	it := txn.NewIterator(options)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if err := fn(it.Item().KeyCopy(nil)); err != nil {
			return err
		}
	}
	return nil
}

func checkParticipants(senderID, receiverID domain.ParticipantID) error {
	if senderID == "" || receiverID == "" {
		return errors.ErrInvalidParticipantID
	}
	if senderID == receiverID {
		return errors.ErrInvalidParticipants
	}
	return nil
}

func requireIdentity(ctx context.Context, ids ...domain.ParticipantID) error {
	for _, id := range ids {
		if id == "" {
			return errors.ErrInvalidParticipantID
		}
	}
	return ctx.Err()
}

// stamp truncates the monotonic reading so stored and returned times compare
// equal, and never goes back in time relative to the previous message.
func stamp(now, floor time.Time) time.Time {
	at := time.Unix(0, now.UnixNano()).UTC()
	if at.Before(floor) {
		return floor
	}
	return at
}

func encodeParticipant(p domain.ParticipantID) string {
	return hex.EncodeToString([]byte(p))
}

func decodeParticipant(b []byte) (domain.ParticipantID, error) {
	raw, err := hex.DecodeString(string(b))
	if err != nil {
		return "", fmt.Errorf("decode participant %q: %w", b, err)
	}
	return domain.ParticipantID(raw), nil
}

func pairOf(a, b domain.ParticipantID) string {
	ha, hb := encodeParticipant(a), encodeParticipant(b)
	if hb < ha {
		ha, hb = hb, ha
	}
	return ha + "-" + hb
}

func paddedID(id domain.MessageID) string {
	return fmt.Sprintf("%020d", uint64(id))
}

func messageKey(id domain.MessageID) []byte {
	return []byte(messagePrefix + paddedID(id))
}

func threadKeyPrefix(a, b domain.ParticipantID) []byte {
	return []byte(threadPrefix + pairOf(a, b) + ":")
}

func threadKey(a, b domain.ParticipantID, id domain.MessageID) []byte {
	return append(threadKeyPrefix(a, b), paddedID(id)...)
}

func unreadKeyPrefix(receiverID, senderID domain.ParticipantID) []byte {
	return []byte(unreadPrefix + encodeParticipant(receiverID) + ":" + encodeParticipant(senderID) + ":")
}

func unreadKey(receiverID, senderID domain.ParticipantID, id domain.MessageID) []byte {
	return append(unreadKeyPrefix(receiverID, senderID), paddedID(id)...)
}

func peerKeyPrefix(userID domain.ParticipantID) []byte {
	return []byte(peerPrefix + encodeParticipant(userID) + ":")
}

func peerKey(userID, counterpartID domain.ParticipantID) []byte {
	return append(peerKeyPrefix(userID), encodeParticipant(counterpartID)...)
}

func idFromKey(key []byte) (domain.MessageID, error) {
	if len(key) < len(maxPaddedID) {
		return 0, fmt.Errorf("malformed index key %q", key)
	}
	id, err := strconv.ParseUint(string(key[len(key)-len(maxPaddedID):]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed index key %q: %w", key, err)
	}
	return domain.MessageID(id), nil
}

func encodeID(id domain.MessageID) []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(id))
}

func decodeID(b []byte) (domain.MessageID, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("malformed message id of %d bytes", len(b))
	}
	return domain.MessageID(binary.BigEndian.Uint64(b)), nil
}
