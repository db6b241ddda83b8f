package repositories

import (
	"fmt"
	"housing-chat/domain"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the stored message. They follow protobuf wire rules so a
// message value can be decoded by any protobuf tooling with a matching schema.
const (
	fieldID         protowire.Number = 1
	fieldSenderID   protowire.Number = 2
	fieldReceiverID protowire.Number = 3
	fieldBody       protowire.Number = 4
	fieldCreatedAt  protowire.Number = 5
	fieldIsRead     protowire.Number = 6
)

// EncodeMessage serializes a message into its on-disk representation.
func EncodeMessage(m domain.Message) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldID, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.ID))
	b = protowire.AppendTag(b, fieldSenderID, protowire.BytesType)
	b = protowire.AppendString(b, string(m.SenderID))
	b = protowire.AppendTag(b, fieldReceiverID, protowire.BytesType)
	b = protowire.AppendString(b, string(m.ReceiverID))
	b = protowire.AppendTag(b, fieldBody, protowire.BytesType)
	b = protowire.AppendString(b, m.Body)
	b = protowire.AppendTag(b, fieldCreatedAt, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(m.CreatedAt.UnixNano()))
	if m.IsRead {
		b = protowire.AppendTag(b, fieldIsRead, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(true))
	}
	return b
}

// DecodeMessage is the inverse of EncodeMessage. Unknown fields are skipped.
func DecodeMessage(b []byte) (domain.Message, error) {
	var m domain.Message
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return domain.Message{}, fmt.Errorf("decode message tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case typ == protowire.VarintType && isVarintField(num):
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return domain.Message{}, fmt.Errorf("decode message field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			switch num {
			case fieldID:
				m.ID = domain.MessageID(v)
			case fieldCreatedAt:
				m.CreatedAt = time.Unix(0, protowire.DecodeZigZag(v)).UTC()
			case fieldIsRead:
				m.IsRead = protowire.DecodeBool(v)
			}
		case typ == protowire.BytesType && isBytesField(num):
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return domain.Message{}, fmt.Errorf("decode message field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			switch num {
			case fieldSenderID:
				m.SenderID = domain.ParticipantID(v)
			case fieldReceiverID:
				m.ReceiverID = domain.ParticipantID(v)
			case fieldBody:
				m.Body = v
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return domain.Message{}, fmt.Errorf("skip message field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return m, nil
}

func isVarintField(num protowire.Number) bool {
	return num == fieldID || num == fieldCreatedAt || num == fieldIsRead
}

func isBytesField(num protowire.Number) bool {
	return num == fieldSenderID || num == fieldReceiverID || num == fieldBody
}
