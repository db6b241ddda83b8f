package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrInvalidParticipants  = fmt.Errorf("sender and receiver must be distinct participants")
	ErrInvalidParticipantID = fmt.Errorf("participant identity is missing")
	ErrEmptyMessage         = fmt.Errorf("message body is empty")
	ErrMessageTooLong       = fmt.Errorf("message body is too long")
	ErrSelfConversation     = fmt.Errorf("cannot open a conversation with yourself")
	ErrUnknownStoreBackend  = fmt.Errorf("unknown store backend")
)

// validationErrors are caller mistakes the presentation layer can correct,
// as opposed to storage failures which are fatal for the request.
var validationErrors = []error{
	ErrInvalidParticipants,
	ErrInvalidParticipantID,
	ErrEmptyMessage,
	ErrMessageTooLong,
	ErrSelfConversation,
}

// IsValidation reports whether err wraps one of the validation sentinels.
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if stderrors.Is(err, target) {
			return true
		}
	}
	return false
}
