package services

import (
	stderrors "errors"
	"fmt"
	"housing-chat/domain"
	"housing-chat/errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type SendMessageRequest struct {
	SenderID   string `validate:"required"`
	ReceiverID string `validate:"required"`
	Body       string `validate:"required"`
}

// ValidateSend trims the body and maps validator failures to the error
// sentinels understood by the presentation layer. A maxLength of zero
// disables the length check.
func ValidateSend(senderID, receiverID domain.ParticipantID, body string, maxLength int) (string, error) {
	req := SendMessageRequest{
		SenderID:   string(senderID),
		ReceiverID: string(receiverID),
		Body:       strings.TrimSpace(body),
	}
	if err := validate.Struct(req); err != nil {
		var fieldErrors validator.ValidationErrors
		if stderrors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
			if fieldErrors[0].Field() == "Body" {
				return "", errors.ErrEmptyMessage
			}
			return "", errors.ErrInvalidParticipantID
		}
		return "", err
	}
	if maxLength > 0 {
		if err := validate.Var(req.Body, fmt.Sprintf("max=%d", maxLength)); err != nil {
			return "", fmt.Errorf("%w: limit is %d characters", errors.ErrMessageTooLong, maxLength)
		}
	}
	return req.Body, nil
}
