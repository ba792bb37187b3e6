package api

import (
	"errors"

	"text-rpg/backend/internal/conversation"
	"text-rpg/backend/internal/session"
	apperrors "text-rpg/backend/pkg/errors"
)

// toAppError maps domain errors onto HTTP errors. Anything else means the
// session stores could not be reached.
func toAppError(err error) error {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return apperrors.NewNotFoundError("SESSION_NOT_FOUND", "Session not found")
	case errors.Is(err, conversation.ErrTurnInFlight):
		return apperrors.NewConflictError("TURN_IN_FLIGHT", "A turn is already in progress")
	case errors.Is(err, conversation.ErrEmptyMessage):
		return apperrors.NewBadRequestError("EMPTY_MESSAGE", "Message content is required")
	default:
		return apperrors.NewServiceUnavailableError("SESSION_UNAVAILABLE", "Session could not be loaded").WithCause(err)
	}
}
