package service

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"progman-api/internal/response"
)

// Broadcaster publishes an event to the members of a room.
// Broadcast failures never undo the write that triggered them.
type Broadcaster interface {
	Broadcast(ctx context.Context, room, event string, payload interface{}) error
}

type noopBroadcaster struct{}

// NewNoopBroadcaster returns a Broadcaster that drops every event
func NewNoopBroadcaster() Broadcaster {
	return noopBroadcaster{}
}

func (noopBroadcaster) Broadcast(context.Context, string, string, interface{}) error {
	return nil
}

// Clock returns the current time. Services use it to resolve "today".
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now()
}

func validationError(err error) *response.AppError {
	return response.NewValidationError(err.Error(), "")
}

func internalError(message string, err error) *response.AppError {
	return response.NewAppError(response.ErrCodeInternal, message, err.Error())
}

// notFoundOrInternal maps gorm.ErrRecordNotFound to NOT_FOUND and anything else to INTERNAL_ERROR
func notFoundOrInternal(err error, notFound, internal string) *response.AppError {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return response.NewNotFoundError(notFound, "")
	}
	return internalError(internal, err)
}

// passThrough keeps an AppError produced inside a transaction and wraps anything else
func passThrough(err error, internal string) error {
	var appErr *response.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return internalError(internal, err)
}
