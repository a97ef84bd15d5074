package service

import (
	"errors"
	"fmt"
)

var (
	// ErrPageNotFound means no connected page matches the id.
	ErrPageNotFound = errors.New("page not found")
	// ErrConversationNotFound means no conversation matches the id.
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrForbidden means the conversation or page belongs to another operator.
	ErrForbidden = errors.New("not allowed for this operator")
	// ErrEmptyMessage rejects replies without text.
	ErrEmptyMessage = errors.New("message text is required")
)

// PersistenceError wraps a failed store write or read.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// SendError wraps a failed outbound Graph API call.
type SendError struct {
	Err error
}

func (e *SendError) Error() string { return "send message: " + e.Err.Error() }

func (e *SendError) Unwrap() error { return e.Err }
