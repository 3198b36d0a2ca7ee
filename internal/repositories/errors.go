package repositories

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrCopyNotFound         = errors.New("request copy not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrRequestClosed        = errors.New("request no longer takes acceptors")
	ErrCallNotFound         = errors.New("call not found")
	ErrCallInProgress       = errors.New("call already in progress")
)
