package service

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrEmptyContent      = errors.New("content must not be empty")
	ErrInvalidTarget     = errors.New("exactly one of recipient_id or group_id must be set")
	ErrInvalidType       = errors.New("invalid message type")
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrAlreadyMember     = errors.New("user is already a member of this group")
	ErrInvalidCursor     = errors.New("invalid cursor")
	ErrEmailTaken        = errors.New("email already registered")
	ErrInvalidLogin      = errors.New("invalid email or password")
	ErrEmptyName         = errors.New("group name is required")
	ErrEmptyAlertType    = errors.New("alert type is required")
)
