package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound            = errors.New("entity not found")
	ErrAlreadyExists       = errors.New("entity already exists")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrInsufficientCredits = errors.New("insufficient credits")

	// Conversation state
	ErrStalePending = errors.New("pending image expired")
	ErrLockBusy     = errors.New("address is locked by another event")

	// External dependency failures, classified at the adapter boundary.
	ErrTransformTimeout     = errors.New("transform service timed out")
	ErrTransformRejected    = errors.New("transform service rejected the input")
	ErrTransformUnavailable = errors.New("transform service unavailable")
	ErrStorageUnavailable   = errors.New("media storage unavailable")

	ErrDuplicateEvent   = errors.New("event already processed")
	ErrUnsupportedMedia = errors.New("unsupported media type")
)
