package apperr

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidState       = errors.New("invalid state")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrMalformedBackup    = errors.New("malformed backup")
	ErrBusy               = errors.New("workspace busy")
)
