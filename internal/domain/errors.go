package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("article not found")
	ErrInvalidCategory     = errors.New("invalid category")
	ErrInvalidArticle      = errors.New("invalid article")
	ErrDuplicateExternalID = errors.New("article id already exists")
	ErrCacheMiss           = errors.New("cache miss")
	ErrSyncInProgress      = errors.New("sync already in progress")
	// ErrUnexpectedFeedFormat marks an upstream answer without the expected envelope.
	ErrUnexpectedFeedFormat = errors.New("unexpected feed response format")
)

func invalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidArticle, reason)
}
