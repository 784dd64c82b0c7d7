package browser

import (
	"errors"
	"fmt"

	"github.com/tormodhaugland/mtg/internal/objectid"
)

// Error kinds reported to the user. A result for a superseded browse is not
// an error; it is dropped.
var (
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrInvalidObjectID   = objectid.ErrInvalidObjectID
	ErrBrowseRejected    = errors.New("browse rejected")
	ErrBrowseFailed      = errors.New("browse failed")
	ErrBrowseTimeout     = errors.New("browse timed out")
)

// BrowseError ties an error kind to the container it happened in.
type BrowseError struct {
	Kind     error
	ObjectID string
	Err      error
}

func (e *BrowseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", e.Kind, e.ObjectID, e.Err)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.ObjectID)
}

func (e *BrowseError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
