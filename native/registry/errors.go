package registry

import (
	"errors"
	"fmt"
)

// Host error codes surfaced verbatim to callers.
const (
	CodeInvalidStory      = 400
	CodeInsufficientFunds = 402
	CodeUnauthorized      = 403
	CodeStoryNotFound     = 404
)

// Error is a registry failure carrying the numeric code the host contract
// exposes. Validation failures are detected before any state mutation, so an
// operation returning one of these left the state exactly as it found it.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("registry: %s (code %d)", e.Message, e.Code)
}

// Is matches any registry error with the same code, so callers can test
// against the sentinel values with errors.Is.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == other.Code
}

var (
	// ErrInvalidStory rejects a mint whose title length or royalty bound
	// checks fail.
	ErrInvalidStory = &Error{Code: CodeInvalidStory, Message: "invalid story"}
	// ErrInsufficientFunds rejects a tip with a zero amount.
	ErrInsufficientFunds = &Error{Code: CodeInsufficientFunds, Message: "amount must be positive"}
	// ErrUnauthorized rejects a transfer whose caller is not the named sender.
	ErrUnauthorized = &Error{Code: CodeUnauthorized, Message: "caller is not the sender"}
	// ErrStoryNotFound rejects operations on an unminted token id.
	ErrStoryNotFound = &Error{Code: CodeStoryNotFound, Message: "story not found"}
)

// CodeOf extracts the host error code from err, if it carries one.
func CodeOf(err error) (int, bool) {
	var regErr *Error
	if errors.As(err, &regErr) {
		return regErr.Code, true
	}
	return 0, false
}
