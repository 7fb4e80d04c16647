package chat

import (
	"errors"
	"fmt"
)

// Kind classifies a failure independently of which vendor produced it.
type Kind string

const (
	// KindUnauthenticated covers missing or rejected credentials.
	KindUnauthenticated Kind = "unauthenticated"
	// KindInvalidRequest covers malformed input the vendor refused.
	KindInvalidRequest Kind = "invalid_request"
	// KindRateLimited covers quota and throttling rejections.
	KindRateLimited Kind = "rate_limited"
	// KindUnavailable covers transport failures that never produced a
	// vendor response: connection refused, DNS, timeout. Responses with
	// an HTTP status classify as vendor-level kinds instead.
	KindUnavailable Kind = "unavailable"
	// KindVendor covers everything a vendor reported that fits no
	// other bucket, including unrecognized error types.
	KindVendor Kind = "vendor_error"
	// KindToolFailure marks a tool run that could not complete.
	KindToolFailure Kind = "tool_failure"
	// KindNotFound covers lookups of absent conversations or messages.
	KindNotFound Kind = "not_found"
)

// Error is the one error type crossing package boundaries. Vendor and
// HTTPStatus are informational; Kind drives handling.
type Error struct {
	Kind       Kind
	Vendor     string
	Message    string
	HTTPStatus int
}

func (e *Error) Error() string {
	if e.Vendor != "" {
		return fmt.Sprintf("%s: %s: %s", e.Vendor, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewError builds an Error without vendor context.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf unwraps err to its Kind. Errors that are not a *chat.Error
// report KindVendor.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindVendor
}

// Retryable reports whether the caller may retry the failed call.
// Only throttling and availability failures qualify; everything else
// would fail again the same way.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindRateLimited, KindUnavailable:
		return true
	}
	return false
}

// IsNotFound reports whether err is a missing-record failure.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}
