// Package errors provides standardized error handling patterns for CropVision components.
// It includes a category taxonomy for the media pipeline, standard error variables,
// and helper functions for consistent error wrapping and classification.
package errors

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Category represents the classification of pipeline errors. Categories are
// mutually exclusive: an error carries exactly one.
type Category int

const (
	// CategoryUnknown represents errors that fit no other category
	CategoryUnknown Category = iota
	// CategoryDecode represents raster decode failures in the transcoder
	CategoryDecode
	// CategoryEncode represents raster encode failures in the transcoder
	CategoryEncode
	// CategoryTimeout represents deadline expiry on an outbound call
	CategoryTimeout
	// CategoryTransport represents lower-level connectivity failures
	CategoryTransport
	// CategoryRateLimited represents a 429 response; carries a retry-after hint
	CategoryRateLimited
	// CategoryServiceUnavailable represents 5xx responses from the remote service
	CategoryServiceUnavailable
	// CategoryValidation represents non-429 4xx responses and bad local input
	CategoryValidation
)

// String returns the string representation of Category
func (c Category) String() string {
	switch c {
	case CategoryDecode:
		return "decode_failure"
	case CategoryEncode:
		return "encode_failure"
	case CategoryTimeout:
		return "timeout"
	case CategoryTransport:
		return "transport_unavailable"
	case CategoryRateLimited:
		return "rate_limited"
	case CategoryServiceUnavailable:
		return "service_unavailable"
	case CategoryValidation:
		return "validation_failure"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	// Transcoder errors
	ErrDecodeFailed      = errors.New("image decode failed")
	ErrEncodeFailed      = errors.New("image encode failed")
	ErrEmptyEncodeOutput = errors.New("encoder produced no output")
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// Connection and networking errors
	ErrNoConnection      = errors.New("no connection available")
	ErrConnectionTimeout = errors.New("connection timeout")
	ErrServiceDown       = errors.New("service unavailable")

	// Resource errors
	ErrRateLimited = errors.New("rate limited")

	// Data and configuration errors
	ErrInvalidData   = errors.New("invalid data format")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrKeyNotFound   = errors.New("key not found")
)

// ClassifiedError wraps an error with its category and origin context
type ClassifiedError struct {
	Category  Category
	Err       error
	Message   string
	Component string
	Operation string

	// RetryAfter is the server-advised cooldown for CategoryRateLimited
	// errors; zero for every other category.
	RetryAfter time.Duration
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// CategoryOf returns the category for an error. Unclassified errors are
// mapped by sentinel, with context cancellation treated as a timeout.
func CategoryOf(err error) Category {
	if err == nil {
		return CategoryUnknown
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Category
	}

	switch {
	case errors.Is(err, ErrDecodeFailed):
		return CategoryDecode
	case errors.Is(err, ErrEncodeFailed), errors.Is(err, ErrEmptyEncodeOutput):
		return CategoryEncode
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, ErrConnectionTimeout):
		return CategoryTimeout
	case errors.Is(err, ErrNoConnection):
		return CategoryTransport
	case errors.Is(err, ErrRateLimited):
		return CategoryRateLimited
	case errors.Is(err, ErrServiceDown):
		return CategoryServiceUnavailable
	case errors.Is(err, ErrInvalidData), errors.Is(err, ErrInvalidConfig),
		errors.Is(err, ErrUnsupportedFormat):
		return CategoryValidation
	}

	return CategoryUnknown
}

// IsDecode checks if an error is a decode failure
func IsDecode(err error) bool { return err != nil && CategoryOf(err) == CategoryDecode }

// IsEncode checks if an error is an encode failure
func IsEncode(err error) bool { return err != nil && CategoryOf(err) == CategoryEncode }

// IsTimeout checks if an error is a timeout
func IsTimeout(err error) bool { return err != nil && CategoryOf(err) == CategoryTimeout }

// IsTransport checks if an error is a connectivity failure
func IsTransport(err error) bool { return err != nil && CategoryOf(err) == CategoryTransport }

// IsRateLimited checks if an error is a rate-limit rejection
func IsRateLimited(err error) bool { return err != nil && CategoryOf(err) == CategoryRateLimited }

// IsServiceUnavailable checks if an error is a remote service failure
func IsServiceUnavailable(err error) bool {
	return err != nil && CategoryOf(err) == CategoryServiceUnavailable
}

// IsValidation checks if an error is due to invalid input
func IsValidation(err error) bool { return err != nil && CategoryOf(err) == CategoryValidation }

// IsRetryable reports whether a later attempt could plausibly succeed.
// Validation, decode, and encode failures are deterministic and never
// retryable; everything transport-shaped is.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch CategoryOf(err) {
	case CategoryTimeout, CategoryTransport, CategoryRateLimited, CategoryServiceUnavailable:
		return true
	default:
		return false
	}
}

// RetryAfter returns the server-advised cooldown attached to a rate-limited
// error. The bool is false when the error carries no hint.
func RetryAfter(err error) (time.Duration, bool) {
	var ce *ClassifiedError
	if errors.As(err, &ce) && ce.Category == CategoryRateLimited && ce.RetryAfter > 0 {
		return ce.RetryAfter, true
	}
	return 0, false
}

// newClassified creates a new classified error
// This is an internal helper - use the Wrap* family instead.
func newClassified(category Category, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Category:  category,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// wrapAs wraps an error into the given category with standard context.
func wrapAs(category Category, err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(category, wrappedErr, component, method, wrappedErr.Error())
}

// WrapDecode wraps an error as a decode failure with context
func WrapDecode(err error, component, method, action string) error {
	return wrapAs(CategoryDecode, err, component, method, action)
}

// WrapEncode wraps an error as an encode failure with context
func WrapEncode(err error, component, method, action string) error {
	return wrapAs(CategoryEncode, err, component, method, action)
}

// WrapTimeout wraps an error as a timeout with context
func WrapTimeout(err error, component, method, action string) error {
	return wrapAs(CategoryTimeout, err, component, method, action)
}

// WrapTransport wraps an error as a connectivity failure with context
func WrapTransport(err error, component, method, action string) error {
	return wrapAs(CategoryTransport, err, component, method, action)
}

// WrapServiceUnavailable wraps an error as a remote service failure with context
func WrapServiceUnavailable(err error, component, method, action string) error {
	return wrapAs(CategoryServiceUnavailable, err, component, method, action)
}

// WrapValidation wraps an error as a validation failure with context
func WrapValidation(err error, component, method, action string) error {
	return wrapAs(CategoryValidation, err, component, method, action)
}

// WrapUnknown wraps an error as unclassified with context
func WrapUnknown(err error, component, method, action string) error {
	return wrapAs(CategoryUnknown, err, component, method, action)
}

// WrapRateLimited wraps an error as rate-limited, attaching the server-advised
// retry-after duration (zero when the server provided none).
func WrapRateLimited(err error, component, method, action string, retryAfter time.Duration) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	ce := newClassified(CategoryRateLimited, wrappedErr, component, method, wrappedErr.Error())
	ce.RetryAfter = retryAfter
	return ce
}
