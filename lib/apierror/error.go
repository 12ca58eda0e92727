// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package apierror

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	// KindUnknown is returned by KindOf for errors that did not
	// originate in this package.
	KindUnknown Kind = iota
	KindAuthentication
	KindRateLimit
	KindBotBlocked
	KindProtocol
	KindPowUnsolvable
	KindStreamDecode
	KindCookieRefresh
	KindNetwork
)

// String returns the snake_case name of a kind, used in log fields
// and error messages.
func (kind Kind) String() string {
	switch kind {
	case KindAuthentication:
		return "authentication"
	case KindRateLimit:
		return "rate_limit"
	case KindBotBlocked:
		return "bot_blocked"
	case KindProtocol:
		return "protocol"
	case KindPowUnsolvable:
		return "pow_unsolvable"
	case KindStreamDecode:
		return "stream_decode"
	case KindCookieRefresh:
		return "cookie_refresh"
	case KindNetwork:
		return "network"
	default:
		return fmt.Sprintf("unknown(%d)", int(kind))
	}
}

// Sentinels for errors.Is matching. Any *Error with the same Kind
// matches its sentinel regardless of message or status code.
var (
	ErrAuthentication = &Error{Kind: KindAuthentication}
	ErrRateLimit      = &Error{Kind: KindRateLimit}
	ErrBotBlocked     = &Error{Kind: KindBotBlocked}
	ErrProtocol       = &Error{Kind: KindProtocol}
	ErrPowUnsolvable  = &Error{Kind: KindPowUnsolvable}
	ErrStreamDecode   = &Error{Kind: KindStreamDecode}
	ErrCookieRefresh  = &Error{Kind: KindCookieRefresh}
	ErrNetwork        = &Error{Kind: KindNetwork}
)

// MaxBodySnippet bounds the response body excerpt kept on an Error.
const MaxBodySnippet = 512

// Error is a classified failure.
type Error struct {
	// Kind is the failure class.
	Kind Kind

	// StatusCode is the HTTP status code of the response that caused
	// the failure, or 0 when no response was involved.
	StatusCode int

	// Body is an excerpt of the response body (at most
	// MaxBodySnippet bytes). Empty when no response was involved.
	Body string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// New creates an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error of the given kind around cause.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// FromStatus creates an Error for an HTTP response. 401 maps to
// KindAuthentication, 429 to KindRateLimit, anything else to
// KindProtocol. The body is truncated to MaxBodySnippet bytes.
func FromStatus(statusCode int, body string) *Error {
	err := &Error{
		StatusCode: statusCode,
		Body:       Snippet(body),
	}
	switch statusCode {
	case 401:
		err.Kind = KindAuthentication
		err.Message = "invalid or expired authentication token"
	case 429:
		err.Kind = KindRateLimit
		err.Message = "rate limit exceeded"
	default:
		err.Kind = KindProtocol
		err.Message = "unexpected response status"
	}
	return err
}

// Snippet truncates body to MaxBodySnippet bytes.
func Snippet(body string) string {
	if len(body) <= MaxBodySnippet {
		return body
	}
	return body[:MaxBodySnippet]
}

func (err *Error) Error() string {
	message := err.Message
	if message == "" {
		message = err.Kind.String()
	}
	if err.StatusCode != 0 {
		message = fmt.Sprintf("%s (HTTP %d)", message, err.StatusCode)
	}
	if err.Body != "" {
		message = fmt.Sprintf("%s: %s", message, err.Body)
	}
	if err.Err != nil {
		message = fmt.Sprintf("%s: %v", message, err.Err)
	}
	return fmt.Sprintf("%s error: %s", err.Kind, message)
}

// Unwrap returns the underlying cause.
func (err *Error) Unwrap() error {
	return err.Err
}

// Is reports whether target is an *Error of the same Kind. This makes
// the exported sentinels match any error of their kind.
func (err *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return other.Kind == err.Kind
}

// Retryable reports whether retrying the whole call later can
// reasonably succeed. Authentication, protocol, and solver failures
// will repeat on retry; rate limits, network failures, bot blocks, and
// broken streams may not.
func (err *Error) Retryable() bool {
	switch err.Kind {
	case KindRateLimit, KindNetwork, KindBotBlocked, KindStreamDecode:
		return true
	default:
		return false
	}
}

// KindOf returns the Kind of the first *Error in err's chain, or
// KindUnknown.
func KindOf(err error) Kind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	return KindUnknown
}
