package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"syscall"
)

var (
	// ErrEmptyQuery is reported when a manual search has no location text.
	ErrEmptyQuery = errors.New("no location in query")
	// ErrNoLocation is reported when the locator cannot produce coordinates.
	ErrNoLocation = errors.New("could not determine location")
)

// StatusError is returned by sources when the provider answers with a non-2xx status.
type StatusError struct {
	Code    int
	Message string // provider-supplied message, may be empty
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status code: %d", e.Code)
	}
	return fmt.Sprintf("unexpected status code: %d: %s", e.Code, e.Message)
}

// ErrorKind enumerates the user-facing fetch failures.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNoConnectivity
	KindTimeout
	KindServerError
	KindAPIError
)

func (k ErrorKind) String() string {
	switch k {
	case KindNoConnectivity:
		return "no_connectivity"
	case KindTimeout:
		return "timeout"
	case KindServerError:
		return "server_error"
	case KindAPIError:
		return "api_error"
	default:
		return "unknown"
	}
}

// FetchError is the classified form of any failure raised by a Source.
type FetchError struct {
	Kind ErrorKind
	Code int    // HTTP status, only for KindAPIError
	Text string // fixed or provider message, only for KindAPIError
	// Cause is the original failure.
	Cause error
}

const (
	msgNoConnectivity = "No internet connection. Please check your network."
	msgTimeout        = "Connection timeout. Please try again."
	msgServerError    = "Server error. Please try again later."
	msgAPIFallback    = "Unknown error occurred"
	msgUnknownPrefix  = "An unexpected error occurred"
)

// Message is the text shown to the user. It is never empty.
func (e *FetchError) Message() string {
	switch e.Kind {
	case KindNoConnectivity:
		return msgNoConnectivity
	case KindTimeout:
		return msgTimeout
	case KindServerError:
		return msgServerError
	case KindAPIError:
		if e.Text == "" {
			return msgAPIFallback
		}
		return e.Text
	default:
		if e.Cause == nil || e.Cause.Error() == "" {
			return msgUnknownPrefix + "."
		}
		return msgUnknownPrefix + ": " + e.Cause.Error()
	}
}

func (e *FetchError) Error() string { return e.Message() }

func (e *FetchError) Unwrap() error { return e.Cause }

var statusMessages = map[int]string{
	http.StatusBadRequest:      "Invalid request. Please check your input.",
	http.StatusUnauthorized:    "Authentication failed. Check API key.",
	http.StatusForbidden:       "Access forbidden. Verify API permissions.",
	http.StatusNotFound:        "Location not found. Try another search.",
	http.StatusTooManyRequests: "Too many requests. Please try again later.",
}

// Classify maps a failure from a remote call onto the FetchError taxonomy.
// The first matching rule wins: HTTP status, timeout, host resolution, other
// I/O, and finally unknown.
func Classify(err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}

	var se *StatusError
	if errors.As(err, &se) {
		return classifyStatus(se, err)
	}

	if isTimeout(err) {
		return &FetchError{Kind: KindTimeout, Cause: err}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &FetchError{Kind: KindNoConnectivity, Cause: err}
	}

	if isIOFailure(err) {
		return &FetchError{Kind: KindNoConnectivity, Cause: err}
	}

	return &FetchError{Kind: KindUnknown, Cause: err}
}

func classifyStatus(se *StatusError, cause error) *FetchError {
	if msg, ok := statusMessages[se.Code]; ok {
		return &FetchError{Kind: KindAPIError, Code: se.Code, Text: msg, Cause: cause}
	}
	if se.Code >= 500 && se.Code <= 599 {
		return &FetchError{Kind: KindServerError, Code: se.Code, Cause: cause}
	}
	text := se.Message
	if text == "" {
		text = msgAPIFallback
	}
	return &FetchError{Kind: KindAPIError, Code: se.Code, Text: text, Cause: cause}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isIOFailure(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var (
		opErr  *net.OpError
		urlErr *url.Error
		errno  syscall.Errno
	)
	return errors.As(err, &opErr) || errors.As(err, &urlErr) || errors.As(err, &errno)
}
