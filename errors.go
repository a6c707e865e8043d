package replcraft

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ErrorKind is the server's error taxonomy, carried verbatim in the `error`
// field of failure responses.
type ErrorKind string

const (
	KindConnectionClosed ErrorKind = "connection closed"
	KindUnauthenticated  ErrorKind = "unauthenticated"
	KindAuthFailed       ErrorKind = "authentication failed"
	KindInvalidOperation ErrorKind = "invalid operation"
	KindInvalidStructure ErrorKind = "invalid structure"
	KindBadRequest       ErrorKind = "bad request"
	KindOutOfFuel        ErrorKind = "out of fuel"
	KindOffline          ErrorKind = "offline"
)

// Error is a request failure reported by the server, or a local failure of the
// same class (sending on a closed connection, using a disposed context).
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// IsKind reports whether err is (or wraps) an *Error with the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var re *Error
	return errors.As(err, &re) && re.Kind == kind
}

func errClosed(message string) *Error {
	return &Error{Kind: KindConnectionClosed, Message: message}
}

// ConnectionError represents a failure to establish the WebSocket connection.
type ConnectionError struct {
	URL    string
	Reason string
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error [%s]: %s", e.URL, e.Reason)
}

// FaultKind classifies SDK-level faults that cannot be returned to a caller.
type FaultKind int

const (
	FaultParse       FaultKind = iota // inbound frame couldn't be parsed
	FaultUnknownPush                  // pushed event with an unknown type
	FaultWrite                        // failed to write to the connection
)

var faultKindNames = [...]string{
	FaultParse:       "FaultParse",
	FaultUnknownPush: "FaultUnknownPush",
	FaultWrite:       "FaultWrite",
}

func (k FaultKind) String() string {
	if int(k) >= 0 && int(k) < len(faultKindNames) {
		return faultKindNames[k]
	}
	return fmt.Sprintf("FaultKind(%d)", k)
}

// SDKError represents an error that the SDK could not deliver to a direct
// caller. These errors are routed to the ErrorHandler provided at client
// creation.
type SDKError struct {
	Kind      FaultKind
	Cause     error
	Raw       []byte // raw frame (for parse failures and unknown pushes)
	Timestamp time.Time
}

func (e *SDKError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return e.Kind.String()
}

func (e *SDKError) Unwrap() error {
	return e.Cause
}

// ErrorHandler is called for every SDK-level error that cannot be returned
// to a direct caller. It MUST be provided when creating a client.
type ErrorHandler func(SDKError)

// LogErrors returns an ErrorHandler that logs all SDK errors to the given logger.
func LogErrors(logger zerolog.Logger) ErrorHandler {
	return func(e SDKError) {
		logger.Error().
			Stringer("fault", e.Kind).
			Err(e.Cause).
			Msg("replcraft sdk error")
	}
}
