package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"reflect"
	"strings"
	"syscall"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// transientVocabulary is matched against the lower-cased error message and name.
var transientVocabulary = []string{
	"ssl",
	"tls",
	"tlsv1",
	"internal error",
	"connection pool",
	"connection",
	"network",
}

// driverErrorNames are error type identifiers reported by database drivers
// for failures that clear up on their own.
var driverErrorNames = map[string]struct{}{
	"MongoNetworkError":         {},
	"MongoNetworkTimeoutError":  {},
	"MongoServerSelectionError": {},
	"MongoPoolClearedError":     {},
	"MongoTopologyClosedError":  {},
	"ConnectError":              {},
	"OpError":                   {},
	"DNSError":                  {},
}

type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient marks err as retryable regardless of its message.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as never retryable, even when its message matches
// the transient vocabulary.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsTransient reports whether err looks like a network, TLS or
// connection-pool failure that is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	// Aborts are terminal
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pe *permanentError
	if errors.As(err, &pe) {
		return false
	}

	var te *transientError
	if errors.As(err, &te) {
		return true
	}

	if errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgerrcode.IsConnectionException(pgErr.Code) ||
			pgerrcode.IsInsufficientResources(pgErr.Code) ||
			pgerrcode.IsOperatorIntervention(pgErr.Code)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	name := errorName(err)
	if _, ok := driverErrorNames[name]; ok {
		return true
	}

	message := strings.ToLower(err.Error())
	lowerName := strings.ToLower(name)
	for _, word := range transientVocabulary {
		if strings.Contains(message, word) || strings.Contains(lowerName, word) {
			return true
		}
	}
	return false
}

// errorName returns the error's self-reported name, or its type name.
func errorName(err error) string {
	if named, ok := err.(interface{ Name() string }); ok {
		return named.Name()
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}
