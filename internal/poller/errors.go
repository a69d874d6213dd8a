package poller

import (
	"errors"
	"fmt"

	"github.com/Rin0913/dashpoll/internal/apiclient"
)

var (
	ErrEmptyPath       = errors.New("poller: empty path")
	ErrInvalidInterval = errors.New("poller: interval must be > 0")
	ErrTypeMismatch    = errors.New("poller: path already subscribed with a different type")
	ErrRegistryStopped = errors.New("poller: registry stopped")
)

type ErrorKind string

const (
	KindNetwork ErrorKind = "network"
	KindHTTP    ErrorKind = "http"
	KindDecode  ErrorKind = "decode"
)

// Error is what a handle reports after a failed poll. Err is the cause and
// can be an *apiclient.StatusError, a transport error or a decode error.
type Error struct {
	Path string
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("poll %s: %s: %v", e.Path, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func fetchError(path string, err error) *Error {
	kind := KindNetwork
	var se *apiclient.StatusError
	if errors.As(err, &se) {
		kind = KindHTTP
	}
	return &Error{Path: path, Kind: kind, Err: err}
}

func decodeError(path string, err error) *Error {
	return &Error{Path: path, Kind: KindDecode, Err: err}
}

// KindOf returns the kind of a poll error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
