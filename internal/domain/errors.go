package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindUnauthenticated
	KindNotFound
	KindInvalidArgument
	KindMeetingEnded
	KindMeetingFull
	KindForbidden
	KindInvalidState
	KindUnavailable
	KindConflict
)

var kindNames = map[ErrorKind]string{
	KindInternal:        "internal",
	KindUnauthenticated: "unauthenticated",
	KindNotFound:        "not_found",
	KindInvalidArgument: "invalid_argument",
	KindMeetingEnded:    "meeting_ended",
	KindMeetingFull:     "meeting_full",
	KindForbidden:       "forbidden",
	KindInvalidState:    "invalid_state",
	KindUnavailable:     "unavailable",
	KindConflict:        "conflict",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// HTTPStatus is the status a REST surface should answer with.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindMeetingEnded:
		return http.StatusGone
	case KindMeetingFull, KindInvalidState, KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is the single error type crossing package boundaries. Callers
// dispatch on Kind, never on the message.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap tags err with kind, keeping err reachable through errors.Is/As.
func Wrap(kind ErrorKind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func KindOf(err error) ErrorKind {
	if err == nil {
		return KindInternal
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindUnavailable
	}
	return KindInternal
}

// Retryable separates downstream trouble from requests that must be fixed.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindUnavailable, KindConflict:
		return true
	default:
		return false
	}
}

// PublicMessage is safe to hand to a client; internal errors are not echoed.
func PublicMessage(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Kind != KindInternal {
		return de.Msg
	}
	if KindOf(err) == KindUnavailable {
		return "service unavailable, try again"
	}
	return "internal error"
}
