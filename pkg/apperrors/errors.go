// Package apperrors defines the error kinds a decision cycle can abort with.
//
// Every error returned from a cycle step wraps exactly one of the sentinel kinds
// below, so callers can branch with errors.Is and report the kind by name.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration    = errors.New("configuration error")
	ErrAuthentication   = errors.New("authentication error")
	ErrClusterState     = errors.New("cluster state error")
	ErrDataUnavailable  = errors.New("data unavailable")
	ErrInsufficientData = errors.New("insufficient data")
	ErrModelUnavailable = errors.New("model unavailable")
	ErrInvalidResult    = errors.New("invalid result")
)

// Error wraps an operation, a human-facing message and the underlying cause
// under one of the sentinel kinds.
type Error struct {
	Kind error
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// New constructs an Error of the given kind.
func New(kind error, op, msg string, err error) error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

func Configuration(op, msg string, err error) error {
	return New(ErrConfiguration, op, msg, err)
}

func Authentication(op, msg string, err error) error {
	return New(ErrAuthentication, op, msg, err)
}

func ClusterState(op, msg string, err error) error {
	return New(ErrClusterState, op, msg, err)
}

func DataUnavailable(op, msg string, err error) error {
	return New(ErrDataUnavailable, op, msg, err)
}

func InsufficientData(op, msg string, err error) error {
	return New(ErrInsufficientData, op, msg, err)
}

func ModelUnavailable(op, msg string, err error) error {
	return New(ErrModelUnavailable, op, msg, err)
}

func InvalidResult(op, msg string, err error) error {
	return New(ErrInvalidResult, op, msg, err)
}

var kindNames = []struct {
	kind error
	name string
}{
	{ErrConfiguration, "ConfigurationError"},
	{ErrAuthentication, "AuthenticationError"},
	{ErrClusterState, "ClusterStateError"},
	{ErrDataUnavailable, "DataUnavailableError"},
	{ErrInsufficientData, "InsufficientDataError"},
	{ErrModelUnavailable, "ModelUnavailableError"},
	{ErrInvalidResult, "InvalidResultError"},
}

// KindOf names the kind of err, "" for nil and "UnknownError" for errors
// outside the taxonomy (context cancellation, for instance).
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kindNames {
		if errors.Is(err, k.kind) {
			return k.name
		}
	}
	return "UnknownError"
}
