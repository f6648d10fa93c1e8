package ceed

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a failure.
type ErrorCode uint8

// Error codes.
const (
	// CodeBackendNotFound means no registered descriptor matches the resource.
	// The caller must supply a different resource.
	CodeBackendNotFound ErrorCode = iota + 1

	// CodeBackendInit means the matched backend failed to initialize.
	CodeBackendInit

	// CodeAlreadyAccessed means the vector already has an array lent out.
	CodeAlreadyAccessed

	// CodeNotAccessed means RestoreArray was called with no array lent out.
	CodeNotAccessed

	// CodeResourceBusy means destruction was attempted while a borrow or a
	// child object is still live.
	CodeResourceBusy

	// CodeInvalidArgument means an argument was out of range or malformed.
	CodeInvalidArgument

	// CodeUnsupported means the backend cannot perform the request.
	CodeUnsupported

	// CodeBackend means a backend operation failed.
	CodeBackend

	// CodeDestroyed means the object was already destroyed.
	CodeDestroyed
)

// Sentinel errors, one per code. Use errors.Is to classify an *Error.
var (
	ErrBackendNotFound = errors.New("ceed: backend not found")
	ErrBackendInit     = errors.New("ceed: backend initialization failed")
	ErrAlreadyAccessed = errors.New("ceed: array already accessed")
	ErrNotAccessed     = errors.New("ceed: array not accessed")
	ErrResourceBusy    = errors.New("ceed: resource busy")
	ErrInvalidArgument = errors.New("ceed: invalid argument")
	ErrUnsupported     = errors.New("ceed: unsupported")
	ErrBackend         = errors.New("ceed: backend error")
	ErrDestroyed       = errors.New("ceed: object destroyed")
)

var codeSentinels = map[ErrorCode]error{
	CodeBackendNotFound: ErrBackendNotFound,
	CodeBackendInit:     ErrBackendInit,
	CodeAlreadyAccessed: ErrAlreadyAccessed,
	CodeNotAccessed:     ErrNotAccessed,
	CodeResourceBusy:    ErrResourceBusy,
	CodeInvalidArgument: ErrInvalidArgument,
	CodeUnsupported:     ErrUnsupported,
	CodeBackend:         ErrBackend,
	CodeDestroyed:       ErrDestroyed,
}

// String returns the code name.
func (c ErrorCode) String() string {
	switch c {
	case CodeBackendNotFound:
		return "BackendNotFound"
	case CodeBackendInit:
		return "BackendInit"
	case CodeAlreadyAccessed:
		return "AlreadyAccessed"
	case CodeNotAccessed:
		return "NotAccessed"
	case CodeResourceBusy:
		return "ResourceBusy"
	case CodeInvalidArgument:
		return "InvalidArgument"
	case CodeUnsupported:
		return "Unsupported"
	case CodeBackend:
		return "Backend"
	case CodeDestroyed:
		return "Destroyed"
	default:
		return fmt.Sprintf("ErrorCode(%d)", uint8(c))
	}
}

// Sentinel returns the sentinel error matching the code, or nil.
func (c ErrorCode) Sentinel() error {
	return codeSentinels[c]
}

// Error is the record of one failed operation.
type Error struct {
	// Code classifies the failure.
	Code ErrorCode

	// Message describes the failure.
	Message string

	// Origin names the failing call, e.g. "Vector.GetArray".
	Origin string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := "ceed: " + e.Origin + ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e.Code.
func (e *Error) Is(target error) bool {
	s := e.Code.Sentinel()
	return s != nil && s == target
}

// newError builds an *Error with a formatted message.
func newError(code ErrorCode, origin, format string, args ...any) *Error {
	return &Error{Code: code, Origin: origin, Message: fmt.Sprintf(format, args...)}
}

// wrapError builds an *Error around a cause.
func wrapError(code ErrorCode, origin string, cause error, format string, args ...any) *Error {
	e := newError(code, origin, format, args...)
	e.Err = cause
	return e
}
