package namespace

import (
	"errors"
	"fmt"
)

// ErrorCode is the stable kind carried by every namespace error.
type ErrorCode int

const (
	// ErrNoSuchEntity: the path does not exist.
	ErrNoSuchEntity ErrorCode = iota + 1

	// ErrAlreadyExists: a File and a Directory would share a key.
	ErrAlreadyExists

	// ErrParentMissing: the immediate parent is not a Directory.
	ErrParentMissing

	// ErrDirectoryNotEmpty: non-recursive remove on a populated Directory.
	ErrDirectoryNotEmpty

	// ErrInvalidTarget: the operation cannot apply to this path
	// (removing the root, reading a Directory, copying into itself).
	ErrInvalidTarget

	// ErrStoreUnavailable: an object store call failed. The cause is
	// attached and reachable through errors.Is / errors.As.
	ErrStoreUnavailable
)

func (c ErrorCode) String() string {
	switch c {
	case ErrNoSuchEntity:
		return "NoSuchEntity"
	case ErrAlreadyExists:
		return "AlreadyExists"
	case ErrParentMissing:
		return "ParentMissing"
	case ErrDirectoryNotEmpty:
		return "DirectoryNotEmpty"
	case ErrInvalidTarget:
		return "InvalidTarget"
	case ErrStoreUnavailable:
		return "StoreUnavailable"
	default:
		return fmt.Sprintf("ErrorCode(%d)", int(c))
	}
}

// Error is returned by every Engine operation.
//
// Invariant violations are detected before any mutating store call, so an
// Error with a code other than ErrStoreUnavailable means nothing changed.
// ErrStoreUnavailable raised in the middle of a recursive operation leaves
// the sub-operations that already completed in place.
type Error struct {
	Code    ErrorCode
	Op      string
	Path    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code.String()
	}
	s := fmt.Sprintf("%s %q: %s", e.Op, e.Path, msg)
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by code, so callers can write
// errors.Is(err, &namespace.Error{Code: namespace.ErrNoSuchEntity}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// CodeOf extracts the code of a namespace error anywhere in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var nsErr *Error
	if errors.As(err, &nsErr) {
		return nsErr.Code, true
	}
	return 0, false
}

// IsCode reports whether err is a namespace error with the given code.
func IsCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

func newError(code ErrorCode, op, path, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Path: path, Message: fmt.Sprintf(format, args...)}
}

func storeError(op, path string, err error) *Error {
	var nsErr *Error
	if errors.As(err, &nsErr) {
		return nsErr
	}
	return &Error{Code: ErrStoreUnavailable, Op: op, Path: path, Message: "object store call failed", Err: err}
}
