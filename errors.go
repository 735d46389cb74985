package fswatch

import (
	"errors"
	"fmt"
)

// Kind is the closed set of failure categories a Watcher operation can
// return. New kinds are never added without a major version bump — callers
// are expected to switch on Kind or use errors.Is against the sentinels
// below.
type Kind int

const (
	// KindGeneric covers backend initialization failure and any internal
	// error that doesn't fit the other kinds.
	KindGeneric Kind = iota
	// KindIO covers an underlying OS call failing during watch, unwatch, or
	// a scan.
	KindIO
	// KindPathNotFound is returned from Watch when path does not exist.
	KindPathNotFound
	// KindWatchNotFound is returned from Unwatch when the canonicalized path
	// is not currently registered, including when the host silently
	// invalidated the registration (e.g. the watched path was deleted).
	KindWatchNotFound
)

func (k Kind) String() string {
	switch k {
	case KindGeneric:
		return "generic"
	case KindIO:
		return "io"
	case KindPathNotFound:
		return "path not found"
	case KindWatchNotFound:
		return "watch not found"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned by every client-facing Watcher
// operation. Use errors.Is with the Err* sentinels, or errors.As to recover
// the Kind and wrapped cause.
type Error struct {
	Kind Kind
	Path string
	Err  error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Path == "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s", e.Kind, e.Err)
		}
		return e.Kind.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Path)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrPathNotFound) etc. match without the caller
// having to know about Kind at all.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrGeneric:
		return e.Kind == KindGeneric
	case ErrIO:
		return e.Kind == KindIO
	case ErrPathNotFound:
		return e.Kind == KindPathNotFound
	case ErrWatchNotFound:
		return e.Kind == KindWatchNotFound
	}
	return false
}

// Sentinels for use with errors.Is. They carry no path or cause of their
// own; match against them, don't return them directly — return a *Error
// built with newErr (or one of the err* helpers) instead so Path and Err are
// populated.
var (
	ErrGeneric       = errors.New("generic watcher error")
	ErrIO            = errors.New("io error")
	ErrPathNotFound  = errors.New("path not found")
	ErrWatchNotFound = errors.New("watch not found")
)

func newErr(kind Kind, path string, cause error) error {
	return &Error{Kind: kind, Path: path, Err: cause}
}

func errGeneric(cause error) error         { return newErr(KindGeneric, "", cause) }
func errIO(path string, cause error) error { return newErr(KindIO, path, cause) }
func errPathNotFound(path string) error    { return newErr(KindPathNotFound, path, nil) }
func errWatchNotFound(path string) error   { return newErr(KindWatchNotFound, path, nil) }
