package vfs

import (
	"errors"
	"fmt"
)

// Errno identifies one of the closed set of filesystem error conditions
// shared by every mount. Command handlers switch on it to produce uniform
// "<command>: <path>: <message>" diagnostics.
type Errno int

const (
	ENOENT Errno = iota + 1
	ENOTDIR
	EISDIR
	EACCES
	EROFS
	EEXIST
	ENOTEMPTY
	EINVAL
	EIO
)

var errnoText = map[Errno]string{
	ENOENT:    "no such file or directory",
	ENOTDIR:   "not a directory",
	EISDIR:    "is a directory",
	EACCES:    "permission denied",
	EROFS:     "read-only file system",
	EEXIST:    "file exists",
	ENOTEMPTY: "directory not empty",
	EINVAL:    "invalid argument",
	EIO:       "input/output error",
}

func (e Errno) String() string {
	if s, ok := errnoText[e]; ok {
		return s
	}
	return fmt.Sprintf("errno(%d)", int(e))
}

// PathError is the error type returned by every mount operation. Detail is
// optional extra context (e.g. the underlying os error) and is appended to
// the message when present.
type PathError struct {
	Op     string
	Path   string
	Errno  Errno
	Detail string
}

func (e *PathError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: %s (%s)", e.Op, e.Path, e.Errno, e.Detail)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Errno)
}

// NewError builds a PathError.
func NewError(op, path string, errno Errno) *PathError {
	return &PathError{Op: op, Path: path, Errno: errno}
}

// NewErrorDetail builds a PathError with extra context.
func NewErrorDetail(op, path string, errno Errno, detail string) *PathError {
	return &PathError{Op: op, Path: path, Errno: errno, Detail: detail}
}

// ErrnoOf extracts the Errno from an error, or 0 if the error is not a
// PathError.
func ErrnoOf(err error) Errno {
	var pe *PathError
	if errors.As(err, &pe) {
		return pe.Errno
	}
	return 0
}

// IsNotExist reports whether err is an ENOENT PathError.
func IsNotExist(err error) bool {
	return ErrnoOf(err) == ENOENT
}
