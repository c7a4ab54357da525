package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an input file does not exist.
	ErrNotFound = errors.New("file not found")
	// ErrMalformedRecord is returned for a lookup or flow log line that cannot be parsed.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrUnknownProtocol is a malformed record whose protocol number is not icmp, tcp or udp.
	ErrUnknownProtocol = fmt.Errorf("%w: unknown protocol number", ErrMalformedRecord)
	// ErrWriteFailure is returned when a report destination cannot be written.
	ErrWriteFailure = errors.New("write failure")
)

// PathError ties an error kind to the file it concerns.
type PathError struct {
	Kind error
	Path string
	Err  error
}

func (e *PathError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %s", e.Kind, e.Path)
	}
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.Path, e.Err)
}

func (e *PathError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// RecordError reports a single unparsable line.
type RecordError struct {
	Source string
	Line   int
	Text   string
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s:%d: %v (%q)", e.Source, e.Line, e.Err, e.Text)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// NewPathError wraps err as kind for path.
func NewPathError(kind error, path string, err error) error {
	return &PathError{Kind: kind, Path: path, Err: err}
}
