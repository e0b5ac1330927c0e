package docstore

import (
	"errors"
	"fmt"
)

// ErrUnavailable is returned by every operation of an unconfigured store.
var ErrUnavailable = errors.New("docstore: database not configured")

// ReadError wraps a failed query against a collection.
type ReadError struct {
	Collection string
	Err        error
}

func (e *ReadError) Error() string {
	if e.Collection == "" {
		return fmt.Sprintf("docstore: read: %v", e.Err)
	}
	return fmt.Sprintf("docstore: read %s: %v", e.Collection, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// WriteError wraps a failed insert into a collection.
type WriteError struct {
	Collection string
	Err        error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("docstore: write %s: %v", e.Collection, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

var errInvalidName = errors.New("invalid name")
