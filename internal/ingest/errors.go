package ingest

import (
	"errors"
	"fmt"

	"searchlib/internal/marc"
)

var (
	// ErrEncodingUndetermined: no candidate encoding parses the file.
	ErrEncodingUndetermined = marc.ErrEncodingUndetermined
	// ErrDialectUnroutable: the file's source collection has no dialect.
	ErrDialectUnroutable = errors.New("source collection not routable")
	// ErrMalformedRecord: a record failed to parse under the file's encoding.
	ErrMalformedRecord = errors.New("malformed record")
)

// FileError is a failure confined to one file.
type FileError struct {
	File   string
	Reason string
	Err    error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.File, e.Reason, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// Policy decides what an undetermined encoding does to the batch.
type Policy string

const (
	// SkipFile fails the file and continues with the next one.
	SkipFile Policy = "skip"
	// AbortBatch stops the batch and discards everything it staged.
	AbortBatch Policy = "abort"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", SkipFile:
		return SkipFile, nil
	case AbortBatch:
		return AbortBatch, nil
	default:
		return "", fmt.Errorf("unknown encoding error policy %q", s)
	}
}
