package importer

import (
	"errors"
	"fmt"
)

// DecodeErrorKind classifies decode failures.
type DecodeErrorKind string

const (
	KindUnknownEncoding  DecodeErrorKind = "unknown_encoding"
	KindSourceUnreadable DecodeErrorKind = "source_unreadable"
)

var (
	ErrUnknownEncoding  = errors.New("unknown encoding")
	ErrSourceUnreadable = errors.New("source unreadable")
	ErrFieldCount       = errors.New("unexpected field count")
	ErrInvertedRange    = errors.New("event ends before it starts")
)

// DecodeError is returned when the source cannot be turned into text.
type DecodeError struct {
	Kind   DecodeErrorKind
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case KindUnknownEncoding:
		return fmt.Sprintf("decode: unknown encoding %q", e.Source)
	default:
		return fmt.Sprintf("decode: read %s: %v", e.Source, e.Err)
	}
}

func (e *DecodeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is lets callers match on the failure kind with errors.Is.
func (e *DecodeError) Is(target error) bool {
	if e == nil {
		return false
	}
	switch target {
	case ErrUnknownEncoding:
		return e.Kind == KindUnknownEncoding
	case ErrSourceUnreadable:
		return e.Kind == KindSourceUnreadable
	}
	return false
}

// ParseError pinpoints the row and field that broke the import.
type ParseError struct {
	Line  int
	Field string
	Value string
	Row   string
	Err   error
}

func (e *ParseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Field == "" {
		return fmt.Sprintf("parse line %d: %v (row %q)", e.Line, e.Err, e.Row)
	}
	return fmt.Sprintf("parse line %d: field %s %q: %v", e.Line, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
