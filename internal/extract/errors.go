package extract

import (
	"errors"
	"fmt"
)

// FailureKind classifies an extraction failure.
type FailureKind int

const (
	// FailureOther covers every failure that is not retried.
	FailureOther FailureKind = iota
	// FailureFormatUnavailable means the requested formats were not offered
	// for the video; retrying with adaptive formats may succeed.
	FailureFormatUnavailable
)

func (k FailureKind) String() string {
	switch k {
	case FailureFormatUnavailable:
		return "format_unavailable"
	default:
		return "other"
	}
}

// Failure is a classified extraction error.
type Failure struct {
	Kind FailureKind
	Op   string
	Err  error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Op + ": extraction failed"
	}
	return fmt.Sprintf("%s: %v", f.Op, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// KindOf returns the classification carried by err, FailureOther when err is
// not a *Failure.
func KindOf(err error) FailureKind {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure.Kind
	}
	return FailureOther
}
