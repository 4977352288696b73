// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bigjob

import (
	"errors"
	"fmt"
)

// Kind classifies an Error.
type Kind int

const (
	// Other is an unclassified error.
	Other Kind = iota
	// InvalidInput indicates malformed or missing structured data.
	InvalidInput
	// UnsupportedOperation indicates an unknown operation or
	// aggregation mode name.
	UnsupportedOperation
	// InvalidChunkCount indicates a non-positive chunk count.
	InvalidChunkCount
	// EmptyAggregationSet indicates that a reduction that requires at
	// least one value was given none.
	EmptyAggregationSet
	// NullResult indicates that a downstream call produced nothing.
	NullResult

	maxKind
)

var kinds = [...]string{
	Other:                "other",
	InvalidInput:         "invalid input",
	UnsupportedOperation: "unsupported operation",
	InvalidChunkCount:    "invalid chunk count",
	EmptyAggregationSet:  "empty aggregation set",
	NullResult:           "null result",
}

// String returns a human readable name for the kind.
func (k Kind) String() string {
	if k < 0 || k >= maxKind {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kinds[k]
}

// Error is the error type returned by the components of this module.
// The message is rendered verbatim in error responses, so it should
// be complete and human readable.
type Error struct {
	Kind    Kind
	Message string
	// Err is an optional underlying cause.
	Err error
}

// Errorf returns a new error of the provided kind with a formatted
// message.
func Errorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Error implements error. Only the message is returned; the kind is
// available through Is.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether any error in err's chain is an *Error of the
// given kind.
func Is(kind Kind, err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// KindOf returns the kind of the first *Error in err's chain, or
// Other.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Other
}
