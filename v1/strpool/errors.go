// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package strpool

import (
	"errors"
	"fmt"
)

const (
	// InvalidEncodingErr indicates bytes passed to a constructor were not
	// valid UTF-8.
	InvalidEncodingErr = "strpool_invalid_encoding_error"

	// InvalidHandleErr indicates a handle could not be resolved. Values with
	// this code are only ever used as panic values.
	InvalidHandleErr = "strpool_invalid_handle_error"
)

// Error is the error type returned by the strpool package.
type Error struct {
	Code    string
	Message string

	// Offset is the byte offset of the first invalid sequence for
	// InvalidEncodingErr, and -1 otherwise.
	Offset int

	Err error
}

func (err *Error) Error() string {
	return fmt.Sprintf("%v: %v", err.Code, err.Message)
}

func (err *Error) Unwrap() error {
	return err.Err
}

// IsInvalidEncoding returns true if this error is an InvalidEncodingErr.
func IsInvalidEncoding(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == InvalidEncodingErr
}

// IsInvalidHandle returns true if this error is an InvalidHandleErr. It is
// meant for inspecting recovered panic values.
func IsInvalidHandle(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == InvalidHandleErr
}

func newInvalidEncodingError(offset int, cause error) *Error {
	return &Error{
		Code:    InvalidEncodingErr,
		Message: fmt.Sprintf("invalid utf-8 sequence at byte offset %d", offset),
		Offset:  offset,
		Err:     cause,
	}
}

func newInvalidHandleError(f string, a ...any) *Error {
	return &Error{
		Code:    InvalidHandleErr,
		Message: fmt.Sprintf(f, a...),
		Offset:  -1,
	}
}
