// Package svcerr carries coded service errors shared by the domain services.
package svcerr

import (
	"errors"
	"fmt"
)

// Error pairs a stable machine-readable code with the underlying cause.
type Error struct {
	code string
	err  error
}

// New builds an Error with the code "<operation>.<reason>".
func New(operation, reason string, cause error) error {
	return &Error{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

func (e *Error) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *Error) Unwrap() error {
	return e.err
}

// Code returns the stable error code.
func (e *Error) Code() string {
	return e.code
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) (string, bool) {
	var serviceErr *Error
	if errors.As(err, &serviceErr) {
		return serviceErr.Code(), true
	}
	return "", false
}
