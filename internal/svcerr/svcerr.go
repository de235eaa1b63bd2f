// Package svcerr defines domain-level errors carrying a stable,
// machine-readable code. Codes are dot-namespaced (e.g.
// "billing.limit_reached") so clients can branch on them, and they are
// translated exactly once at the HTTP boundary.
package svcerr

import (
	"errors"
	"strings"
)

type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NotImplemented marks an optional collaborator capability as absent.
// The code keeps the ".not_implemented" suffix so the boundary can map
// it to 501 instead of a generic bad request.
func NotImplemented(namespace, capability string) *Error {
	return &Error{
		Code:    namespace + ".not_implemented",
		Message: capability + " is not supported by the configured provider",
	}
}

// As unwraps err into an *Error, or returns nil.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

func IsNotImplemented(err error) bool {
	e := As(err)
	return e != nil && strings.HasSuffix(e.Code, ".not_implemented")
}
