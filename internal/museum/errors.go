package museum

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels for rejection kinds, matched with errors.Is against a *RejectionError.
var (
	ErrValidation   = errors.New("validation error")
	ErrAuthRequired = errors.New("authentication required")
	ErrNotFound     = errors.New("not found")
	ErrServer       = errors.New("server error")
)

// ConnectivityError means no response was received: the request may or may
// not have reached the server.
type ConnectivityError struct {
	Op  string
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("%s: connectivity failure: %v", e.Op, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// RejectionError means the server answered with an error status.
type RejectionError struct {
	Op      string
	Status  int
	Message string
}

func (e *RejectionError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: rejected with status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: rejected with status %d: %s", e.Op, e.Status, e.Message)
}

// Is maps the status code onto the rejection sentinels.
func (e *RejectionError) Is(target error) bool {
	return kindForStatus(e.Status) == target
}

func kindForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrAuthRequired
	case status == http.StatusNotFound:
		return ErrNotFound
	case status >= 500:
		return ErrServer
	default:
		return ErrValidation
	}
}

// IsConnectivity reports whether err stems from a request that got no response.
func IsConnectivity(err error) bool {
	var ce *ConnectivityError
	return errors.As(err, &ce)
}

// IsRejection reports whether err is a server-issued rejection.
func IsRejection(err error) bool {
	var re *RejectionError
	return errors.As(err, &re)
}
