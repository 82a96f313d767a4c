package api

import (
	"errors"
	"fmt"
)

// Machine-readable error codes returned by the remote service.
const (
	CodeNotFound            = "not_found"
	CodeUnauthorized        = "unauthorized"
	CodePaymentRequired     = "payment_required"
	CodeConflict            = "conflict"
	CodeQuotaExceeded       = "quota_exceeded"
	CodeInsufficientStorage = "insufficient_storage"
	CodeInternal            = "internal"
)

// Error is an expected remote failure: the service answered, but refused
// the request. Network-level failures are returned as plain wrapped errors
// and are not represented by this type.
type Error struct {
	Status int    // HTTP status
	Code   string // machine-readable code, one of the Code* constants
	Detail string // optional human-readable detail from the server
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("remote: %s (%d): %s", e.Code, e.Status, e.Detail)
	}
	return fmt.Sprintf("remote: %s (%d)", e.Code, e.Status)
}

func is(err error, code string) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Code == code
}

// IsNotFound reports whether err is a remote not-found error.
func IsNotFound(err error) bool { return is(err, CodeNotFound) }

// IsUnauthorized reports whether err is a remote unauthorized error.
func IsUnauthorized(err error) bool { return is(err, CodeUnauthorized) }

// IsConflict reports whether err is a remote conflict error.
func IsConflict(err error) bool { return is(err, CodeConflict) }

// IsQuotaExceeded reports whether err is a remote quota error.
func IsQuotaExceeded(err error) bool { return is(err, CodeQuotaExceeded) }
