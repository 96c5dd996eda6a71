package domain

import (
	"errors"
	"fmt"
)

// Common domain errors
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInternalServer     = errors.New("internal server error")
	ErrDuplicateEntry     = errors.New("duplicate entry")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("token invalid")
)

// Person errors
var (
	ErrInvalidPersonnummer = errors.New("personnummer must be 11 digits")
	ErrPersonNotFound      = errors.New("person not found")
	ErrPersonAlreadyExists = errors.New("personnummer already exists")
)

// Order errors
var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrNoDiagnoses        = errors.New("at least one diagnosis is required")
	ErrInvalidOrderDate   = errors.New("date must be YYYY-MM-DD")
	ErrInvalidOrderTime   = errors.New("time must be HH:MM")
	ErrLabNumberConflict  = errors.New("could not allocate a unique lab number")
	ErrDocumentNotFound   = errors.New("document not found")
	ErrNoLabNumber        = errors.New("no lab number could be determined")
	ErrUnsupportedContent = errors.New("unsupported content type")
	ErrFileTooLarge       = errors.New("uploaded file too large")
)

// User errors
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrWorkerIDRequired = errors.New("worker id required")
	ErrWorkerIDExists   = errors.New("worker id already exists")
	ErrWrongPassword    = errors.New("current password incorrect")
)

// UpstreamError carries a non-success response from the PDF/analyzer
// collaborator back to the caller. Handlers propagate Status and Body
// verbatim instead of mapping them to a local error class.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.Status, e.Body)
}

// AsUpstream unwraps err into an *UpstreamError if it is one.
func AsUpstream(err error) (*UpstreamError, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}
