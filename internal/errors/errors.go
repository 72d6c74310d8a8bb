package errors

import (
	"errors"
	"net/http"
)

// Kind classifies an APIError so callers can branch on the failure instead of
// parsing messages. Every error leaving a handler carries one.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindUnauthorized      Kind = "unauthorized"
	KindAuthorization     Kind = "authorization"
	KindProposalRequired  Kind = "proposal_required"
	KindInvalidTransition Kind = "invalid_transition"
	KindConflict          Kind = "conflict"
	KindUpload            Kind = "upload"
	KindNotFound          Kind = "not_found"
	KindInternal          Kind = "internal"
)

// APIError is the single error type the HTTP layer renders.
type APIError struct {
	Status   int    `json:"-"`
	Kind     Kind   `json:"kind"`
	Message  string `json:"message"`
	Internal error  `json:"-"`
}

func (e *APIError) Error() string {
	if e.Internal != nil {
		return e.Message + ": " + e.Internal.Error()
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Internal
}

func newError(status int, kind Kind, message string, err error) *APIError {
	return &APIError{Status: status, Kind: kind, Message: message, Internal: err}
}

// Validation: missing or malformed input.
func Validation(message string, err error) *APIError {
	return newError(http.StatusBadRequest, KindValidation, message, err)
}

// Unauthorized: missing or invalid identity token.
func Unauthorized(message string, err error) *APIError {
	return newError(http.StatusUnauthorized, KindUnauthorized, message, err)
}

// Forbidden: generic role rejection, e.g. a non-owner attempting a transition.
func Forbidden(message string, err error) *APIError {
	return newError(http.StatusForbidden, KindAuthorization, message, err)
}

// ProposalRequired: the requester may not write directly and must route the
// edit through a proposal. Distinct from Forbidden so the UI can redirect
// into the proposal flow instead of retrying.
func ProposalRequired(message string, err error) *APIError {
	return newError(http.StatusForbidden, KindProposalRequired, message, err)
}

// InvalidTransition: illegal review state-machine edge.
func InvalidTransition(message string, err error) *APIError {
	return newError(http.StatusBadRequest, KindInvalidTransition, message, err)
}

// Conflict: the canonical record moved since the diff was computed.
func Conflict(message string, err error) *APIError {
	return newError(http.StatusConflict, KindConflict, message, err)
}

// Upload: a single file failed within a batch. Reported per file; the rest of
// the batch proceeds.
func Upload(message string, err error) *APIError {
	return newError(http.StatusBadRequest, KindUpload, message, err)
}

// NotFound: missing project or proposal.
func NotFound(message string, err error) *APIError {
	return newError(http.StatusNotFound, KindNotFound, message, err)
}

// Internal wraps an error we did not classify.
func Internal(err error) *APIError {
	return newError(http.StatusInternalServerError, KindInternal, "Internal server error", err)
}

// IsKind reports whether err is an APIError of the given kind.
func IsKind(err error, kind Kind) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind == kind
	}
	return false
}
