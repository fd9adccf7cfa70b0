// Package errors provides structured error handling for engine operations.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// CodeValidationFailure reports one or more violated input fields.
	CodeValidationFailure Code = "VALIDATION_FAILURE"
	// CodeNotFound indicates a referenced entity is absent.
	CodeNotFound Code = "NOT_FOUND"
	// CodeForbidden indicates the caller lacks role or ownership for the action.
	CodeForbidden Code = "FORBIDDEN"
	// CodeInvalidState indicates the action is not legal from the entity's current state.
	CodeInvalidState Code = "INVALID_STATE"
	// CodeDuplicateProposal indicates the freelancer already holds an active proposal on the job.
	CodeDuplicateProposal Code = "DUPLICATE_PROPOSAL"
	// CodeAlreadyAccepted indicates another proposal was already accepted for the job.
	CodeAlreadyAccepted Code = "ALREADY_ACCEPTED"
	// CodeVersionConflict reports an optimistic-concurrency collision; recoverable by re-read and retry.
	CodeVersionConflict Code = "VERSION_CONFLICT"
	// CodeStoreUnavailable reports an infrastructure fault in the entity store.
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE"
)

// HTTPStatus maps domain codes to HTTP status codes for the API adapter.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidationFailure:
		return http.StatusUnprocessableEntity
	case CodeNotFound:
		return http.StatusNotFound
	case CodeForbidden:
		return http.StatusForbidden
	case CodeInvalidState,
		CodeDuplicateProposal,
		CodeAlreadyAccepted,
		CodeVersionConflict:
		return http.StatusConflict
	case CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
