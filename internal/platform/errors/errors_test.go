package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	t.Parallel()

	err := New(CodeVersionConflict, "job version changed")
	if !errors.Is(err, New(CodeVersionConflict, "different message")) {
		t.Fatal("expected code match")
	}
	if errors.Is(err, New(CodeNotFound, "job version changed")) {
		t.Fatal("expected code mismatch")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("disk full")
	err := Wrap(CodeStoreUnavailable, "persist job", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause in chain")
	}
	wrapped := fmt.Errorf("accept proposal: %w", err)
	var domainErr *Error
	if !errors.As(wrapped, &domainErr) {
		t.Fatal("expected domain error in chain")
	}
	if domainErr.Code != CodeStoreUnavailable {
		t.Fatalf("code = %q, want %q", domainErr.Code, CodeStoreUnavailable)
	}
}

func TestNewValidationCarriesViolations(t *testing.T) {
	t.Parallel()

	err := NewValidation("invalid job", []FieldViolation{
		{Field: "budget", Description: "must be greater than zero"},
		{Field: "skills", Description: "must not be empty"},
	})
	if err.Code != CodeValidationFailure {
		t.Fatalf("code = %q, want %q", err.Code, CodeValidationFailure)
	}
	if len(err.Violations) != 2 {
		t.Fatalf("violations = %d, want 2", len(err.Violations))
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code Code
		want int
	}{
		{CodeValidationFailure, http.StatusUnprocessableEntity},
		{CodeNotFound, http.StatusNotFound},
		{CodeForbidden, http.StatusForbidden},
		{CodeInvalidState, http.StatusConflict},
		{CodeDuplicateProposal, http.StatusConflict},
		{CodeAlreadyAccepted, http.StatusConflict},
		{CodeVersionConflict, http.StatusConflict},
		{CodeStoreUnavailable, http.StatusServiceUnavailable},
		{CodeUnknown, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := tc.code.HTTPStatus(); got != tc.want {
			t.Fatalf("HTTPStatus(%s) = %d, want %d", tc.code, got, tc.want)
		}
	}
}
