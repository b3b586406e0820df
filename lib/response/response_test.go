package response

import (
	"net/http"
	"strings"
	"testing"
)

func TestAppErrorStatusCodes(t *testing.T) {
	tests := []struct {
		err  AppError
		want int
	}{
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrForbidden, http.StatusForbidden},
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrTaskNotFound, http.StatusNotFound},
		{ErrAccessDenied, http.StatusForbidden},
		{ErrInternalError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if tt.err.StatusCode != tt.want {
			t.Fatalf("%s: expected status %d, got %d", tt.err.Code, tt.want, tt.err.StatusCode)
		}
		resp := tt.err.Response()
		if resp.StatusCode != tt.want {
			t.Fatalf("%s: Response() status %d, want %d", tt.err.Code, resp.StatusCode, tt.want)
		}
	}
}

func TestTaskNotFoundHidesExistence(t *testing.T) {
	// The message must not distinguish a missing task from a denied one.
	if !strings.Contains(ErrTaskNotFound.Message, "access denied") {
		t.Fatalf("expected ambiguous not-found message, got %q", ErrTaskNotFound.Message)
	}
}

func TestNewErrorWithDetails(t *testing.T) {
	err := NewErrorWithDetails(ErrorCodeValidationError, "Validation failed", http.StatusBadRequest, "title: required")
	if err.Details != "title: required" {
		t.Fatalf("expected details to be kept, got %q", err.Details)
	}
	if !strings.Contains(err.Error(), string(ErrorCodeValidationError)) {
		t.Fatalf("Error() must include the code, got %q", err.Error())
	}
}
