package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestHelpersSeeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("search: %w", NotFound("route"))
	if !IsNotFound(err) {
		t.Fatalf("expected not found through wrap")
	}
	if IsValidation(err) || IsConflict(err) {
		t.Fatalf("unexpected classification for %v", err)
	}
	if err.Error() != "search: route not found" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestValidationMessageIsSorted(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"passengers": "min", "dropoff": "required"}}
	if got := err.Error(); got != "validation failed: dropoff: required; passengers: min" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestCollaboratorUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := Collaborator("create reservation", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable")
	}
	if Collaborator("noop", nil) != nil {
		t.Fatalf("nil cause must stay nil")
	}
}
