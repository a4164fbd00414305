package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestPredicates(t *testing.T) {
	cases := []struct {
		err       error
		notFound  bool
		validate  bool
		conflict  bool
		forbidden bool
	}{
		{NotFound("project", 10), true, false, false, false},
		{Validation("bad input"), false, true, false, false},
		{Conflict("duplicate"), false, false, true, false},
		{Forbidden(1, "not yours"), false, false, false, true},
		{errors.New("plain"), false, false, false, false},
		{nil, false, false, false, false},
	}

	for _, tc := range cases {
		if got := IsNotFound(tc.err); got != tc.notFound {
			t.Errorf("IsNotFound(%v) = %v, want %v", tc.err, got, tc.notFound)
		}
		if got := IsValidation(tc.err); got != tc.validate {
			t.Errorf("IsValidation(%v) = %v, want %v", tc.err, got, tc.validate)
		}
		if got := IsConflict(tc.err); got != tc.conflict {
			t.Errorf("IsConflict(%v) = %v, want %v", tc.err, got, tc.conflict)
		}
		if got := IsForbidden(tc.err); got != tc.forbidden {
			t.Errorf("IsForbidden(%v) = %v, want %v", tc.err, got, tc.forbidden)
		}
	}
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("loading owner: %w", NotFound("project", 10))
	if !IsNotFound(err) {
		t.Fatal("wrapped NotFoundError not detected")
	}
}

func TestStorePassesTaxonomyErrorsThrough(t *testing.T) {
	conflict := Conflict("duplicate proposal")
	if got := Store("insert", conflict); got != conflict {
		t.Fatalf("Store rewrapped taxonomy error: %v", got)
	}
}

func TestStoreWrapsInfrastructureErrors(t *testing.T) {
	cause := errors.New("connection refused")
	err := Store("insert", cause)

	var se *StoreError
	if !errors.As(err, &se) {
		t.Fatalf("err = %T, want *StoreError", err)
	}
	if !errors.Is(err, cause) {
		t.Fatal("StoreError does not unwrap to its cause")
	}
	if IsNotFound(err) || IsValidation(err) || IsConflict(err) || IsForbidden(err) {
		t.Fatal("StoreError matched a taxonomy predicate")
	}
}

func TestStoreNilIsNil(t *testing.T) {
	if err := Store("insert", nil); err != nil {
		t.Fatalf("Store(nil) = %v, want nil", err)
	}
}

func TestNotFoundMessage(t *testing.T) {
	if got := NotFound("proposal", 7).Error(); got != "proposal 7 not found" {
		t.Fatalf("message = %q", got)
	}
}
