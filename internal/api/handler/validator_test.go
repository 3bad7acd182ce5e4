package handler

import (
	"errors"
	"strings"
	"testing"
)

func TestNewValidator_EnforcesPasswordByteLimit(t *testing.T) {
	v := NewValidator()

	ok := changePasswordRequest{CurrentPassword: "old", NewPassword: strings.Repeat("a", maxPasswordBytes)}
	if err := v.Validate(&ok); err != nil {
		t.Fatalf("expected %d-byte password to pass, got %v", maxPasswordBytes, err)
	}

	long := changePasswordRequest{CurrentPassword: "old", NewPassword: strings.Repeat("a", maxPasswordBytes+1)}
	err := v.Validate(&long)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(ve.Fields) != 1 || ve.Fields[0] != "newPassword must be at most 72 bytes" {
		t.Fatalf("unexpected fields: %v", ve.Fields)
	}
}

func TestNewValidator_RegistersBcryptTag(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("NewValidator panicked: %v", r)
		}
	}()

	if err := NewValidator().v.Var(strings.Repeat("x", maxPasswordBytes+1), bcryptTag); err == nil {
		t.Fatalf("expected %q tag to reject long input", bcryptTag)
	}
}
