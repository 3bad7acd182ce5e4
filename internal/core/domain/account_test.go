package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"User":    RoleUser,
		"user":    RoleUser,
		"COMPANY": RoleCompany,
		"dRiVeR":  RoleDriver,
		" admin ": RoleAdmin,
	}
	for in, want := range cases {
		got, err := ParseRole(in)
		if err != nil {
			t.Fatalf("ParseRole(%q) returned error: %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseRole(%q) = %s, want %s", in, got, want)
		}
	}

	for _, in := range []string{"", "guest", "users", "1"} {
		if _, err := ParseRole(in); !errors.Is(err, ErrInvalidRole) {
			t.Fatalf("ParseRole(%q): expected ErrInvalidRole, got %v", in, err)
		}
	}
}

func TestRole_RequiresApproval(t *testing.T) {
	if RoleUser.RequiresApproval() || RoleAdmin.RequiresApproval() {
		t.Fatalf("user and admin must not be approval-gated")
	}
	if !RoleCompany.RequiresApproval() || !RoleDriver.RequiresApproval() {
		t.Fatalf("company and driver must be approval-gated")
	}
}

func TestAccount_Public(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	a := &Account{ID: "1", Email: "a@x.com", PasswordHash: "$2a$11$hash", Role: RoleDriver, CreatedAt: created}

	p := a.Public()
	if p.ID != "1" || p.Email != "a@x.com" || p.Role != RoleDriver || p.IsApproved || !p.CreatedAt.Equal(created) {
		t.Fatalf("unexpected public view: %+v", p)
	}
}

func TestInternalError(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("register: %w", Internal("insert account", cause))

	if !errors.Is(err, ErrInternal) {
		t.Fatalf("expected ErrInternal match")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable")
	}
	if errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("internal error must not match a domain kind")
	}
}

func TestKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{ErrInvalidRole, "invalid_role"},
		{fmt.Errorf("insert: %w", ErrEmailAlreadyRegistered), "email_already_registered"},
		{ErrInvalidCredentials, "invalid_credentials"},
		{ErrAccountNotApproved, "account_not_approved"},
		{ErrAccountNotFound, "account_not_found"},
		{ErrIncorrectPassword, "incorrect_password"},
		{Internal("op", errors.New("x")), "internal"},
		{errors.New("anything else"), "internal"},
	}
	for _, tc := range cases {
		if got := Kind(tc.err); got != tc.want {
			t.Fatalf("Kind(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}
