package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mycabs/identity/internal/core/domain"
	"github.com/mycabs/identity/internal/core/ports"
)

type stubAuthService struct {
	registerFn       func(ctx context.Context, email, password, role string) (*domain.PublicAccount, error)
	loginFn          func(ctx context.Context, email, password string) (*ports.LoginResult, error)
	changePasswordFn func(ctx context.Context, accountID, current, next string) error
	updateAccountFn  func(ctx context.Context, accountID, email string) error
}

func (s *stubAuthService) Register(ctx context.Context, email, password, role string) (*domain.PublicAccount, error) {
	return s.registerFn(ctx, email, password, role)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) ChangePassword(ctx context.Context, accountID, current, next string) error {
	return s.changePasswordFn(ctx, accountID, current, next)
}

func (s *stubAuthService) UpdateAccount(ctx context.Context, accountID, email string) error {
	return s.updateAccountFn(ctx, accountID, email)
}

func newContext(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return resp
}

func TestAuthHandler_Register_Success(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, email, password, role string) (*domain.PublicAccount, error) {
			if email != "a@example.com" || password != "secret" || role != "company" {
				t.Fatalf("unexpected args: %s %s %s", email, password, role)
			}
			return &domain.PublicAccount{ID: "1", Email: email, Role: domain.RoleCompany}, nil
		},
	}
	c, rec := newContext(http.MethodPost, "/api/auth/register", `{"email":"a@example.com","password":"secret","role":"company"}`)

	if err := NewAuthHandler(stub).Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	resp := decode(t, rec)
	if resp["success"] != true || resp["message"] != "Registered successfully" {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	if _, ok := resp["data"]; ok {
		t.Fatalf("register must not return data, got %+v", resp["data"])
	}
}

func TestAuthHandler_Register_ValidationListsEveryField(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(context.Context, string, string, string) (*domain.PublicAccount, error) {
			t.Fatalf("service must not be called")
			return nil, nil
		},
	}
	c, _ := newContext(http.MethodPost, "/api/auth/register", `{"email":"not-an-email"}`)

	err := NewAuthHandler(stub).Register(c)

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	want := []string{"email must be a valid email", "password is required", "role is required"}
	if len(ve.Fields) != len(want) {
		t.Fatalf("expected %v, got %v", want, ve.Fields)
	}
	for i := range want {
		if ve.Fields[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, ve.Fields)
		}
	}
}

func TestAuthHandler_Register_PasswordTooLongForBcrypt(t *testing.T) {
	stub := &stubAuthService{}
	body := `{"email":"a@example.com","password":"` + strings.Repeat("é", 40) + `","role":"user"}`
	c, _ := newContext(http.MethodPost, "/api/auth/register", body)

	err := NewAuthHandler(stub).Register(c)

	var ve *ValidationError
	if !errors.As(err, &ve) || len(ve.Fields) != 1 || ve.Fields[0] != "password must be at most 72 bytes" {
		t.Fatalf("expected byte-length failure, got %v", err)
	}
}

func TestAuthHandler_Register_ServiceErrorPassesThrough(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(context.Context, string, string, string) (*domain.PublicAccount, error) {
			return nil, domain.ErrEmailAlreadyRegistered
		},
	}
	c, _ := newContext(http.MethodPost, "/api/auth/register", `{"email":"a@example.com","password":"secret","role":"user"}`)

	if err := NewAuthHandler(stub).Register(c); !errors.Is(err, domain.ErrEmailAlreadyRegistered) {
		t.Fatalf("expected ErrEmailAlreadyRegistered, got %v", err)
	}
}

func TestAuthHandler_Register_MalformedBody(t *testing.T) {
	c, _ := newContext(http.MethodPost, "/api/auth/register", `{"email":`)

	err := NewAuthHandler(&stubAuthService{}).Register(c)

	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 HTTPError, got %v", err)
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	created := time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, email, password string) (*ports.LoginResult, error) {
			return &ports.LoginResult{
				Token:     "signed.jwt.token",
				ExpiresAt: created.Add(24 * time.Hour),
				Account: domain.PublicAccount{
					ID:         "acc-1",
					Email:      email,
					Role:       domain.RoleUser,
					IsApproved: true,
					CreatedAt:  created,
				},
			}, nil
		},
	}
	c, rec := newContext(http.MethodPost, "/api/auth/login", `{"email":"a@example.com","password":"secret"}`)

	if err := NewAuthHandler(stub).Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decode(t, rec)
	if resp["message"] != "Login successful" {
		t.Fatalf("unexpected message: %v", resp["message"])
	}
	data, ok := resp["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data in response")
	}
	if data["token"] != "signed.jwt.token" {
		t.Fatalf("unexpected token: %v", data["token"])
	}
	user, ok := data["user"].(map[string]any)
	if !ok {
		t.Fatalf("expected user in response")
	}
	if user["id"] != "acc-1" || user["role"] != "User" || user["isApproved"] != true || user["email"] != "a@example.com" {
		t.Fatalf("unexpected user payload: %+v", user)
	}
	if _, leaked := user["passwordHash"]; leaked {
		t.Fatalf("password hash must never be serialised")
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(context.Context, string, string) (*ports.LoginResult, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}
	c, rec := newContext(http.MethodPost, "/api/auth/login", `{"email":"a@example.com","password":"wrong"}`)

	if err := NewAuthHandler(stub).Login(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("handler must leave rendering to the error handler")
	}
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	var gotID, gotCurrent, gotNew string
	stub := &stubAuthService{
		changePasswordFn: func(ctx context.Context, accountID, current, next string) error {
			gotID, gotCurrent, gotNew = accountID, current, next
			return nil
		},
	}
	c, rec := newContext(http.MethodPut, "/api/auth/change-password", `{"currentPassword":"old","newPassword":"new"}`)
	c.Set(PrincipalKey, &domain.Principal{AccountID: "acc-1", Role: domain.RoleUser})

	if err := NewAuthHandler(stub).ChangePassword(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotID != "acc-1" || gotCurrent != "old" || gotNew != "new" {
		t.Fatalf("unexpected args: %s %s %s", gotID, gotCurrent, gotNew)
	}
	if resp := decode(t, rec); resp["message"] != "Password changed" {
		t.Fatalf("unexpected message: %v", resp["message"])
	}
}

func TestAuthHandler_ChangePassword_RequiresPrincipal(t *testing.T) {
	c, _ := newContext(http.MethodPut, "/api/auth/change-password", `{"currentPassword":"old","newPassword":"new"}`)

	err := NewAuthHandler(&stubAuthService{}).ChangePassword(c)

	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestAuthHandler_UpdateAccount(t *testing.T) {
	stub := &stubAuthService{
		updateAccountFn: func(ctx context.Context, accountID, email string) error {
			if accountID != "acc-1" || email != "new@example.com" {
				t.Fatalf("unexpected args: %s %s", accountID, email)
			}
			return nil
		},
	}
	c, rec := newContext(http.MethodPut, "/api/auth/update-account", `{"email":"new@example.com"}`)
	c.Set(PrincipalKey, &domain.Principal{AccountID: "acc-1", Role: domain.RoleUser})

	if err := NewAuthHandler(stub).UpdateAccount(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if resp := decode(t, rec); resp["message"] != "Account updated" {
		t.Fatalf("unexpected message: %v", resp["message"])
	}
}

func TestAuthHandler_Me(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/api/auth/me", "")
	c.Set(PrincipalKey, &domain.Principal{AccountID: "acc-9", Role: domain.RoleAdmin})

	if err := NewAuthHandler(&stubAuthService{}).Me(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	data, ok := decode(t, rec)["data"].(map[string]any)
	if !ok || data["id"] != "acc-9" || data["role"] != "Admin" {
		t.Fatalf("unexpected principal payload: %+v", data)
	}
}
