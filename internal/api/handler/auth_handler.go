package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mycabs/identity/internal/api/metrics"
	"github.com/mycabs/identity/internal/core/domain"
	"github.com/mycabs/identity/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,bcrypt"`
	Role     string `json:"role" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,bcrypt"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,bcrypt"`
}

type updateAccountRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type loginResponse struct {
	Token     string               `json:"token"`
	ExpiresAt time.Time            `json:"expiresAt"`
	User      domain.PublicAccount `json:"user"`
}

// Register creates a new account. Company, Driver and Admin accounts start
// unapproved.
//
// @Summary      Register a new account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Registration details"
// @Success      201   {object}  Response
// @Failure      400   {object}  Response
// @Failure      409   {object}  Response
// @Failure      500   {object}  Response
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	_, err := h.authService.Register(c.Request().Context(), req.Email, req.Password, req.Role)
	record("register", err)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, OK(nil, "Registered successfully"))
}

// Login authenticates an account and returns a bearer token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  Response{data=loginResponse}
// @Failure      400   {object}  Response
// @Failure      401   {object}  Response
// @Failure      403   {object}  Response
// @Failure      500   {object}  Response
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	record("login", err)
	if err != nil {
		return err
	}
	metrics.TokensIssuedTotal.WithLabelValues(res.Account.Role.String()).Inc()

	return c.JSON(http.StatusOK, OK(loginResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		User:      res.Account,
	}, "Login successful"))
}

// ChangePassword replaces the caller's password after checking the current one.
//
// @Summary      Change password
// @Tags         auth
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      changePasswordRequest  true  "Current and new password"
// @Success      200   {object}  Response
// @Failure      400   {object}  Response
// @Failure      401   {object}  Response
// @Failure      404   {object}  Response
// @Failure      500   {object}  Response
// @Router       /auth/change-password [put]
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	principal, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req changePasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	err = h.authService.ChangePassword(c.Request().Context(), principal.AccountID, req.CurrentPassword, req.NewPassword)
	record("change_password", err)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, OK(nil, "Password changed"))
}

// UpdateAccount changes the caller's email.
//
// @Summary      Update account
// @Tags         auth
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      updateAccountRequest  true  "New email"
// @Success      200   {object}  Response
// @Failure      400   {object}  Response
// @Failure      401   {object}  Response
// @Failure      404   {object}  Response
// @Failure      409   {object}  Response
// @Failure      500   {object}  Response
// @Router       /auth/update-account [put]
func (h *AuthHandler) UpdateAccount(c echo.Context) error {
	principal, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req updateAccountRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	err = h.authService.UpdateAccount(c.Request().Context(), principal.AccountID, req.Email)
	record("update_account", err)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, OK(nil, "Account updated"))
}

// Me returns the identity carried by the bearer token.
//
// @Summary      Current principal
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200   {object}  Response{data=domain.Principal}
// @Failure      401   {object}  Response
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	principal, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, OK(principal, ""))
}

func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	return c.Validate(req)
}

func record(operation string, err error) {
	metrics.AuthOperationsTotal.WithLabelValues(operation, domain.Kind(err)).Inc()
}
