package domain

import "errors"

var (
	ErrInvalidRole            = errors.New("invalid role")
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrAccountNotApproved     = errors.New("account not approved yet")
	ErrAccountNotFound        = errors.New("user not found")
	ErrIncorrectPassword      = errors.New("current password incorrect")
	ErrInternal               = errors.New("internal failure")
)

// InternalError carries the cause of an unexpected failure. It matches
// ErrInternal under errors.Is and unwraps to the underlying cause.
type InternalError struct {
	Op  string
	Err error
}

// Internal wraps err as an InternalError for operation op.
func Internal(op string, err error) error {
	return &InternalError{Op: op, Err: err}
}

func (e *InternalError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *InternalError) Unwrap() error { return e.Err }

func (e *InternalError) Is(target error) bool { return target == ErrInternal }

// Kind returns a stable classification of err for logs and metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidRole):
		return "invalid_role"
	case errors.Is(err, ErrEmailAlreadyRegistered):
		return "email_already_registered"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrAccountNotApproved):
		return "account_not_approved"
	case errors.Is(err, ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, ErrIncorrectPassword):
		return "incorrect_password"
	default:
		return "internal"
	}
}
