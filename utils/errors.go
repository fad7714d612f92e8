package utils

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindNotFound
	KindAuth
	KindForbidden
	KindConflict
)

func (k ErrorKind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindAuth:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error codes returned to clients in the response "error" field.
const (
	CodeUserNotFound              = "UserNotFound"
	CodeInvalidCredential         = "InvalidCredential"
	CodeMissingRefreshToken       = "MissingRefreshToken"
	CodeSessionNotFound           = "SessionNotFound"
	CodeRefreshTokenExpired       = "RefreshTokenExpired"
	CodeMissingAuthHeader         = "MissingAuthHeader"
	CodeInvalidTokenFormat        = "InvalidTokenFormat"
	CodeTokenExpired              = "TokenExpired"
	CodeTokenInvalid              = "TokenInvalid"
	CodeSessionExpiredOrLoggedOut = "SessionExpiredOrLoggedOut"
	CodeInvalidUserID             = "InvalidUserId"
	CodeValidationFailed          = "ValidationFailed"
	CodeNotFound                  = "NotFound"
	CodeConflict                  = "Conflict"
	CodeForbidden                 = "Forbidden"
	CodeInternal                  = "InternalError"
)

// AppError carries a client-safe message and code. Err holds the underlying
// cause for server-side logging and is never serialized.
type AppError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

func (e *AppError) Status() int { return e.Kind.Status() }

func NewError(kind ErrorKind, code, message string) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message}
}

func Validation(message string) *AppError {
	return NewError(KindValidation, CodeValidationFailed, message)
}

func NotFound(message string) *AppError {
	return NewError(KindNotFound, CodeNotFound, message)
}

func Conflict(message string) *AppError {
	return NewError(KindConflict, CodeConflict, message)
}

func Forbidden(message string) *AppError {
	return NewError(KindForbidden, CodeForbidden, message)
}

func Internal(err error) *AppError {
	return &AppError{Kind: KindInternal, Code: CodeInternal, Message: "Internal server error", Err: err}
}

// AsAppError returns err as an *AppError, wrapping unknown errors as internal.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

var (
	ErrUserNotFound              = NewError(KindNotFound, CodeUserNotFound, "User does not exist")
	ErrInvalidCredential         = NewError(KindAuth, CodeInvalidCredential, "Invalid credentials")
	ErrMissingRefreshToken       = NewError(KindAuth, CodeMissingRefreshToken, "Refresh token required")
	ErrSessionNotFound           = NewError(KindAuth, CodeSessionNotFound, "Invalid refresh token")
	ErrRefreshTokenExpired       = NewError(KindAuth, CodeRefreshTokenExpired, "Refresh token expired")
	ErrMissingAuthHeader         = NewError(KindAuth, CodeMissingAuthHeader, "Authorization token missing")
	ErrInvalidTokenFormat        = NewError(KindAuth, CodeInvalidTokenFormat, "Invalid token format")
	ErrTokenExpired              = NewError(KindAuth, CodeTokenExpired, "Token expired, please login again")
	ErrTokenInvalid              = NewError(KindAuth, CodeTokenInvalid, "Invalid token")
	ErrSessionExpiredOrLoggedOut = NewError(KindAuth, CodeSessionExpiredOrLoggedOut, "Session expired or logged out")
	ErrInvalidUserID             = NewError(KindValidation, CodeInvalidUserID, "Invalid userId")
)
