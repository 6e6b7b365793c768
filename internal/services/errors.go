package services

import "errors"

var (
	ErrUserAlreadyExists  = errors.New("user with this email or phone number already exists")
	ErrIdentifierRequired = errors.New("email or phone number is required")
	ErrNotVerified        = errors.New("identifier not verified")
	ErrFlowNotFound       = errors.New("no account creation in progress for this identifier")
	ErrMissingFields      = errors.New("all required fields must be provided")
	ErrDetailsExpired     = errors.New("user details not found or expired")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrTokenMismatch      = errors.New("token was issued for a different identifier")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account temporarily locked due to failed login attempts")
	ErrInternal           = errors.New("internal server error")
)
