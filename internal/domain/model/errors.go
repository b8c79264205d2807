package model

import "errors"

// Validation errors for domain models.
var (
	ErrIDRequired          = errors.New("id is required")
	ErrNameRequired        = errors.New("name is required")
	ErrEmailRequired       = errors.New("email is required")
	ErrEmailInvalid        = errors.New("email is invalid")
	ErrPasswordTooShort    = errors.New("password must be at least 8 characters")
	ErrPasswordHashMissing = errors.New("password hash is required")
	ErrInvalidRole         = errors.New("invalid role")
)
