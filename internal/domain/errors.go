package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidImage       = errors.New("invalid image")
	ErrUnsupportedImage   = errors.New("unsupported image format")
	ErrImageTooLarge      = errors.New("image too large")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrInvalidInput       = errors.New("invalid input")
	ErrImageInUse         = errors.New("image is used by a generation")
)
