package utils

import "errors"

var (
	ErrEmptyField    = errors.New("required field is missing")
	ErrInvalidEmail  = errors.New("invalid email address")
	ErrEmptyURL      = errors.New("URL cannot be empty")
	ErrInvalidURL    = errors.New("invalid URL format")
	ErrInvalidScheme = errors.New("URL scheme must be http or https")
	ErrEmptyHost     = errors.New("URL host cannot be empty")
)
