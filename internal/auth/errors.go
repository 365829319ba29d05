package auth

import "errors"

var (
	ErrNotFound           = errors.New("auth: not found")
	ErrAlreadyExists      = errors.New("auth: already exists")
	ErrInvalidInput       = errors.New("auth: invalid input")
	ErrInvalidCredentials = errors.New("auth: invalid email or password")
	ErrUnconfirmed        = errors.New("auth: account is not active")
	ErrUnauthorized       = errors.New("auth: unauthorized")
)
