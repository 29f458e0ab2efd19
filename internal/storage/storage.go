package storage

import "errors"

var (
	ErrCodeExists    = errors.New("verification code already exists")
	ErrCodeNotFound  = errors.New("verification code not found")
	ErrTokenNotFound = errors.New("download token not found")
)
