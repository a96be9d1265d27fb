package service

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrDrawingNotFound      = errors.New("drawing not found")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrRegistrationFailed   = errors.New("registration failed: username or email already exists")
	ErrInvalidDrawingType   = errors.New("unknown drawing type")
	ErrInvalidCommand       = errors.New("invalid command data")
	ErrInternalServer       = errors.New("internal server error")
)
