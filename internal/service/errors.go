package service

import "errors"

// ErrInvalidInput marks request inputs rejected before reaching Cognito.
var ErrInvalidInput = errors.New("invalid input")
