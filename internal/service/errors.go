package service

import "errors"

// ErrValidation marks input that fails form validation. Handlers map it
// to a 400 with the message surfaced inline.
var ErrValidation = errors.New("validation failed")
