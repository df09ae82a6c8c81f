package entity

import (
	"errors"
	"strings"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("invalid authentication credentials")
	ErrTooManyRequests = errors.New("too many requests")
	ErrUsernameTaken   = errors.New("username already taken")
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when a payload fails validation. It is rendered as a 400 with the
// field list as detail.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}
