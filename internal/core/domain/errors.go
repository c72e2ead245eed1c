package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNoFiles            = errors.New("no files uploaded")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrTemporary          = errors.New("temporary failure")
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrRecognition is reported by an OCR backend that accepted the request
	// but could not recognise text in it.
	ErrRecognition      = errors.New("recognition failed")
	ErrUnsupportedInput = errors.New("unsupported input")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
