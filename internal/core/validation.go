package core

import "fmt"

// ValidationResult is either Valid or Invalid. The unexported marker method
// keeps the set closed to this package.
type ValidationResult interface {
	IsValid() bool
	validationResult()
}

// Valid is the success variant.
type Valid struct{}

// Invalid names the offending field and the underlying sentinel error.
type Invalid struct {
	Field string
	Err   error
}

func (Valid) IsValid() bool     { return true }
func (Valid) validationResult() {}

func (Invalid) IsValid() bool     { return false }
func (Invalid) validationResult() {}

func (i Invalid) Error() string {
	return fmt.Sprintf("%s: %v", i.Field, i.Err)
}

func (i Invalid) Unwrap() error { return i.Err }

// AsError converts a result into a plain error, nil for Valid.
func AsError(r ValidationResult) error {
	if inv, ok := r.(Invalid); ok {
		return inv
	}
	return nil
}
