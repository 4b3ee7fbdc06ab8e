package auth

import "fmt"

// ValidationError marks malformed client input. The HTTP boundary surfaces
// it as a 400 with the message verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// AuthError marks an authentication failure. The HTTP boundary surfaces it
// as a 401. The client-visible message never distinguishes unknown email
// from wrong password; the distinction is log-only.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AuthError) Unwrap() error { return e.Err }
