package helper

import "fmt"

// Error wraps an underlying error with the operation context it occurred in.
type Error struct {
	Context string
	Err     error
}

// NewError creates a new Error with the given operation context.
func NewError(context string, err error) *Error {
	return &Error{
		Context: context,
		Err:     err,
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("error in %v: %v", e.Context, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
