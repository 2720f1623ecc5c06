package progress

import (
	"errors"
	"fmt"
)

// Sentinel errors for error categorization. Callers check them with
// errors.Is; specific failures wrap one of these two.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
)

func titleRequired(what string) error {
	return fmt.Errorf("%w: %s title is required", ErrValidation, what)
}

func goalNotFound(id string) error {
	return fmt.Errorf("%w: goal %q", ErrNotFound, id)
}

func levelNotFound(id int) error {
	return fmt.Errorf("%w: level %d", ErrNotFound, id)
}

func taskNotFound(id string) error {
	return fmt.Errorf("%w: task %q", ErrNotFound, id)
}
