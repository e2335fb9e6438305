package registry

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation      = errors.New("entity validation failed")
	ErrDuplicateEntity = errors.New("entity already registered")
	ErrUnknownEntity   = errors.New("unknown entity")
)

// ValidationError lists the problems found in one entity declaration.
type ValidationError struct {
	Role     string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("entity %q is invalid: %s", e.Role, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
