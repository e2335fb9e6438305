package generator

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidGroup is returned when a generator is added to a group
	// that does not exist.
	ErrInvalidGroup = errors.New("invalid generator group")

	// ErrGeneratorResolution is returned when a generator reference
	// cannot be turned into a generator.
	ErrGeneratorResolution = errors.New("generator resolution failed")

	// ErrUnknownGenerator is returned by a Catalog for names it does not
	// know.
	ErrUnknownGenerator = errors.New("unknown generator")
)

// InvalidGroupError names the group that was rejected.
type InvalidGroupError struct {
	Group Group
}

func (e *InvalidGroupError) Error() string {
	return fmt.Sprintf("invalid generator group %q, expected one of %v", e.Group, Groups)
}

func (e *InvalidGroupError) Is(target error) bool {
	return target == ErrInvalidGroup
}

// ResolutionError wraps the failure to resolve a reference.
type ResolutionError struct {
	Ref Ref
	Err error
}

func (e *ResolutionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("cannot resolve generator %q", e.Ref)
	}
	return fmt.Sprintf("cannot resolve generator %q: %v", e.Ref, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

func (e *ResolutionError) Is(target error) bool {
	return target == ErrGeneratorResolution
}
