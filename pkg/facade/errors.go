package facade

import (
	"errors"
	"fmt"
)

var (
	// ErrNoShape is returned when the owner holds no shape.
	ErrNoShape = errors.New("owner has no shape")

	// ErrPlaneNotFound is returned by FindPlane when the shape does not lie
	// in a single plane within the tolerance.
	ErrPlaneNotFound = errors.New("no plane found")
)

// OpError records the facade operation that failed and the underlying cause.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// Status maps an operation result to the integer status contract:
// 0 for success, 1 for any failure.
func Status(err error) int {
	if err != nil {
		return 1
	}
	return 0
}
