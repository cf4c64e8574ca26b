package model

import (
	"fmt"

	"github.com/chazu/brepfacade/pkg/geom"
	"github.com/chazu/brepfacade/pkg/kernel"
)

// Severity indicates whether a finding makes the model unusable or is
// merely informational.
type Severity int

const (
	SeverityError   Severity = iota // unusable object
	SeverityWarning                 // informational
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// ValidationError describes a single finding about an object.
type ValidationError struct {
	Object   string
	Message  string
	Severity Severity
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] object %q: %s", e.Severity, e.Object, e.Message)
}

// Validate checks every object against k: each must hold a shape the kernel
// accepts and can bound. Solids that are flat along an axis produce a
// warning. The model is never mutated.
func Validate(m *Model, k kernel.Kernel) []ValidationError {
	var errs []ValidationError
	for _, o := range m.objects {
		errs = append(errs, validateObject(o, k)...)
	}
	return errs
}

func validateObject(o *Object, k kernel.Kernel) []ValidationError {
	fail := func(sev Severity, format string, args ...any) []ValidationError {
		return []ValidationError{{Object: o.Name, Message: fmt.Sprintf(format, args...), Severity: sev}}
	}
	if o.shape == nil {
		return fail(SeverityError, "has no shape")
	}
	if err := k.Validate(o.shape); err != nil {
		return fail(SeverityError, "invalid shape: %v", err)
	}
	b, err := k.BoundingBox(o.shape, 0)
	if err != nil {
		return fail(SeverityError, "cannot be bounded: %v", err)
	}
	if o.Kind == KindSolid && isFlat(b) {
		return fail(SeverityWarning, "solid has zero extent along an axis")
	}
	return nil
}

func isFlat(b geom.Box) bool {
	s := b.Size()
	return s.X <= geom.Resolution || s.Y <= geom.Resolution || s.Z <= geom.Resolution
}

// HasErrors reports whether any finding is an error.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}
