//go:build !manifold

// Package manifold binds the Manifold mesh library through cgo. Without
// the "manifold" build tag only this stub is compiled and New always
// fails with ErrUnavailable; selecting kernel "manifold" then reports a
// configuration error instead of a link failure.
//
// Build with: go build -tags=manifold
package manifold

import (
	"errors"

	"github.com/chazu/brepfacade/pkg/kernel"
)

// ErrUnavailable is returned by New in builds without the manifold tag.
var ErrUnavailable = errors.New("manifold kernel not available: build with -tags=manifold")

func New() (kernel.Kernel, error) {
	return nil, ErrUnavailable
}
