//go:build !manifold

package manifold

import (
	"errors"
	"testing"
)

func TestStubIsUnavailable(t *testing.T) {
	k, err := New()
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("New() error = %v, want ErrUnavailable", err)
	}
	if k != nil {
		t.Errorf("New() kernel = %v, want nil", k)
	}
}
