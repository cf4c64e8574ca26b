// Package config loads brepfacade settings from a YAML file and BREP_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Kernel names accepted by the kernel setting.
const (
	KernelTrimesh  = "trimesh"
	KernelSdfx     = "sdfx"
	KernelManifold = "manifold"
)

// Kernels lists the selectable kernel names.
var Kernels = []string{KernelTrimesh, KernelSdfx, KernelManifold}

// ToleranceConfig holds measurement tolerances.
type ToleranceConfig struct {
	// Plane is the find-plane tolerance.
	// Env: BREP_TOLERANCE_PLANE, Default: 1e-6
	Plane float64 `mapstructure:"plane"`

	// Gap enlarges every bounding box.
	// Env: BREP_TOLERANCE_GAP, Default: 1e-12
	Gap float64 `mapstructure:"gap"`
}

// MeshConfig holds tessellation settings.
type MeshConfig struct {
	// Cells is the marching cubes resolution of the sdfx kernel.
	// Env: BREP_MESH_CELLS, Default: 200
	Cells int `mapstructure:"cells"`

	// Segments is the default cylinder segment count.
	// Env: BREP_MESH_SEGMENTS, Default: 32
	Segments int `mapstructure:"segments"`
}

// EvalConfig holds script evaluation settings.
type EvalConfig struct {
	// Timeout bounds a single script evaluation.
	// Env: BREP_EVAL_TIMEOUT, Default: 5s
	Timeout time.Duration `mapstructure:"timeout"`
}

// Config is the brepfacade configuration.
type Config struct {
	// Kernel selects the geometry backend.
	// Env: BREP_KERNEL, Default: "trimesh"
	Kernel string `mapstructure:"kernel"`

	Tolerance ToleranceConfig `mapstructure:"tolerance"`
	Mesh      MeshConfig      `mapstructure:"mesh"`
	Eval      EvalConfig      `mapstructure:"eval"`
}

// DefaultConfig returns a Config with all default values populated.
func DefaultConfig() *Config {
	return &Config{
		Kernel: KernelTrimesh,
		Tolerance: ToleranceConfig{
			Plane: 1e-6,
			Gap:   1e-12,
		},
		Mesh: MeshConfig{
			Cells:    200,
			Segments: 32,
		},
		Eval: EvalConfig{
			Timeout: 5 * time.Second,
		},
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if !knownKernel(c.Kernel) {
		errs = append(errs, fmt.Errorf("kernel: unknown kernel %q, expected one of %v", c.Kernel, Kernels))
	}
	if c.Tolerance.Plane <= 0 {
		errs = append(errs, fmt.Errorf("tolerance.plane: must be positive, got %g", c.Tolerance.Plane))
	}
	if c.Tolerance.Gap < 0 {
		errs = append(errs, fmt.Errorf("tolerance.gap: must not be negative, got %g", c.Tolerance.Gap))
	}
	if c.Mesh.Cells <= 0 {
		errs = append(errs, fmt.Errorf("mesh.cells: must be positive, got %d", c.Mesh.Cells))
	}
	if c.Mesh.Segments < 3 {
		errs = append(errs, fmt.Errorf("mesh.segments: need at least 3, got %d", c.Mesh.Segments))
	}
	if c.Eval.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("eval.timeout: must be positive, got %s", c.Eval.Timeout))
	}
	return errors.Join(errs...)
}

func knownKernel(name string) bool {
	for _, k := range Kernels {
		if k == name {
			return true
		}
	}
	return false
}
