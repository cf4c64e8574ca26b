package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	assert.NotNil(t, loader)
	assert.NotNil(t, loader.v)
}

func TestLoaderDefaults(t *testing.T) {
	cfg, err := NewLoader().Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoaderLoad(t *testing.T) {
	t.Run("loads config from file", func(t *testing.T) {
		configFile := filepath.Join(t.TempDir(), "config.yaml")
		content := `
kernel: sdfx
tolerance:
  plane: 0.001
  gap: 0.5
mesh:
  cells: 80
  segments: 12
eval:
  timeout: 2s
`
		require.NoError(t, os.WriteFile(configFile, []byte(content), 0o644))

		cfg, err := NewLoader().Load(configFile)
		require.NoError(t, err)
		assert.Equal(t, KernelSdfx, cfg.Kernel)
		assert.Equal(t, 0.001, cfg.Tolerance.Plane)
		assert.Equal(t, 0.5, cfg.Tolerance.Gap)
		assert.Equal(t, 80, cfg.Mesh.Cells)
		assert.Equal(t, 12, cfg.Mesh.Segments)
		assert.Equal(t, 2*time.Second, cfg.Eval.Timeout)
	})

	t.Run("partial file keeps defaults", func(t *testing.T) {
		configFile := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(configFile, []byte("mesh:\n  cells: 64\n"), 0o644))

		cfg, err := NewLoader().Load(configFile)
		require.NoError(t, err)
		assert.Equal(t, 64, cfg.Mesh.Cells)
		assert.Equal(t, 32, cfg.Mesh.Segments)
		assert.Equal(t, KernelTrimesh, cfg.Kernel)
	})

	t.Run("returns defaults for missing file", func(t *testing.T) {
		configFile := filepath.Join(t.TempDir(), "nonexistent.yaml")

		cfg, err := NewLoader().Load(configFile)
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("loads from environment variables", func(t *testing.T) {
		t.Setenv("BREP_KERNEL", "sdfx")
		t.Setenv("BREP_TOLERANCE_PLANE", "0.01")
		t.Setenv("BREP_EVAL_TIMEOUT", "750ms")

		cfg, err := NewLoader().Load("")
		require.NoError(t, err)
		assert.Equal(t, KernelSdfx, cfg.Kernel)
		assert.Equal(t, 0.01, cfg.Tolerance.Plane)
		assert.Equal(t, 750*time.Millisecond, cfg.Eval.Timeout)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		configFile := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(configFile, []byte("kernel: sdfx\n"), 0o644))
		t.Setenv("BREP_KERNEL", "trimesh")

		cfg, err := NewLoader().Load(configFile)
		require.NoError(t, err)
		assert.Equal(t, KernelTrimesh, cfg.Kernel)
	})

	t.Run("set overrides environment", func(t *testing.T) {
		t.Setenv("BREP_KERNEL", "sdfx")
		l := NewLoader()
		l.Set("kernel", KernelManifold)

		cfg, err := l.Load("")
		require.NoError(t, err)
		assert.Equal(t, KernelManifold, cfg.Kernel)
	})

	t.Run("rejects malformed file", func(t *testing.T) {
		configFile := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(configFile, []byte("kernel: [unclosed\n"), 0o644))

		_, err := NewLoader().Load(configFile)
		assert.Error(t, err)
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		t.Setenv("BREP_KERNEL", "cgal")
		t.Setenv("BREP_MESH_SEGMENTS", "2")

		_, err := NewLoader().Load("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "kernel")
		assert.Contains(t, err.Error(), "mesh.segments")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults are valid", func(c *Config) {}, ""},
		{"zero plane tolerance", func(c *Config) { c.Tolerance.Plane = 0 }, "tolerance.plane"},
		{"negative gap", func(c *Config) { c.Tolerance.Gap = -1 }, "tolerance.gap"},
		{"zero gap allowed", func(c *Config) { c.Tolerance.Gap = 0 }, ""},
		{"no cells", func(c *Config) { c.Mesh.Cells = 0 }, "mesh.cells"},
		{"zero timeout", func(c *Config) { c.Eval.Timeout = 0 }, "eval.timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
