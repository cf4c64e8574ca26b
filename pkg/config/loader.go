package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Environment variable prefix for brepfacade configuration.
const envPrefix = "BREP"

// Loader merges defaults, an optional config file and the environment.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader with every key defaulted, so that each one can
// be overridden from the environment.
func NewLoader() *Loader {
	v := viper.New()

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := DefaultConfig()
	v.SetDefault("kernel", d.Kernel)
	v.SetDefault("tolerance.plane", d.Tolerance.Plane)
	v.SetDefault("tolerance.gap", d.Tolerance.Gap)
	v.SetDefault("mesh.cells", d.Mesh.Cells)
	v.SetDefault("mesh.segments", d.Mesh.Segments)
	v.SetDefault("eval.timeout", d.Eval.Timeout)

	return &Loader{v: v}
}

// Set overrides a key, taking precedence over file and environment. The
// CLI uses it for flags.
func (l *Loader) Set(key string, value any) {
	l.v.Set(key, value)
}

// Load reads configFile when given and returns the validated result.
// A missing file is not an error. Environment variables take precedence
// over file values.
func (l *Loader) Load(configFile string) (*Config, error) {
	if configFile != "" {
		l.v.SetConfigFile(configFile)
		l.v.SetConfigType("yaml")

		if err := l.v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
