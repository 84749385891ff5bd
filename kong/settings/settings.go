// Package settings provides a Kong CLI Resolver that takes default flag values
// from a YAML file keyed by the flag's environment variable:
//
//	VCR_FORMAT: directory
//	VCR_STATSD_ADDR: localhost:8125
package settings

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"gopkg.in/yaml.v3"
)

// Resolver is a Kong resolver backed by a settings file.
type Resolver struct {
	values map[string]interface{}
}

// Load reads the settings file at path.
func Load(path string) (*Resolver, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings: %w", err)
	}
	defer f.Close()
	r, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings %q: %w", path, err)
	}
	return r, nil
}

// Parse reads settings from r. An empty document holds no values.
func Parse(r io.Reader) (*Resolver, error) {
	values := map[string]interface{}{}
	err := yaml.NewDecoder(r).Decode(&values)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return &Resolver{values: values}, nil
}

func (r *Resolver) Validate(_ *kong.Application) error {
	return nil
}

// Resolve resolves default values for any flag that has an env set. The hierarchy of commands is ignored, expecting
// that the env var was named uniquely in the config. Only one env is supported per flag
func (r *Resolver) Resolve(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (interface{}, error) {
	if len(flag.Envs) == 0 {
		return nil, nil
	}
	val, ok := r.values[flag.Envs[0]]
	if !ok {
		return nil, nil
	}
	if s, ok := val.(string); ok {
		return s, nil
	}
	return fmt.Sprint(val), nil
}
