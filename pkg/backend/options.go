package backend

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Factory builds a backend from backend-specific options.
type Factory func(opts Options) (Backend, error)

// Options are named backend settings. Their meaning belongs to each backend;
// values may be typed or strings, and are read with spf13/cast.
type Options map[string]any

func (o Options) String(key, def string) (string, error) {
	v, ok := o[key]
	if !ok {
		return def, nil
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", fmt.Errorf("backend option %q: %w", key, err)
	}
	return s, nil
}

func (o Options) Int(key string, def int) (int, error) {
	v, ok := o[key]
	if !ok {
		return def, nil
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, fmt.Errorf("backend option %q: %w", key, err)
	}
	return n, nil
}

// Duration reads a duration. Strings use time.ParseDuration syntax.
func (o Options) Duration(key string, def time.Duration) (time.Duration, error) {
	v, ok := o[key]
	if !ok {
		return def, nil
	}
	d, err := cast.ToDurationE(v)
	if err != nil {
		return 0, fmt.Errorf("backend option %q: %w", key, err)
	}
	return d, nil
}

// Strings reads a list. A single string is split on commas.
func (o Options) Strings(key string, def []string) ([]string, error) {
	v, ok := o[key]
	if !ok {
		return def, nil
	}
	if s, ok := v.(string); ok {
		var out []string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	}
	list, err := cast.ToStringSliceE(v)
	if err != nil {
		return nil, fmt.Errorf("backend option %q: %w", key, err)
	}
	return list, nil
}
