package engine

import "github.com/strom-dev/strom/pkg/api"

// Config holds orchestrator configuration.
type Config struct {
	// DefaultModel is used when the request omits the model field.
	// Empty string means a model is always required in the request.
	DefaultModel string

	// RequestsPerWindow is the per-caller quota enforced when a rate
	// limiter is attached. Zero or negative disables engine-level
	// limiting.
	RequestsPerWindow int

	// RepairToolArguments enables salvage of slightly malformed tool
	// argument JSON before a parse error is raised.
	RepairToolArguments bool

	// Validation bounds accepted requests. Zero value uses the defaults.
	Validation api.ValidationConfig
}

// validation returns the effective validation config.
func (c Config) validation() api.ValidationConfig {
	if c.Validation == (api.ValidationConfig{}) {
		return api.DefaultValidationConfig()
	}
	return c.Validation
}
