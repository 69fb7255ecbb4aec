// Package registry provides name-keyed lookup and default selection among
// provider adapters. Registration happens at startup; lookups are safe for
// concurrent use afterwards.
package registry

import (
	"log/slog"
	"sync"

	"github.com/strom-dev/strom/pkg/api"
	"github.com/strom-dev/strom/pkg/provider"
)

// DefaultPreference is the fallback order used by Default when no
// provider was explicitly marked default. It is a constructor input, not
// a fixed policy: deployments preferring another backend pass their own
// order via WithPreference.
var DefaultPreference = []string{"anthropic", "openai"}

// Registry holds named provider registrations. The zero value is not
// usable; construct with New.
type Registry struct {
	mu         sync.RWMutex
	providers  map[string]provider.Provider
	names      []string // insertion order, for stable listings
	defaultKey string
	preference []string
}

// Option configures a Registry.
type Option func(*Registry)

// WithPreference overrides the fallback default-selection order.
func WithPreference(names ...string) Option {
	return func(r *Registry) { r.preference = names }
}

// New creates an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		providers:  make(map[string]provider.Provider),
		preference: DefaultPreference,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterOption configures a single registration.
type RegisterOption func(*registerOptions)

type registerOptions struct {
	isDefault bool
}

// AsDefault marks the provider as the registry default.
func AsDefault() RegisterOption {
	return func(o *registerOptions) { o.isDefault = true }
}

// Register admits a provider. Registering a name that already exists is a
// no-op with a warning, never an overwrite. The first provider ever
// registered becomes the implicit default; later registrations take the
// default only when AsDefault is passed.
func (r *Registry) Register(p provider.Provider, opts ...RegisterOption) error {
	if err := provider.ValidateProvider(p); err != nil {
		return api.NewInvalidRequestError("provider", err.Error())
	}

	var o registerOptions
	for _, opt := range opts {
		opt(&o)
	}

	name := p.Name()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; exists {
		slog.Warn("provider already registered, ignoring duplicate", "provider", name)
		return nil
	}

	r.providers[name] = p
	r.names = append(r.names, name)

	if o.isDefault || r.defaultKey == "" {
		r.defaultKey = name
	}

	slog.Info("registered provider",
		"provider", name,
		"default", r.defaultKey == name,
		"tools", p.SupportsTools(),
	)
	return nil
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (provider.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, api.NewProviderNotFound(name)
	}
	return p, nil
}

// Names returns every registered name exactly once, in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Default returns the default provider: the explicitly or implicitly
// designated one, else the first match in the preference order, else
// not-found. A successful registration never leaves the default dangling.
func (r *Registry) Default() (provider.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.defaultKey != "" {
		if p, ok := r.providers[r.defaultKey]; ok {
			return p, nil
		}
	}

	for _, name := range r.preference {
		if p, ok := r.providers[name]; ok {
			return p, nil
		}
	}

	return nil, api.NewProviderNotFound("")
}

// Close closes every registered provider, returning the first error.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for _, name := range r.names {
		if err := r.providers[name].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
