package registry

import (
	"sync"

	"github.com/strom-dev/strom/pkg/provider"
)

// The process-wide registry is a single lazily-constructed handle with
// explicit teardown, for callers that want convenience access without
// threading a *Registry through their call graph. Code under test, and
// anything embedding multiple registries, should construct its own.

var (
	globalMu sync.Mutex
	global   *Registry
)

// Global returns the process-wide registry, constructing it on first use.
func Global() *Registry {
	globalMu.Lock()
	defer globalMu.Unlock()

	if global == nil {
		global = New()
	}
	return global
}

// Init replaces the process-wide registry. Call at startup, before any
// convenience access.
func Init(r *Registry) {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = r
}

// Reset discards the process-wide registry. Primarily for tests.
func Reset() {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = nil
}

// RegisterProvider registers p with the process-wide registry.
func RegisterProvider(p provider.Provider, opts ...RegisterOption) error {
	return Global().Register(p, opts...)
}

// GetProvider looks up a provider in the process-wide registry.
func GetProvider(name string) (provider.Provider, error) {
	return Global().Get(name)
}

// DefaultProvider returns the process-wide registry's default provider.
func DefaultProvider() (provider.Provider, error) {
	return Global().Default()
}
