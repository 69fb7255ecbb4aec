package provider

import (
	"fmt"

	"github.com/strom-dev/strom/pkg/api"
)

// ValidateProvider checks a provider once, before registration, so call
// sites can assume a complete contract instead of probing for optional
// methods at every use.
func ValidateProvider(p Provider) error {
	if p == nil {
		return fmt.Errorf("provider is nil")
	}
	if p.Name() == "" {
		return fmt.Errorf("provider has an empty name")
	}
	return nil
}

// ValidateRequestFor checks a request against a provider's declared
// capabilities before any network call is made.
func ValidateRequestFor(p Provider, req *api.CompletionRequest) *api.Error {
	if len(req.Tools) > 0 && !p.SupportsTools() {
		return api.NewInvalidRequestError("tools",
			fmt.Sprintf("provider %q does not support tool calling", p.Name()))
	}
	return nil
}
