// Package noop provides a no-op authenticator that accepts all requests.
// Used for development setups without credentials.
package noop

import (
	"context"
	"net/http"

	"github.com/strom-dev/strom/pkg/auth"
)

// Authenticator always returns Yes with a default anonymous identity.
type Authenticator struct{}

func (a *Authenticator) Authenticate(_ context.Context, _ *http.Request) auth.Result {
	return auth.Result{
		Decision: auth.Yes,
		Identity: &auth.Identity{
			Subject: "anonymous",
			Tier:    "default",
		},
	}
}
