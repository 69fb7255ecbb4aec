package auth

// TierLimits maps service tiers to a per-window request quota for the
// sliding-window rate limiter.
type TierLimits struct {
	// Tiers maps tier name to requests per window.
	Tiers map[string]int

	// Default applies when the identity's tier is unknown or empty.
	// Zero or negative disables limiting for those callers.
	Default int
}

// LimitFor returns the per-window quota for id. A return of 0 or less
// means unlimited.
func (t TierLimits) LimitFor(id *Identity) int {
	tier := "default"
	if id != nil && id.Tier != "" {
		tier = id.Tier
	}
	if limit, ok := t.Tiers[tier]; ok {
		return limit
	}
	return t.Default
}
