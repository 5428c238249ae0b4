// Package policy holds the pure access predicates shared by the resolver and
// the HTTP layer. Evaluation order is fixed: feature gates first (they deny
// regardless of role), then role checks (admins pass). The two layers are
// separate functions composed by the caller, never intertwined.
package policy

import (
	"kbhub/internal/domain"
)

// Feature identifies a globally gateable capability.
type Feature string

const (
	FeatureSharing Feature = "sharing"
	FeatureInvites Feature = "invites"
)

// FeatureGates records which features are disabled. Gates are explicit
// configuration: an absent entry means the feature is enabled because the
// default says so, not because absence means allow.
type FeatureGates struct {
	disabled map[Feature]bool
}

// NewFeatureGates builds gates from explicit enabled flags.
func NewFeatureGates(enabled map[Feature]bool) FeatureGates {
	disabled := make(map[Feature]bool, len(enabled))
	for f, on := range enabled {
		if !on {
			disabled[f] = true
		}
	}
	return FeatureGates{disabled: disabled}
}

// CheckFeature is the first predicate layer: a disabled feature denies every
// caller, including admins.
func CheckFeature(gates FeatureGates, f Feature) error {
	if gates.disabled[f] {
		return domain.ErrAccessDenied("feature %q is disabled", f)
	}
	return nil
}

// RequireAdmin is the second predicate layer: role-scoped checks that the
// admin role passes. It never consults feature gates.
func RequireAdmin(p domain.ContextPrincipal) error {
	if p.IsAdmin() {
		return nil
	}
	return domain.ErrAccessDenied("admin role required")
}

// AdminBypassesResolver reports whether resolver classification may be
// skipped for a principal. Only role is consulted; feature gates are layer
// one and must already have passed.
func AdminBypassesResolver(role domain.Role) bool {
	return role == domain.RoleAdmin
}

// GroupHasBindingAccess is the pessimistic group-access rule: a group has
// access to a binding only if every current member does. An empty member set
// has access vacuously. Kept as a named rule so the AND semantics cannot
// silently regress to OR.
func GroupHasBindingAccess(memberAccess []bool) bool {
	for _, ok := range memberAccess {
		if !ok {
			return false
		}
	}
	return true
}

// UserHasFullAccess is the AND-across-bindings rule: a user can use a
// resource only with access to every access-controlled binding.
func UserHasFullAccess(bindingAccess []bool) bool {
	for _, ok := range bindingAccess {
		if !ok {
			return false
		}
	}
	return true
}
