// Package authorization contains the domain types for implicit
// authorization verdicts and the authority contract.
package authorization

import (
	"fmt"

	"github.com/openEuler-BaseService/polkit-pkla-compat/internal/domain/identity"
)

// Implicit is the policy-level verdict for an action absent any live
// authentication dialog. The ordering is part of the contract: Unknown is
// the unit element of the decision fold and never overwrites a previously
// selected verdict.
type Implicit int

const (
	// Unknown means no applicable rule was found.
	Unknown Implicit = iota
	// NotAuthorized denies the action outright.
	NotAuthorized
	// AuthenticationRequired requires the subject to authenticate as itself.
	AuthenticationRequired
	// AdministratorAuthenticationRequired requires authentication as an
	// admin identity.
	AdministratorAuthenticationRequired
	// AuthenticationRequiredRetained is AuthenticationRequired with the
	// authorization retained for the session.
	AuthenticationRequiredRetained
	// AdministratorAuthenticationRequiredRetained is the retained admin
	// variant.
	AdministratorAuthenticationRequiredRetained
	// Authorized permits the action outright.
	Authorized
)

var implicitNames = map[Implicit]string{
	Unknown:                             "unknown",
	NotAuthorized:                       "no",
	AuthenticationRequired:              "auth_self",
	AdministratorAuthenticationRequired: "auth_admin",
	AuthenticationRequiredRetained:      "auth_self_keep",
	AdministratorAuthenticationRequiredRetained: "auth_admin_keep",
	Authorized: "yes",
}

// String returns the rule-file form of the verdict ("no", "auth_self",
// "auth_admin", "auth_self_keep", "auth_admin_keep", "yes", "unknown").
func (a Implicit) String() string {
	if s, ok := implicitNames[a]; ok {
		return s
	}
	return fmt.Sprintf("Implicit(%d)", int(a))
}

// ImplicitFromString parses the rule-file form of a verdict.
func ImplicitFromString(s string) (Implicit, error) {
	for v, name := range implicitNames {
		if name == s {
			return v, nil
		}
	}
	return Unknown, fmt.Errorf("unknown implicit authorization %q", s)
}

// TriState is a store's three independent verdicts for one matched entry:
// Any applies when the subject is not local, Inactive and Active apply when
// local, selected by the subject's activity flag.
type TriState struct {
	Any      Implicit
	Inactive Implicit
	Active   Implicit
}

// Select picks the component that applies to the subject's locality and
// activity. A non-local subject always selects Any, regardless of activity.
func (t TriState) Select(local, active bool) Implicit {
	switch {
	case local && active:
		return t.Active
	case local:
		return t.Inactive
	default:
		return t.Any
	}
}

// Store is one file-backed authorization store bound to a directory and a
// rule-file suffix. A nil identity performs a default-entry lookup (only
// entries whose identity list contains the literal "*" match). The second
// return is false when no entry matched.
type Store interface {
	Lookup(id *identity.Identity, actionID string, details map[string]string) (TriState, bool)
}

// Subject is the entity requesting to perform an action.
type Subject struct {
	// User is the concrete OS user behind the subject.
	User identity.Identity
	// IsLocal reports whether the subject's session is on a local seat.
	IsLocal bool
	// IsActive reports whether the subject's session is the active one.
	IsActive bool
}

// Authority is the synchronous decision surface an agent-negotiation layer
// calls into.
type Authority interface {
	// CheckAuthorization folds the configured stores into one verdict,
	// starting from the caller-supplied seed. It returns exactly seed when
	// no rule matches anywhere.
	CheckAuthorization(subject Subject, actionID string, details map[string]string, seed Implicit) Implicit
	// AdminIdentities returns the concrete user identities permitted to
	// satisfy an admin-authentication verdict, never empty (defaults to
	// root).
	AdminIdentities() []identity.Identity
}
