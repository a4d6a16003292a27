// Package guard decides whether a session may enter a route.
// The functions are pure; performing the redirect is the caller's job.
package guard

import (
	"fmt"

	"github.com/garyjia/po-approval/internal/application/session"
	"github.com/garyjia/po-approval/internal/domain/entity"
)

// Kind is the outcome of a route check
type Kind int

const (
	Allow Kind = iota
	RedirectLogin
	Deny
	RedirectAuthenticatedHome
)

func (k Kind) String() string {
	switch k {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect_login"
	case Deny:
		return "deny"
	case RedirectAuthenticatedHome:
		return "redirect_home"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ReasonInsufficientRole is the reason attached to a role mismatch
const ReasonInsufficientRole = "insufficient role"

// Decision is what a caller should do with a route request.
// Route is the originally requested route for RedirectLogin, so the caller
// can come back after login, and the home route for RedirectAuthenticatedHome.
type Decision struct {
	Kind   Kind
	Route  string
	Reason string
}

// Allowed reports whether the route may be rendered
func (d Decision) Allowed() bool {
	return d.Kind == Allow
}

// Evaluate checks a protected route. An empty requiredRole admits any
// authenticated session.
func Evaluate(snap session.Snapshot, route string, requiredRole entity.Role) Decision {
	if !snap.Authenticated() {
		return Decision{Kind: RedirectLogin, Route: route}
	}
	if requiredRole != "" && snap.Role() != requiredRole {
		return Decision{Kind: Deny, Route: route, Reason: ReasonInsufficientRole}
	}
	return Decision{Kind: Allow, Route: route}
}

// EvaluatePublicOnly checks a route that only makes sense when signed out, such as the login page
func EvaluatePublicOnly(snap session.Snapshot, route string) Decision {
	if snap.Authenticated() {
		return Decision{Kind: RedirectAuthenticatedHome, Route: HomeRoute}
	}
	return Decision{Kind: Allow, Route: route}
}
