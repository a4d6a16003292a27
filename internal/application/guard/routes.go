package guard

import (
	"strings"

	"github.com/garyjia/po-approval/internal/application/session"
	"github.com/garyjia/po-approval/internal/domain/entity"
)

const (
	LoginRoute       = "/login"
	HomeRoute        = "/purchase-orders"
	NewOrderRoute    = "/purchase-orders/new"
	OrderDetailRoute = "/purchase-orders/:id"
)

// Route describes how a route is protected
type Route struct {
	Pattern      string
	PublicOnly   bool
	RequiredRole entity.Role
}

// Routes is the route table of the client
var Routes = []Route{
	{Pattern: LoginRoute, PublicOnly: true},
	{Pattern: HomeRoute},
	{Pattern: NewOrderRoute},
	{Pattern: OrderDetailRoute, RequiredRole: entity.RoleReviewer},
}

// OrderDetailPath fills in the detail route for one order
func OrderDetailPath(id string) string {
	return strings.Replace(OrderDetailRoute, ":id", id, 1)
}

// Lookup finds the table entry matching a concrete path.
// Literal segments win over parameters, so /purchase-orders/new is not a detail page.
func Lookup(path string) (Route, bool) {
	var (
		best      Route
		bestScore = -1
	)
	for _, r := range Routes {
		score, ok := match(r.Pattern, path)
		if ok && score > bestScore {
			best, bestScore = r, score
		}
	}
	return best, bestScore >= 0
}

// Check resolves path in the route table and evaluates it.
// Unknown paths are treated as protected without a role requirement.
func Check(snap session.Snapshot, path string) Decision {
	r, ok := Lookup(path)
	if !ok {
		return Evaluate(snap, path, "")
	}
	if r.PublicOnly {
		return EvaluatePublicOnly(snap, path)
	}
	return Evaluate(snap, path, r.RequiredRole)
}

func match(pattern, path string) (int, bool) {
	ps := strings.Split(strings.Trim(pattern, "/"), "/")
	xs := strings.Split(strings.Trim(path, "/"), "/")
	if len(ps) != len(xs) {
		return 0, false
	}

	literals := 0
	for i := range ps {
		switch {
		case strings.HasPrefix(ps[i], ":"):
			if xs[i] == "" {
				return 0, false
			}
		case ps[i] == xs[i]:
			literals++
		default:
			return 0, false
		}
	}
	return literals, true
}
