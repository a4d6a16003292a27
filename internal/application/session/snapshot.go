package session

import "github.com/garyjia/po-approval/internal/domain/entity"

// Snapshot is a read-only copy of the session at one instant
type Snapshot struct {
	Phase  Phase
	Token  string
	Claims *Claims
	User   *entity.User
}

// Authenticated reports whether the snapshot carries a usable session
func (s Snapshot) Authenticated() bool {
	return s.Phase == PhaseAuthenticated && s.Token != ""
}

// Role prefers the user record and falls back to the token claims
func (s Snapshot) Role() entity.Role {
	if s.User != nil && s.User.Role != "" {
		return s.User.Role
	}
	if s.Claims != nil {
		return s.Claims.Role
	}
	return ""
}

// Identity names the actor for ledger entries
func (s Snapshot) Identity() string {
	if s.User != nil {
		switch {
		case s.User.Name != "":
			return s.User.Name
		case s.User.Email != "":
			return s.User.Email
		case s.User.ID != "":
			return s.User.ID
		}
	}
	if s.Claims != nil {
		return s.Claims.Subject
	}
	return ""
}
