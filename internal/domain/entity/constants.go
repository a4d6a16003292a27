package entity

// Status is the lifecycle state of a purchase order
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
)

var validStatuses = map[Status]bool{
	StatusPending:   true,
	StatusApproved:  true,
	StatusRejected:  true,
	StatusCompleted: true,
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// IsValid returns true if the status is a known purchase order status
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// IsTerminal returns true if no reviewer action can move the order any further
func (s Status) IsTerminal() bool {
	return s.IsValid() && s != StatusPending
}

// IsDecision returns true for the two outcomes a reviewer can record
func (s Status) IsDecision() bool {
	return s == StatusApproved || s == StatusRejected
}

// Role is the authorization role carried by a user and its token
type Role string

const (
	RoleRequester Role = "requester"
	RoleReviewer  Role = "reviewer"
)

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}
