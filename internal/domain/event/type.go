package event

// Type identifies the type of domain event
type Type string

const (
	TypeSessionEstablished Type = "session.established"
	TypeSessionCleared     Type = "session.cleared"
	TypeTokenInvalid       Type = "session.token_invalid"
	TypeTokenExpired       Type = "session.token_expired"
	TypeOrderSubmitted     Type = "order.submitted"
	TypeOrderDecided       Type = "order.decided"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeSessionEstablished,
		TypeSessionCleared,
		TypeTokenInvalid,
		TypeTokenExpired,
		TypeOrderSubmitted,
		TypeOrderDecided:
		return true
	default:
		return false
	}
}

// IsSession reports whether the event describes a session change
func (t Type) IsSession() bool {
	switch t {
	case TypeSessionEstablished, TypeSessionCleared, TypeTokenInvalid, TypeTokenExpired:
		return true
	default:
		return false
	}
}
