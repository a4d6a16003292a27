package workflow

import "github.com/garyjia/po-approval/internal/domain/entity"

// OrderTrigger is a reviewer action that can move a purchase order out of pending
type OrderTrigger string

const (
	TriggerApprove OrderTrigger = "APPROVE"
	TriggerReject  OrderTrigger = "REJECT"
)

// String returns the string representation of the trigger
func (t OrderTrigger) String() string {
	return string(t)
}

// TriggerFor maps a decision outcome to the trigger that produces it.
func TriggerFor(outcome entity.Status) (OrderTrigger, bool) {
	switch outcome {
	case entity.StatusApproved:
		return TriggerApprove, true
	case entity.StatusRejected:
		return TriggerReject, true
	default:
		return "", false
	}
}
