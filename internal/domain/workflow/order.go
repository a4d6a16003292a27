package workflow

import "github.com/garyjia/po-approval/internal/domain/entity"

// NewOrderMachine returns the per-order machine positioned at the given status.
// Only pending orders have outgoing transitions; approved and rejected are
// terminal for the approval core, completed is driven externally.
// guard is attached to both decisions and may be nil.
func NewOrderMachine(status entity.Status, guard GuardFunc) StateMachine[entity.Status, OrderTrigger] {
	builder := NewBuilder[entity.Status, OrderTrigger]()

	builder.Configure(entity.StatusPending).
		PermitIf(TriggerApprove, entity.StatusApproved, guard).
		PermitIf(TriggerReject, entity.StatusRejected, guard)

	return builder.Build(status)
}
