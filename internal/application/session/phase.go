package session

import "github.com/garyjia/po-approval/internal/domain/workflow"

// Phase is where the session is in its login lifecycle
type Phase string

const (
	PhaseUnauthenticated Phase = "unauthenticated"
	PhaseAuthenticating  Phase = "authenticating"
	PhaseAuthenticated   Phase = "authenticated"
)

func (p Phase) String() string {
	return string(p)
}

// IsValid returns true for the three known phases
func (p Phase) IsValid() bool {
	switch p {
	case PhaseUnauthenticated, PhaseAuthenticating, PhaseAuthenticated:
		return true
	default:
		return false
	}
}

type phaseTrigger string

const (
	triggerRestore    phaseTrigger = "RESTORE"
	triggerBeginLogin phaseTrigger = "BEGIN_LOGIN"
	triggerLoginOK    phaseTrigger = "LOGIN_OK"
	triggerLoginFail  phaseTrigger = "LOGIN_FAIL"
	triggerInvalidate phaseTrigger = "INVALIDATE"
)

func (t phaseTrigger) String() string {
	return string(t)
}

// newPhaseMachine wires the session lifecycle. A failed login returns to
// Authenticated when a prior session is still held, otherwise to Unauthenticated.
func newPhaseMachine(holdsSession workflow.GuardFunc) workflow.StateMachine[Phase, phaseTrigger] {
	b := workflow.NewBuilder[Phase, phaseTrigger]()

	b.Configure(PhaseUnauthenticated).
		Permit(triggerRestore, PhaseAuthenticated).
		Permit(triggerBeginLogin, PhaseAuthenticating).
		Permit(triggerInvalidate, PhaseUnauthenticated)

	b.Configure(PhaseAuthenticating).
		Permit(triggerLoginOK, PhaseAuthenticated).
		PermitIf(triggerLoginFail, PhaseAuthenticated, holdsSession).
		Permit(triggerLoginFail, PhaseUnauthenticated)

	b.Configure(PhaseAuthenticated).
		Permit(triggerRestore, PhaseAuthenticated).
		Permit(triggerBeginLogin, PhaseAuthenticating).
		Permit(triggerInvalidate, PhaseUnauthenticated)

	return b.Build(PhaseUnauthenticated)
}
