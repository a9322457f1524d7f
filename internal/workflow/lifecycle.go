package workflow

import "context"

// lifecycle is the configured expense lifecycle:
//
//	Sans compte --PROCESS--> Comptabilisé --CONFIRM--> Confirmé --PAY--> Payé
//
// Payé is terminal.
var lifecycle StateMachineBuilder

// newLifecycle reads validStates through an interface method call, which
// package-level initialization ordering cannot see, so build the machine in
// init() to guarantee it runs after the state tables are populated.
func init() {
	lifecycle = newLifecycle()
}

func newLifecycle() StateMachineBuilder {
	b := NewBuilder()
	b.Configure(StateUnaccounted).
		Permit(TriggerProcess, StateAccounted)
	b.Configure(StateAccounted).
		Permit(TriggerConfirm, StateConfirmed)
	b.Configure(StateConfirmed).
		Permit(TriggerPay, StatePaid)
	return b
}

// NewExpenseLifecycle returns the lifecycle machine for a single expense,
// starting from the given state.
func NewExpenseLifecycle(initial State) StateMachine {
	return lifecycle.Build(initial)
}

// CanTransition reports whether moving an expense from one status to
// another follows the lifecycle. The bulk status updates carry the target
// state rather than a trigger, so the check fires each permitted trigger
// on a fresh machine and looks at where it lands.
func CanTransition(from, to State) bool {
	if !from.IsValid() || !to.IsValid() {
		return false
	}
	for _, trigger := range NewExpenseLifecycle(from).PermittedTriggers() {
		m := NewExpenseLifecycle(from)
		if m.Fire(context.Background(), trigger) == nil && m.State() == to {
			return true
		}
	}
	return false
}
