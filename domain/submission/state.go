package submission

import (
	"fmt"

	"rankstat/domain/core"
)

// State is the lifecycle position of a submission
type State string

const (
	StateIdle            State = "idle"
	StateDispatching     State = "dispatching"
	StateAwaitingResults State = "awaiting_results"
	StateAggregating     State = "aggregating"
	StateCompleted       State = "completed"
	StateCancelled       State = "cancelled"
	StateFailed          State = "failed"
)

// IsTerminal reports whether no further transition is possible
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// Event drives a state transition
type Event string

const (
	EventSubmit       Event = "submit"
	EventDispatched   Event = "dispatched"
	EventAllProcessed Event = "all_processed"
	EventAllFailed    Event = "all_failed"
	EventAggregated   Event = "aggregated"
	EventFail         Event = "fail"
	EventCancel       Event = "cancel"
	EventTimeout      Event = "timeout"
)

// Transition is the pure state transition function of a submission
func Transition(from State, event Event) (State, error) {
	if from.IsTerminal() {
		return from, illegal(from, event)
	}

	switch event {
	case EventCancel, EventTimeout:
		return StateCancelled, nil
	case EventSubmit:
		if from == StateIdle {
			return StateDispatching, nil
		}
	case EventDispatched:
		if from == StateDispatching {
			return StateAwaitingResults, nil
		}
	case EventAllProcessed:
		if from == StateAwaitingResults {
			return StateAggregating, nil
		}
	case EventAllFailed:
		if from == StateAwaitingResults {
			return StateFailed, nil
		}
	case EventAggregated:
		if from == StateAggregating {
			return StateCompleted, nil
		}
	case EventFail:
		if from == StateDispatching || from == StateAggregating {
			return StateFailed, nil
		}
	}
	return from, illegal(from, event)
}

func illegal(from State, event Event) error {
	return fmt.Errorf("%w: %s on %s", core.ErrIllegalTransition, event, from)
}

// Machine is the serializable state of a running submission
type Machine struct {
	State     State `json:"state"`
	Expected  int   `json:"expected"`
	Processed int   `json:"processed"`
	Succeeded int   `json:"succeeded"`
	Failed    int   `json:"failed"`
}

// NewMachine returns a machine in the idle state
func NewMachine() Machine {
	return Machine{State: StateIdle}
}

// Apply returns the machine after event, or an error if the event is not allowed
func (m Machine) Apply(event Event) (Machine, error) {
	next, err := Transition(m.State, event)
	if err != nil {
		return m, err
	}
	m.State = next
	return m, nil
}

// Record counts one job outcome. It reports whether every dispatched job is now accounted for.
func (m Machine) Record(success bool) (Machine, bool) {
	m.Processed++
	if success {
		m.Succeeded++
	} else {
		m.Failed++
	}
	return m, m.Expected > 0 && m.Processed == m.Expected
}
