package gate

import "sync"

// State is a stage in the per-action approval state machine:
//
//	Proposed -> Classified -> AutoApproved
//	                       -> AwaitingUser -> UserApproved | UserRejected
//	                       -> Blocked
//
// AutoApproved, UserApproved, UserRejected, and Blocked are terminal.
type State string

const (
	StateProposed     State = "proposed"
	StateClassified   State = "classified"
	StateAwaitingUser State = "awaiting_user"
	StateAutoApproved State = "auto_approved"
	StateUserApproved State = "user_approved"
	StateUserRejected State = "user_rejected"
	StateBlocked      State = "blocked"
)

// Terminal reports whether s admits no further transitions.
func (s State) Terminal() bool {
	switch s {
	case StateAutoApproved, StateUserApproved, StateUserRejected, StateBlocked:
		return true
	}
	return false
}

var legalTransitions = map[State][]State{
	StateProposed:     {StateClassified},
	StateClassified:   {StateAutoApproved, StateAwaitingUser, StateBlocked},
	StateAwaitingUser: {StateUserApproved, StateUserRejected},
}

// PendingAction is one proposed action moving through the approval machine.
// It is consumed exactly once; transitions out of a terminal state fail with
// ErrActionConsumed.
type PendingAction struct {
	action Action

	mu    sync.Mutex
	state State
}

// NewPendingAction wraps a proposed action in the Proposed state.
func NewPendingAction(a Action) *PendingAction {
	switch a.Kind {
	case ActionFileEdit:
		if a.Edit == nil {
			panic("file edit action missing edit payload")
		}
	case ActionCommandExec:
		if a.Command == nil {
			panic("command action missing command payload")
		}
	default:
		panic("unknown action kind " + string(a.Kind))
	}
	return &PendingAction{action: a, state: StateProposed}
}

// Action returns the proposed action.
func (p *PendingAction) Action() Action {
	return p.action
}

// State returns the current state.
func (p *PendingAction) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// transition moves the action to the given state, enforcing terminal
// immutability and the legal transition set.
func (p *PendingAction) transition(to State) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state.Terminal() {
		return ErrActionConsumed
	}
	for _, allowed := range legalTransitions[p.state] {
		if allowed == to {
			p.state = to
			return nil
		}
	}
	return &InvalidTransitionError{From: p.state, To: to}
}

// Outcome is the terminal result of a review.
type Outcome string

const (
	OutcomeAutoApproved Outcome = "auto_approved"
	OutcomeUserApproved Outcome = "user_approved"
	OutcomeUserRejected Outcome = "user_rejected"
	OutcomeBlocked      Outcome = "blocked"
)

// Decision is the terminal verdict for one PendingAction. Rule and Reason
// are populated for blocks and rejections so the caller can surface why.
type Decision struct {
	Outcome Outcome
	Rule    string
	Reason  string
}

// Approved reports whether the decision permits execution.
func (d Decision) Approved() bool {
	return d.Outcome == OutcomeAutoApproved || d.Outcome == OutcomeUserApproved
}

// Err converts a non-approving decision to its error form.
func (d Decision) Err() error {
	switch d.Outcome {
	case OutcomeBlocked:
		return &BlockedError{Rule: d.Rule, Reason: d.Reason}
	case OutcomeUserRejected:
		return &RejectedError{Reason: d.Reason}
	default:
		return nil
	}
}
