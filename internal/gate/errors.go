package gate

import (
	"errors"
	"fmt"
)

// ErrActionConsumed is returned when a PendingAction that already reached a
// terminal state is reviewed or transitioned again.
var ErrActionConsumed = errors.New("action already consumed")

// InvalidTransitionError is returned for a state change the machine does not
// allow.
type InvalidTransitionError struct {
	From State
	To   State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid approval transition %s -> %s", e.From, e.To)
}

// BlockedError reports an action refused by policy. Rule names the denylist
// rule or validator that refused it.
type BlockedError struct {
	Rule   string
	Reason string
	Cause  error
}

func (e *BlockedError) Error() string {
	if e.Rule != "" {
		return fmt.Sprintf("action blocked by %s: %s", e.Rule, e.Reason)
	}
	return fmt.Sprintf("action blocked: %s", e.Reason)
}

func (e *BlockedError) Unwrap() error {
	return e.Cause
}

func (e *BlockedError) PolicyRefused() bool {
	return true
}

// RejectedError reports an action the user declined (or an interrupt or
// timeout treated as a decline).
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("action rejected: %s", e.Reason)
}

func (e *RejectedError) PolicyRefused() bool {
	return true
}

// IsPolicyRefusal reports whether err represents a deliberate policy or user
// decision. Such errors are surfaced verbatim and never retried.
func IsPolicyRefusal(err error) bool {
	var refused interface{ PolicyRefused() bool }
	return errors.As(err, &refused) && refused.PolicyRefused()
}
