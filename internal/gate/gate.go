package gate

import (
	"context"
	"sync"

	"github.com/Cyclone1070/aegis/internal/policy"
	"github.com/Cyclone1070/aegis/internal/session"
)

// Answer is the user's response at an approval prompt.
type Answer int

const (
	AnswerReject Answer = iota
	AnswerApprove
	// AnswerApproveAlways approves and grants the same command for the rest
	// of the session.
	AnswerApproveAlways
)

// Confirmer collects the user's decision for an action awaiting approval.
// It blocks until the user answers or ctx is done.
type Confirmer interface {
	Confirm(ctx context.Context, action Action, verdict string) (Answer, error)
}

// ApprovalGate reviews proposed actions against the session policy. One gate
// exists per session; reviews are serialized so at most one action is
// awaiting the user at a time.
type ApprovalGate struct {
	policy    policy.SecurityPolicy
	paths     *policy.PathValidator
	commands  *policy.CommandValidator
	confirmer Confirmer
	log       *session.EventLog

	mu sync.Mutex
	// grants holds commands the user approved for the whole session.
	grants map[string]bool
}

// NewApprovalGate creates the gate for one session.
func NewApprovalGate(pol policy.SecurityPolicy, paths *policy.PathValidator, commands *policy.CommandValidator, confirmer Confirmer, log *session.EventLog) *ApprovalGate {
	if paths == nil {
		panic("paths is required")
	}
	if commands == nil {
		panic("commands is required")
	}
	if confirmer == nil {
		panic("confirmer is required")
	}
	if log == nil {
		panic("log is required")
	}
	return &ApprovalGate{
		policy:    pol,
		paths:     paths,
		commands:  commands,
		confirmer: confirmer,
		log:       log,
		grants:    make(map[string]bool),
	}
}

// Review consumes the pending action and returns its terminal decision.
// A PendingAction already in a terminal state returns ErrActionConsumed.
// Blocked and rejected outcomes each emit exactly one error event; approved
// outcomes are logged by the caller after execution, as a tool result.
func (g *ApprovalGate) Review(ctx context.Context, pa *PendingAction) (Decision, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := pa.transition(StateClassified); err != nil {
		return Decision{}, err
	}

	switch pa.Action().Kind {
	case ActionFileEdit:
		return g.reviewFileEdit(ctx, pa)
	case ActionCommandExec:
		return g.reviewCommand(ctx, pa)
	default:
		panic("unknown action kind " + string(pa.Action().Kind))
	}
}

func (g *ApprovalGate) reviewFileEdit(ctx context.Context, pa *PendingAction) (Decision, error) {
	edit := pa.Action().Edit

	canonical, err := g.paths.Validate(edit.Path, policy.IntentWrite)
	if err != nil {
		return g.block(pa, "path-validation", err.Error())
	}
	// Execution must target the path that was validated, not the raw input;
	// the two differ for relative paths once the process CWD leaves the root.
	edit.Path = canonical

	if g.policy.AutoApproveEdits {
		return g.autoApprove(pa, "edits auto-approved")
	}
	return g.askUser(ctx, pa, "file edit requires approval")
}

func (g *ApprovalGate) reviewCommand(ctx context.Context, pa *PendingAction) (Decision, error) {
	cmd := pa.Action().Command

	// The working directory must resolve inside the workspace and exist.
	// The command runs in the validated directory, not the raw input.
	if cmd.WorkingDir != "" {
		canonical, err := g.paths.Validate(cmd.WorkingDir, policy.IntentRead)
		if err != nil {
			return g.block(pa, "working-dir-validation", err.Error())
		}
		cmd.WorkingDir = canonical
	}

	verdict := g.commands.Classify(cmd.Command)
	switch verdict.Class {
	case policy.Denied:
		return g.block(pa, verdict.Rule, verdict.Reason)
	case policy.Allowed:
		return g.autoApprove(pa, "command allowlisted")
	}

	if g.policy.AutoApproveNativeCommands {
		return g.autoApprove(pa, "commands auto-approved")
	}
	if g.granted(cmd.Command) {
		return g.autoApprove(pa, "approved for session")
	}
	return g.askUser(ctx, pa, "command requires approval")
}

// askUser suspends the review until the confirmer answers. An interrupt,
// error, or timeout while awaiting the user is recorded as UserRejected,
// never silently dropped.
func (g *ApprovalGate) askUser(ctx context.Context, pa *PendingAction, prompt string) (Decision, error) {
	if err := pa.transition(StateAwaitingUser); err != nil {
		return Decision{}, err
	}

	confirmCtx := ctx
	if g.policy.ApprovalTimeout > 0 {
		var cancel context.CancelFunc
		confirmCtx, cancel = context.WithTimeout(ctx, g.policy.ApprovalTimeout)
		defer cancel()
	}

	answer, err := g.confirmer.Confirm(confirmCtx, pa.Action(), prompt)
	if err != nil {
		reason := "approval interrupted: " + err.Error()
		if confirmCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			reason = "approval timed out"
		}
		return g.reject(pa, reason)
	}

	switch answer {
	case AnswerApproveAlways:
		if cmd := pa.Action().Command; cmd != nil {
			g.grants[cmd.Command] = true
		}
		fallthrough
	case AnswerApprove:
		if err := pa.transition(StateUserApproved); err != nil {
			return Decision{}, err
		}
		return Decision{Outcome: OutcomeUserApproved}, nil
	default:
		return g.reject(pa, "declined by user")
	}
}

func (g *ApprovalGate) autoApprove(pa *PendingAction, reason string) (Decision, error) {
	if err := pa.transition(StateAutoApproved); err != nil {
		return Decision{}, err
	}
	return Decision{Outcome: OutcomeAutoApproved, Reason: reason}, nil
}

func (g *ApprovalGate) block(pa *PendingAction, rule, reason string) (Decision, error) {
	if err := pa.transition(StateBlocked); err != nil {
		return Decision{}, err
	}
	g.log.AppendError("gate", pa.Action().Describe()+" blocked by "+rule+": "+reason)
	return Decision{Outcome: OutcomeBlocked, Rule: rule, Reason: reason}, nil
}

func (g *ApprovalGate) reject(pa *PendingAction, reason string) (Decision, error) {
	if err := pa.transition(StateUserRejected); err != nil {
		return Decision{}, err
	}
	g.log.AppendError("gate", pa.Action().Describe()+" rejected: "+reason)
	return Decision{Outcome: OutcomeUserRejected, Reason: reason}, nil
}

func (g *ApprovalGate) granted(command string) bool {
	return g.grants[command]
}
