package grade

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
)

// Action is a workflow operation on a grade.
type Action string

const (
	ActionEdit     Action = "edit"
	ActionSubmit   Action = "submit"
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionRelease  Action = "release"
	ActionOverride Action = "override"
)

var ErrInvalidTransition = errors.New("invalid status transition")

// moves lists the legal status moves. approved -> approved and released -> released
// are the override self-loops.
var moves = map[Status][]Status{
	StatusDraft:     {StatusSubmitted},
	StatusSubmitted: {StatusApproved, StatusRejected},
	StatusApproved:  {StatusApproved, StatusRejected, StatusReleased},
	StatusRejected:  {StatusDraft},
	StatusReleased:  {StatusReleased},
}

// CanMove reports whether from -> to is a legal move of the state machine.
func CanMove(from, to Status) bool {
	for _, s := range moves[from] {
		if s == to {
			return true
		}
	}
	return false
}

// actionMoves maps each action to its source statuses and resulting status.
var actionMoves = map[Action]map[Status]Status{
	ActionEdit:     {StatusDraft: StatusDraft, StatusRejected: StatusDraft},
	ActionSubmit:   {StatusDraft: StatusSubmitted},
	ActionApprove:  {StatusSubmitted: StatusApproved},
	ActionReject:   {StatusSubmitted: StatusRejected, StatusApproved: StatusRejected},
	ActionRelease:  {StatusApproved: StatusReleased},
	ActionOverride: {StatusSubmitted: StatusApproved, StatusApproved: StatusApproved, StatusReleased: StatusReleased},
}

// Target returns the status a grade in `from` ends up in after the action,
// or false when the action does not apply to `from`.
func (a Action) Target(from Status) (Status, bool) {
	to, ok := actionMoves[a][from]
	return to, ok
}

// Sources returns the statuses the action applies to.
func (a Action) Sources() []Status {
	var out []Status
	for _, s := range Statuses {
		if _, ok := actionMoves[a][s]; ok {
			out = append(out, s)
		}
	}
	return out
}

func invalidTransitionError(a Action, from Status) error {
	msg := fmt.Sprintf("cannot %s a %s grade", a, from)
	return core.NewValidationError(
		errors.Wrap(ErrInvalidTransition, msg),
		core.FieldError{Field: "status", Error: msg},
	)
}
