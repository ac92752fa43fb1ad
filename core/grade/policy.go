package grade

import "github.com/trezcool/gradebook/core/actor"

// Policy decides which actors may move a grade between two statuses.
type Policy interface {
	CanTransition(a actor.Actor, from, to Status) bool
}

// RolePolicy is the default Policy:
//   - teachers and reviewers edit and submit drafts, and reopen rejected grades;
//   - reviewers (principal, owner, admin) approve, reject, release and override;
//   - overriding a released grade is reserved to principals and owners.
type RolePolicy struct{}

var _ Policy = RolePolicy{}

func (RolePolicy) CanTransition(a actor.Actor, from, to Status) bool {
	if !CanMove(from, to) && !(from == StatusDraft && to == StatusDraft) {
		return false
	}
	switch {
	case to == StatusDraft, from == StatusDraft && to == StatusSubmitted:
		return a.IsTeacher() || a.IsReviewer()
	case from == StatusReleased && to == StatusReleased:
		return a.IsPrincipal()
	default:
		return a.IsReviewer()
	}
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(a actor.Actor, from, to Status) bool

func (f PolicyFunc) CanTransition(a actor.Actor, from, to Status) bool {
	return f(a, from, to)
}

// allowedAnywhere reports whether the policy lets the actor perform the action from at least one source status.
// It needs no store access, so permission failures surface before any I/O.
func allowedAnywhere(p Policy, a actor.Actor, act Action) bool {
	for _, from := range act.Sources() {
		to, _ := act.Target(from)
		if p.CanTransition(a, from, to) {
			return true
		}
	}
	return false
}
