package audit

import (
	"time"
)

// Action is an audited grade transition.
type Action string

const (
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionOverride Action = "override"
	ActionRelease  Action = "release"
)

func (a Action) Valid() bool {
	switch a {
	case ActionApprove, ActionReject, ActionOverride, ActionRelease:
		return true
	}
	return false
}

// Values is a JSON-compatible snapshot of grade fields.
type Values map[string]interface{}

// Entry records one transition of one grade. Entries are append-only.
type Entry struct {
	ID        string    `json:"id"`
	GradeID   string    `json:"grade_id"`
	ActorID   string    `json:"actor_id"`
	ActorRole string    `json:"actor_role"`
	Action    Action    `json:"action"`
	OldValues Values    `json:"old_values"`
	NewValues Values    `json:"new_values"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"` // UTC
}

type QueryFilter struct {
	GradeIDs []string `query:"grade_id"`
	ActorID  string   `query:"actor_id"`
	Actions  []Action `query:"action"`
}

func (qf QueryFilter) Match(e Entry) bool {
	if qf.ActorID != "" && e.ActorID != qf.ActorID {
		return false
	}
	if len(qf.GradeIDs) > 0 && !contains(qf.GradeIDs, e.GradeID) {
		return false
	}
	if len(qf.Actions) > 0 {
		for _, a := range qf.Actions {
			if e.Action == a {
				return true
			}
		}
		return false
	}
	return true
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
