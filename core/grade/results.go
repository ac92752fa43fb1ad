package grade

import (
	"context"
	"fmt"

	"github.com/trezcool/gradebook/core/actor"
)

// BulkResult reports what a bulk action did. Rows whose status did not meet the
// action's precondition are Skipped, not Failed; Affected < Requested is an expected outcome.
type BulkResult struct {
	Action      Action            `json:"action"`
	Requested   int               `json:"requested"`
	Affected    int               `json:"affected"`
	Skipped     int               `json:"skipped"`
	Failed      int               `json:"failed"`
	AffectedIDs []string          `json:"affected_ids"`
	SkippedIDs  []string          `json:"skipped_ids,omitempty"`
	Errors      map[string]string `json:"errors,omitempty"` // {gradeID: reason}
}

func newBulkResult(act Action, requested int) BulkResult {
	return BulkResult{Action: act, Requested: requested, AffectedIDs: make([]string, 0, requested)}
}

func (r *BulkResult) affected(id string) {
	r.Affected++
	r.AffectedIDs = append(r.AffectedIDs, id)
}

func (r *BulkResult) skipped(id string) {
	r.Skipped++
	r.SkippedIDs = append(r.SkippedIDs, id)
}

func (r *BulkResult) failed(id string, err error) {
	r.Failed++
	if r.Errors == nil {
		r.Errors = make(map[string]string)
	}
	r.Errors[id] = err.Error()
}

// IsPartial reports whether fewer rows were affected than requested.
func (r BulkResult) IsPartial() bool {
	return r.Affected < r.Requested
}

// Message is the user-facing summary, e.g. "3 of 5 succeeded".
func (r BulkResult) Message() string {
	return fmt.Sprintf("%d of %d succeeded", r.Affected, r.Requested)
}

// DraftResult is the outcome of saving a draft. Warning carries the curriculum fallback diagnostic.
type DraftResult struct {
	Grade   Grade  `json:"grade"`
	Created bool   `json:"created"`
	Warning string `json:"warning,omitempty"`
}

// Outcome is emitted after every successful transition.
type Outcome struct {
	Action Action      `json:"action"`
	Actor  actor.Actor `json:"actor"`
	Reason string      `json:"reason,omitempty"`
	Result BulkResult  `json:"result"`
	Grades []Grade     `json:"grades"` // affected grades, after the transition
}

// Notifier receives transition outcomes; presentation is up to the implementation.
type Notifier interface {
	Notify(ctx context.Context, o Outcome)
}

// BatchTracker keeps submission batches in line with their grades.
// It is best-effort: a tracking failure never fails a grade operation.
type BatchTracker interface {
	Track(ctx context.Context, keys ...BatchKey)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Outcome) {}

type nopTracker struct{}

func (nopTracker) Track(context.Context, ...BatchKey) {}
