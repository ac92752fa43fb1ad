package grade

import (
	"time"

	"github.com/trezcool/gradebook/core/curriculum"
)

// Status is the workflow state of a grade.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusReleased  Status = "released"
)

var Statuses = []Status{StatusDraft, StatusSubmitted, StatusApproved, StatusRejected, StatusReleased}

func (s Status) Valid() bool {
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}

// Key identifies a grade within a class sheet.
type Key struct {
	StudentID string `json:"student_id"`
	SubjectID string `json:"subject_id"`
}

// BatchKey identifies the submission batch a grade belongs to.
type BatchKey struct {
	SchoolID    string `json:"school_id"`
	ClassID     string `json:"class_id"`
	Term        string `json:"term"`
	ExamType    string `json:"exam_type"`
	SubmittedBy string `json:"submitted_by"`
}

// Grade is one student's result in one subject for a term/exam.
// Scores holds exactly one of *StandardScores, *CBCScores or *IGCSEScores, matching Curriculum.
type Grade struct {
	ID         string          `json:"id"`
	SchoolID   string          `json:"school_id"`
	StudentID  string          `json:"student_id"`
	SubjectID  string          `json:"subject_id"`
	ClassID    string          `json:"class_id"`
	Term       string          `json:"term"`
	ExamType   string          `json:"exam_type"`
	Curriculum curriculum.Type `json:"curriculum_type"`
	Status     Status          `json:"status"`
	Scores     Scores          `json:"-"`
	Comments   string          `json:"comments,omitempty"`

	Complete      bool     `json:"complete"`
	MissingFields []string `json:"missing_fields,omitempty"`

	SubmittedBy     string     `json:"submitted_by"`
	SubmittedAt     *time.Time `json:"submitted_at,omitempty"`
	ApprovedBy      string     `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectedBy      string     `json:"rejected_by,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	ReleasedBy      string     `json:"released_by,omitempty"`
	ReleasedAt      *time.Time `json:"released_at,omitempty"`
	OverriddenBy    string     `json:"overridden_by,omitempty"`
	OverriddenAt    *time.Time `json:"overridden_at,omitempty"`
	OverrideReason  string     `json:"override_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (g Grade) Key() Key {
	return Key{StudentID: g.StudentID, SubjectID: g.SubjectID}
}

func (g Grade) BatchKey() BatchKey {
	return BatchKey{
		SchoolID:    g.SchoolID,
		ClassID:     g.ClassID,
		Term:        g.Term,
		ExamType:    g.ExamType,
		SubmittedBy: g.SubmittedBy,
	}
}

func (g Grade) IsOverridden() bool {
	return g.OverriddenBy != ""
}

// Clone returns a deep copy so that callers can mutate it without touching g.
func (g Grade) Clone() Grade {
	c := g
	if g.Scores != nil {
		c.Scores = g.Scores.clone()
	}
	if g.MissingFields != nil {
		c.MissingFields = append([]string{}, g.MissingFields...)
	}
	return c
}

// Rules is the curriculum configuration a grade is computed and checked against.
type Rules struct {
	MaxScore        float64
	Scheme          curriculum.Scheme
	RequiredStrands []string
}

// evaluate recomputes derived fields and the completeness flags.
func (g *Grade) evaluate(r Rules) {
	if g.Scores == nil {
		g.Complete = false
		g.MissingFields = []string{"scores"}
		return
	}
	g.Scores.compute(r)
	g.MissingFields = g.Scores.missing(r)
	g.Complete = len(g.MissingFields) == 0
}

// QueryFilter applies AND on the set fields.
type QueryFilter struct {
	SchoolID    string   `query:"school_id"`
	ClassID     string   `query:"class_id"`
	SubjectID   string   `query:"subject_id"`
	StudentID   string   `query:"student_id"`
	Term        string   `query:"term"`
	ExamType    string   `query:"exam_type"`
	SubmittedBy string   `query:"submitted_by"`
	Statuses    []Status `query:"status"`
}

func (qf QueryFilter) Match(g Grade) bool {
	if (qf.SchoolID != "" && g.SchoolID != qf.SchoolID) ||
		(qf.ClassID != "" && g.ClassID != qf.ClassID) ||
		(qf.SubjectID != "" && g.SubjectID != qf.SubjectID) ||
		(qf.StudentID != "" && g.StudentID != qf.StudentID) ||
		(qf.Term != "" && g.Term != qf.Term) ||
		(qf.ExamType != "" && g.ExamType != qf.ExamType) ||
		(qf.SubmittedBy != "" && g.SubmittedBy != qf.SubmittedBy) {
		return false
	}
	if len(qf.Statuses) == 0 {
		return true
	}
	for _, s := range qf.Statuses {
		if g.Status == s {
			return true
		}
	}
	return false
}

// ForBatch returns the filter selecting every grade of a batch.
func ForBatch(k BatchKey) QueryFilter {
	return QueryFilter{
		SchoolID:    k.SchoolID,
		ClassID:     k.ClassID,
		Term:        k.Term,
		ExamType:    k.ExamType,
		SubmittedBy: k.SubmittedBy,
	}
}
