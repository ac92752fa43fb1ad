package batch

import (
	"time"

	"github.com/trezcool/gradebook/core/curriculum"
	"github.com/trezcool/gradebook/core/grade"
)

// Batch groups the grades one teacher entered for a class, term and exam type.
// Its Status is derived from the grades, see DeriveStatus.
type Batch struct {
	ID             string          `json:"id"`
	SchoolID       string          `json:"school_id"`
	ClassID        string          `json:"class_id"`
	Term           string          `json:"term"`
	ExamType       string          `json:"exam_type"`
	Curriculum     curriculum.Type `json:"curriculum_type"`
	SubmittedBy    string          `json:"submitted_by"`
	TotalStudents  int             `json:"total_students"`
	GradesEntered  int             `json:"grades_entered"`
	Status         grade.Status    `json:"status"`
	SubmittedAt    *time.Time      `json:"submitted_at,omitempty"`
	ReviewedAt     *time.Time      `json:"reviewed_at,omitempty"`
	ReviewedBy     string          `json:"reviewed_by,omitempty"`
	PrincipalNotes string          `json:"principal_notes,omitempty"`
	CreatedAt      time.Time       `json:"created_at"` // UTC
	UpdatedAt      time.Time       `json:"updated_at"` // UTC
}

func (b Batch) Key() grade.BatchKey {
	return grade.BatchKey{
		SchoolID:    b.SchoolID,
		ClassID:     b.ClassID,
		Term:        b.Term,
		ExamType:    b.ExamType,
		SubmittedBy: b.SubmittedBy,
	}
}

// Progress is the share of the class with an entered grade, in [0, 1].
func (b Batch) Progress() float64 {
	if b.TotalStudents <= 0 {
		return 0
	}
	p := float64(b.GradesEntered) / float64(b.TotalStudents)
	if p > 1 {
		return 1
	}
	return p
}

// statusOrder ranks statuses for the minimum rule; a single rejected grade pulls the batch to rejected.
var statusOrder = map[grade.Status]int{
	grade.StatusRejected:  0,
	grade.StatusDraft:     1,
	grade.StatusSubmitted: 2,
	grade.StatusApproved:  3,
	grade.StatusReleased:  4,
}

// DeriveStatus returns the lowest status among the grades. No grades means draft.
func DeriveStatus(grades []grade.Grade) grade.Status {
	if len(grades) == 0 {
		return grade.StatusDraft
	}
	min := grades[0].Status
	for _, g := range grades[1:] {
		if statusOrder[g.Status] < statusOrder[min] {
			min = g.Status
		}
	}
	return min
}
