package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/gradebook/core/grade"
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []grade.Status
		want     grade.Status
	}{
		{name: "empty", want: grade.StatusDraft},
		{name: "single", statuses: []grade.Status{grade.StatusApproved}, want: grade.StatusApproved},
		{name: "any draft", statuses: []grade.Status{grade.StatusReleased, grade.StatusDraft, grade.StatusSubmitted}, want: grade.StatusDraft},
		{name: "submitted and approved", statuses: []grade.Status{grade.StatusApproved, grade.StatusSubmitted}, want: grade.StatusSubmitted},
		{name: "rejected wins", statuses: []grade.Status{grade.StatusDraft, grade.StatusReleased, grade.StatusRejected}, want: grade.StatusRejected},
		{name: "all released", statuses: []grade.Status{grade.StatusReleased, grade.StatusReleased}, want: grade.StatusReleased},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grades := make([]grade.Grade, 0, len(tt.statuses))
			for _, s := range tt.statuses {
				grades = append(grades, grade.Grade{Status: s})
			}
			assert.Equal(t, tt.want, DeriveStatus(grades))
		})
	}
}

func TestBatch_Progress(t *testing.T) {
	assert.Zero(t, Batch{GradesEntered: 3}.Progress())
	assert.Equal(t, 0.5, Batch{TotalStudents: 4, GradesEntered: 2}.Progress())
	assert.Equal(t, 1.0, Batch{TotalStudents: 2, GradesEntered: 3}.Progress())
}
