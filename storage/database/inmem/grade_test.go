package inmemdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grade"
)

func TestGradeRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGradeRepository(Open())
	t0 := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	score := 40.0

	g := grade.Grade{
		SchoolID: "s1", StudentID: "st1", SubjectID: "math", ClassID: "c1",
		Term: "T1", ExamType: "cat", SubmittedBy: "t1", Status: grade.StatusDraft,
		Scores: &grade.StandardScores{Score: &score, MaxScore: 50}, CreatedAt: t0,
	}
	first, err := repo.UpsertGrade(ctx, g)
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	t.Run("upsert on the tuple", func(t *testing.T) {
		again := g
		again.CreatedAt = t0.Add(time.Hour)
		again.Comments = "second"
		got, err := repo.UpsertGrade(ctx, again)
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)
		assert.Equal(t, t0, got.CreatedAt)

		other := g
		other.SubmittedBy = "t2"
		got, err = repo.UpsertGrade(ctx, other)
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, got.ID)
	})

	t.Run("stored copies are isolated", func(t *testing.T) {
		got, err := repo.GetGrade(ctx, first.ID)
		require.NoError(t, err)
		*got.Scores.(*grade.StandardScores).Score = 1

		again, err := repo.GetGrade(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, 40.0, *again.Scores.(*grade.StandardScores).Score)
	})

	t.Run("conditional update", func(t *testing.T) {
		cur, err := repo.GetGrade(ctx, first.ID)
		require.NoError(t, err)
		cur.Status = grade.StatusSubmitted

		ok, err := repo.UpdateGradeIf(ctx, cur, grade.StatusApproved)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = repo.UpdateGradeIf(ctx, cur, grade.StatusDraft)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.UpdateGradeIf(ctx, cur, grade.StatusDraft)
		require.NoError(t, err)
		assert.False(t, ok, "the precondition no longer holds")

		cur.ID = "missing"
		_, err = repo.UpdateGradeIf(ctx, cur, grade.StatusDraft)
		assert.True(t, core.IsNotFound(err))
	})

	t.Run("lookups", func(t *testing.T) {
		grades, err := repo.GetGrades(ctx, []string{first.ID, "missing"})
		require.NoError(t, err)
		assert.Len(t, grades, 1)

		grades, err = repo.QueryGrades(ctx, grade.QueryFilter{ClassID: "c1", Statuses: []grade.Status{grade.StatusSubmitted}})
		require.NoError(t, err)
		require.Len(t, grades, 1)
		assert.Equal(t, first.ID, grades[0].ID)

		_, err = repo.GetGrade(ctx, "missing")
		assert.True(t, core.IsNotFound(err))
	})
}
