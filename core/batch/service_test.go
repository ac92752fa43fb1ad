package batch_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/actor"
	"github.com/trezcool/gradebook/core/batch"
	"github.com/trezcool/gradebook/core/curriculum"
	"github.com/trezcool/gradebook/core/grade"
	inmemdb "github.com/trezcool/gradebook/storage/database/inmem"
	"github.com/trezcool/gradebook/tests"
)

type fixture struct {
	db     *inmemdb.DB
	repo   grade.Repository
	logger *testutil.Logger
	svc    *batch.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	conf := testutil.Config(t)
	db := inmemdb.Open()
	logger := testutil.NewLogger()

	classes := inmemdb.NewClassRepository(db)
	_, err := classes.SaveClass(ctx, curriculum.Class{ID: "c1", SchoolID: "s1", CurriculumType: "cbc", StudentCount: 30})
	require.NoError(t, err)
	curricula := curriculum.NewService(conf, logger, classes, inmemdb.NewCompetencyRepository(db), inmemdb.NewSchemeRepository(db))

	repo := inmemdb.NewGradeRepository(db)
	return fixture{
		db:     db,
		repo:   repo,
		logger: logger,
		svc:    batch.NewService(inmemdb.NewBatchRepository(db), repo, curricula, logger),
	}
}

var key = grade.BatchKey{SchoolID: "s1", ClassID: "c1", Term: "2026-T2", ExamType: "cat_1", SubmittedBy: "t1"}

func TestService_UpsertBatch(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	first, err := fx.svc.UpsertBatch(ctx, key)
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, grade.StatusDraft, first.Status)
	assert.Equal(t, curriculum.CBC, first.Curriculum)
	assert.Equal(t, 30, first.TotalStudents)
	assert.Equal(t, key, first.Key())

	again, err := fx.svc.UpsertBatch(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	other := key
	other.SubmittedBy = "t2"
	second, err := fx.svc.UpsertBatch(ctx, other)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	_, err = fx.svc.UpsertBatch(ctx, grade.BatchKey{ClassID: "c1"})
	require.Error(t, err)
	assert.True(t, core.IsValidationError(err))
}

func TestService_RecomputeStatus(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	b, err := fx.svc.UpsertBatch(ctx, key)
	require.NoError(t, err)

	t0 := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	later := t0.Add(time.Hour)
	for _, g := range []grade.Grade{
		{StudentID: "st1", SubjectID: "math", Status: grade.StatusSubmitted, SubmittedAt: &later},
		{StudentID: "st1", SubjectID: "eng", Status: grade.StatusApproved, SubmittedAt: &t0, ApprovedBy: "p1", ApprovedAt: &later},
		{StudentID: "st2", SubjectID: "math", Status: grade.StatusReleased, ApprovedBy: "p2", ApprovedAt: &t0},
	} {
		g.SchoolID, g.ClassID, g.Term, g.ExamType, g.SubmittedBy = key.SchoolID, key.ClassID, key.Term, key.ExamType, key.SubmittedBy
		_, err := fx.repo.UpsertGrade(ctx, g)
		require.NoError(t, err)
	}

	got, err := fx.svc.RecomputeStatus(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, grade.StatusSubmitted, got.Status)
	assert.Equal(t, 2, got.GradesEntered)
	assert.Equal(t, t0, *got.SubmittedAt)
	assert.Equal(t, later, *got.ReviewedAt)
	assert.Equal(t, "p1", got.ReviewedBy)

	_, err = fx.svc.RecomputeStatus(ctx, "missing")
	assert.True(t, core.IsNotFound(err))
}

func TestService_Track(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	fx.svc.Track(ctx, key, grade.BatchKey{ClassID: "c1"})
	assert.Len(t, fx.logger.Entries("warn"), 1)

	b, err := fx.svc.UpsertBatch(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, grade.StatusDraft, b.Status)
	assert.Zero(t, b.GradesEntered)
}

func TestService_SetNotes(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	b, err := fx.svc.UpsertBatch(ctx, key)
	require.NoError(t, err)

	_, err = fx.svc.SetNotes(ctx, actor.New("t1", "teacher"), b.ID, "looks fine")
	assert.True(t, core.IsPermissionDenied(err))

	got, err := fx.svc.SetNotes(ctx, actor.New("p1", "principal"), b.ID, "  CAT 1 moderated  ")
	require.NoError(t, err)
	assert.Equal(t, "CAT 1 moderated", got.PrincipalNotes)
	assert.Equal(t, b.CreatedAt, got.CreatedAt)
}
