package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/actor"
	"github.com/trezcool/gradebook/core/curriculum"
	"github.com/trezcool/gradebook/core/grade"
)

type (
	Repository interface {
		// UpsertBatch creates the batch of b.Key() unless it exists, and returns the stored batch.
		UpsertBatch(ctx context.Context, b Batch) (Batch, error)
		// GetBatch returns a *core.NotFoundError when there is no such batch.
		GetBatch(ctx context.Context, id string) (Batch, error)
		UpdateBatch(ctx context.Context, b Batch) (Batch, error)
	}

	GradeQuerier interface {
		QueryGrades(ctx context.Context, filter grade.QueryFilter) ([]grade.Grade, error)
	}

	ServiceInterface interface {
		grade.BatchTracker

		UpsertBatch(ctx context.Context, key grade.BatchKey) (Batch, error)
		RecomputeStatus(ctx context.Context, id string) (Batch, error)
		Get(ctx context.Context, id string) (Batch, error)
		SetNotes(ctx context.Context, a actor.Actor, id, notes string) (Batch, error)
	}

	Service struct {
		repo      Repository
		grades    GradeQuerier
		curricula curriculum.ServiceInterface
		logger    core.Logger
	}
)

var _ ServiceInterface = (*Service)(nil) // interface compliance check

func NewService(repo Repository, grades GradeQuerier, curricula curriculum.ServiceInterface, logger core.Logger) *Service {
	return &Service{
		repo:      repo,
		grades:    grades,
		curricula: curricula,
		logger:    logger,
	}
}

func validateKey(key grade.BatchKey) error {
	var flds []core.FieldError
	for name, val := range map[string]string{
		"school_id":    key.SchoolID,
		"class_id":     key.ClassID,
		"term":         key.Term,
		"exam_type":    key.ExamType,
		"submitted_by": key.SubmittedBy,
	} {
		if core.CleanString(val) == "" {
			flds = append(flds, core.FieldError{Field: name, Error: "this field is required"})
		}
	}
	if len(flds) > 0 {
		return core.NewValidationError(errors.New("incomplete batch key"), flds...)
	}
	return nil
}

// UpsertBatch returns the batch of key, creating it in draft when it does not exist yet.
func (svc *Service) UpsertBatch(ctx context.Context, key grade.BatchKey) (Batch, error) {
	if err := validateKey(key); err != nil {
		return Batch{}, err
	}

	now := core.Now()
	b := Batch{
		SchoolID:    key.SchoolID,
		ClassID:     key.ClassID,
		Term:        key.Term,
		ExamType:    key.ExamType,
		SubmittedBy: key.SubmittedBy,
		Status:      grade.StatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	res := svc.curricula.Resolve(ctx, key.ClassID)
	b.Curriculum = res.Type
	if class, err := svc.curricula.GetClass(ctx, key.ClassID); err == nil {
		b.TotalStudents = class.StudentCount
	}

	stored, err := svc.repo.UpsertBatch(ctx, b)
	if err != nil {
		return Batch{}, errors.Wrap(err, "upserting batch")
	}
	return stored, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Batch, error) {
	return svc.repo.GetBatch(ctx, core.CleanString(id))
}

// RecomputeStatus refreshes the derived fields of a batch from its grades.
func (svc *Service) RecomputeStatus(ctx context.Context, id string) (Batch, error) {
	b, err := svc.repo.GetBatch(ctx, core.CleanString(id))
	if err != nil {
		return Batch{}, errors.Wrap(err, "getting batch")
	}
	return svc.recompute(ctx, b)
}

func (svc *Service) recompute(ctx context.Context, b Batch) (Batch, error) {
	grades, err := svc.grades.QueryGrades(ctx, grade.ForBatch(b.Key()))
	if err != nil {
		return Batch{}, errors.Wrap(err, "querying batch grades")
	}

	b.Status = DeriveStatus(grades)
	b.GradesEntered = countStudents(grades)
	if class, err := svc.curricula.GetClass(ctx, b.ClassID); err == nil {
		b.TotalStudents = class.StudentCount
	}
	if len(grades) > 0 && grades[0].Curriculum != "" {
		b.Curriculum = grades[0].Curriculum
	}

	b.SubmittedAt = nil
	b.ReviewedAt, b.ReviewedBy = nil, ""
	for _, g := range grades {
		if g.SubmittedAt != nil && (b.SubmittedAt == nil || g.SubmittedAt.Before(*b.SubmittedAt)) {
			b.SubmittedAt = timePtr(*g.SubmittedAt)
		}
		for _, r := range []struct {
			at *time.Time
			by string
		}{{g.ApprovedAt, g.ApprovedBy}, {g.RejectedAt, g.RejectedBy}} {
			if r.at != nil && (b.ReviewedAt == nil || r.at.After(*b.ReviewedAt)) {
				b.ReviewedAt, b.ReviewedBy = timePtr(*r.at), r.by
			}
		}
	}
	b.UpdatedAt = core.Now()

	updated, err := svc.repo.UpdateBatch(ctx, b)
	if err != nil {
		return Batch{}, errors.Wrap(err, "updating batch")
	}
	return updated, nil
}

// Track creates and refreshes the batches of the given keys. Failures are logged, never returned.
func (svc *Service) Track(ctx context.Context, keys ...grade.BatchKey) {
	for _, key := range keys {
		b, err := svc.UpsertBatch(ctx, key)
		if err == nil {
			_, err = svc.recompute(ctx, b)
		}
		if err != nil {
			svc.logger.Warn(fmt.Sprintf("tracking batch %+v: %v", key, err), err)
		}
	}
}

// SetNotes stores the reviewer's notes on a batch.
func (svc *Service) SetNotes(ctx context.Context, a actor.Actor, id, notes string) (Batch, error) {
	if !a.IsReviewer() {
		return Batch{}, core.NewPermissionError(a.ID, a.Role, "annotate batches")
	}
	b, err := svc.repo.GetBatch(ctx, core.CleanString(id))
	if err != nil {
		return Batch{}, errors.Wrap(err, "getting batch")
	}
	b.PrincipalNotes = core.CleanString(notes)
	b.UpdatedAt = core.Now()
	return svc.repo.UpdateBatch(ctx, b)
}

func countStudents(grades []grade.Grade) int {
	seen := make(map[string]bool, len(grades))
	for _, g := range grades {
		seen[g.StudentID] = true
	}
	return len(seen)
}

func timePtr(t time.Time) *time.Time { return &t }
