package boiledrepos

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/batch"
	"github.com/trezcool/gradebook/core/curriculum"
	"github.com/trezcool/gradebook/core/grade"
)

const batchColumns = `id, school_id, class_id, term, exam_type, curriculum_type, submitted_by, total_students,
	grades_entered, status, submitted_at, reviewed_at, reviewed_by, principal_notes, created_at, updated_at`

type batchRow struct {
	ID             string      `boil:"id"`
	SchoolID       string      `boil:"school_id"`
	ClassID        string      `boil:"class_id"`
	Term           string      `boil:"term"`
	ExamType       string      `boil:"exam_type"`
	CurriculumType string      `boil:"curriculum_type"`
	SubmittedBy    string      `boil:"submitted_by"`
	TotalStudents  int         `boil:"total_students"`
	GradesEntered  int         `boil:"grades_entered"`
	Status         string      `boil:"status"`
	SubmittedAt    null.Time   `boil:"submitted_at"`
	ReviewedAt     null.Time   `boil:"reviewed_at"`
	ReviewedBy     null.String `boil:"reviewed_by"`
	PrincipalNotes null.String `boil:"principal_notes"`
	CreatedAt      time.Time   `boil:"created_at"`
	UpdatedAt      time.Time   `boil:"updated_at"`
}

type batchRepository struct {
	exec core.DBExecutor
}

var _ batch.Repository = (*batchRepository)(nil) // interface compliance check

func NewBatchRepository(exec core.DBExecutor) *batchRepository {
	return &batchRepository{exec: exec}
}

func (repo batchRepository) unboil(row batchRow) batch.Batch {
	return batch.Batch{
		ID:             row.ID,
		SchoolID:       row.SchoolID,
		ClassID:        row.ClassID,
		Term:           row.Term,
		ExamType:       row.ExamType,
		Curriculum:     curriculum.Type(row.CurriculumType),
		SubmittedBy:    row.SubmittedBy,
		TotalStudents:  row.TotalStudents,
		GradesEntered:  row.GradesEntered,
		Status:         grade.Status(row.Status),
		SubmittedAt:    row.SubmittedAt.Ptr(),
		ReviewedAt:     row.ReviewedAt.Ptr(),
		ReviewedBy:     row.ReviewedBy.String,
		PrincipalNotes: row.PrincipalNotes.String,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}

// UpsertBatch inserts the batch unless its tuple exists. The no-op update makes RETURNING yield the stored row.
func (repo batchRepository) UpsertBatch(ctx context.Context, b batch.Batch) (batch.Batch, error) {
	q := fmt.Sprintf(`INSERT INTO grade_batches (%s) VALUES (%s)
		ON CONFLICT ON CONSTRAINT grade_batches_tuple_key DO UPDATE SET id = grade_batches.id
		RETURNING %s`, batchColumns, placeholders(16, 1), batchColumns)

	var row batchRow
	err := queries.Raw(q,
		uuid.New().String(), b.SchoolID, b.ClassID, b.Term, b.ExamType, string(b.Curriculum), b.SubmittedBy,
		b.TotalStudents, b.GradesEntered, string(b.Status), nullTime(b.SubmittedAt), nullTime(b.ReviewedAt),
		nullString(b.ReviewedBy), nullString(b.PrincipalNotes), b.CreatedAt.UTC(), b.UpdatedAt.UTC(),
	).Bind(ctx, repo.exec, &row)
	if err != nil {
		return batch.Batch{}, trapConflictErr(err, "batch", "upserting batch")
	}
	return repo.unboil(row), nil
}

func (repo batchRepository) GetBatch(ctx context.Context, id string) (batch.Batch, error) {
	if !isUUID(id) {
		return batch.Batch{}, core.NewNotFoundError("batch", id)
	}
	var row batchRow
	q := fmt.Sprintf("SELECT %s FROM grade_batches WHERE id = $1", batchColumns)
	if err := queries.Raw(q, id).Bind(ctx, repo.exec, &row); err != nil {
		return batch.Batch{}, trapNoRowsErr(err, "batch", id, "getting batch")
	}
	return repo.unboil(row), nil
}

func (repo batchRepository) UpdateBatch(ctx context.Context, b batch.Batch) (batch.Batch, error) {
	q := fmt.Sprintf(`UPDATE grade_batches SET
			curriculum_type = $2, total_students = $3, grades_entered = $4, status = $5, submitted_at = $6,
			reviewed_at = $7, reviewed_by = $8, principal_notes = $9, updated_at = $10
		WHERE id = $1
		RETURNING %s`, batchColumns)

	var row batchRow
	err := queries.Raw(q,
		b.ID, string(b.Curriculum), b.TotalStudents, b.GradesEntered, string(b.Status), nullTime(b.SubmittedAt),
		nullTime(b.ReviewedAt), nullString(b.ReviewedBy), nullString(b.PrincipalNotes), b.UpdatedAt.UTC(),
	).Bind(ctx, repo.exec, &row)
	if err != nil {
		return batch.Batch{}, trapNoRowsErr(err, "batch", b.ID, "updating batch")
	}
	return repo.unboil(row), nil
}
