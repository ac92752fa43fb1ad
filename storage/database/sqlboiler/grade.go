package boiledrepos

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/types"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/curriculum"
	"github.com/trezcool/gradebook/core/grade"
)

const gradeColumns = `id, school_id, student_id, subject_id, class_id, term, exam_type, curriculum_type, status,
	scores, comments, complete, missing_fields, submitted_by, submitted_at, approved_by, approved_at,
	rejected_by, rejected_at, rejection_reason, released_by, released_at, overridden_by, overridden_at,
	override_reason, created_at, updated_at`

type gradeRow struct {
	ID              string            `boil:"id"`
	SchoolID        string            `boil:"school_id"`
	StudentID       string            `boil:"student_id"`
	SubjectID       string            `boil:"subject_id"`
	ClassID         string            `boil:"class_id"`
	Term            string            `boil:"term"`
	ExamType        string            `boil:"exam_type"`
	CurriculumType  string            `boil:"curriculum_type"`
	Status          string            `boil:"status"`
	Scores          null.JSON         `boil:"scores"`
	Comments        string            `boil:"comments"`
	Complete        bool              `boil:"complete"`
	MissingFields   types.StringArray `boil:"missing_fields"`
	SubmittedBy     string            `boil:"submitted_by"`
	SubmittedAt     null.Time         `boil:"submitted_at"`
	ApprovedBy      null.String       `boil:"approved_by"`
	ApprovedAt      null.Time         `boil:"approved_at"`
	RejectedBy      null.String       `boil:"rejected_by"`
	RejectedAt      null.Time         `boil:"rejected_at"`
	RejectionReason null.String       `boil:"rejection_reason"`
	ReleasedBy      null.String       `boil:"released_by"`
	ReleasedAt      null.Time         `boil:"released_at"`
	OverriddenBy    null.String       `boil:"overridden_by"`
	OverriddenAt    null.Time         `boil:"overridden_at"`
	OverrideReason  null.String       `boil:"override_reason"`
	CreatedAt       time.Time         `boil:"created_at"`
	UpdatedAt       time.Time         `boil:"updated_at"`
}

func (r gradeRow) args() []interface{} {
	return []interface{}{
		r.ID, r.SchoolID, r.StudentID, r.SubjectID, r.ClassID, r.Term, r.ExamType, r.CurriculumType, r.Status,
		r.Scores, r.Comments, r.Complete, r.MissingFields, r.SubmittedBy, r.SubmittedAt, r.ApprovedBy, r.ApprovedAt,
		r.RejectedBy, r.RejectedAt, r.RejectionReason, r.ReleasedBy, r.ReleasedAt, r.OverriddenBy, r.OverriddenAt,
		r.OverrideReason, r.CreatedAt, r.UpdatedAt,
	}
}

type gradeRepository struct {
	exec core.DBExecutor
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(exec core.DBExecutor) *gradeRepository {
	return &gradeRepository{exec: exec}
}

func (repo gradeRepository) boil(g grade.Grade) (gradeRow, error) {
	row := gradeRow{
		ID:              g.ID,
		SchoolID:        g.SchoolID,
		StudentID:       g.StudentID,
		SubjectID:       g.SubjectID,
		ClassID:         g.ClassID,
		Term:            g.Term,
		ExamType:        g.ExamType,
		CurriculumType:  string(g.Curriculum),
		Status:          string(g.Status),
		Comments:        g.Comments,
		Complete:        g.Complete,
		MissingFields:   types.StringArray(append([]string{}, g.MissingFields...)),
		SubmittedBy:     g.SubmittedBy,
		SubmittedAt:     nullTime(g.SubmittedAt),
		ApprovedBy:      nullString(g.ApprovedBy),
		ApprovedAt:      nullTime(g.ApprovedAt),
		RejectedBy:      nullString(g.RejectedBy),
		RejectedAt:      nullTime(g.RejectedAt),
		RejectionReason: nullString(g.RejectionReason),
		ReleasedBy:      nullString(g.ReleasedBy),
		ReleasedAt:      nullTime(g.ReleasedAt),
		OverriddenBy:    nullString(g.OverriddenBy),
		OverriddenAt:    nullTime(g.OverriddenAt),
		OverrideReason:  nullString(g.OverrideReason),
		CreatedAt:       g.CreatedAt.UTC(),
		UpdatedAt:       g.UpdatedAt.UTC(),
	}
	if g.Scores != nil {
		raw, err := json.Marshal(g.Scores)
		if err != nil {
			return gradeRow{}, errors.Wrap(err, "marshalling scores")
		}
		row.Scores = null.JSONFrom(raw)
	}
	return row, nil
}

func (repo gradeRepository) unboil(row gradeRow) (grade.Grade, error) {
	g := grade.Grade{
		ID:              row.ID,
		SchoolID:        row.SchoolID,
		StudentID:       row.StudentID,
		SubjectID:       row.SubjectID,
		ClassID:         row.ClassID,
		Term:            row.Term,
		ExamType:        row.ExamType,
		Curriculum:      curriculum.Type(row.CurriculumType),
		Status:          grade.Status(row.Status),
		Comments:        row.Comments,
		Complete:        row.Complete,
		SubmittedBy:     row.SubmittedBy,
		SubmittedAt:     row.SubmittedAt.Ptr(),
		ApprovedBy:      row.ApprovedBy.String,
		ApprovedAt:      row.ApprovedAt.Ptr(),
		RejectedBy:      row.RejectedBy.String,
		RejectedAt:      row.RejectedAt.Ptr(),
		RejectionReason: row.RejectionReason.String,
		ReleasedBy:      row.ReleasedBy.String,
		ReleasedAt:      row.ReleasedAt.Ptr(),
		OverriddenBy:    row.OverriddenBy.String,
		OverriddenAt:    row.OverriddenAt.Ptr(),
		OverrideReason:  row.OverrideReason.String,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
	if len(row.MissingFields) > 0 {
		g.MissingFields = []string(row.MissingFields)
	}
	if row.Scores.Valid {
		scores, err := grade.UnmarshalScores(g.Curriculum, row.Scores.JSON)
		if err != nil {
			return grade.Grade{}, errors.Wrapf(err, "grade %s", row.ID)
		}
		g.Scores = scores
	}
	return g, nil
}

func (repo gradeRepository) unboilSlice(rows []gradeRow) ([]grade.Grade, error) {
	grades := make([]grade.Grade, 0, len(rows))
	for _, row := range rows {
		g, err := repo.unboil(row)
		if err != nil {
			return nil, err
		}
		grades = append(grades, g)
	}
	return grades, nil
}

func placeholders(n, from int) string {
	ps := make([]string, 0, n)
	for i := 0; i < n; i++ {
		ps = append(ps, fmt.Sprintf("$%d", from+i))
	}
	return strings.Join(ps, ", ")
}

// UpsertGrade writes on the grade tuple; the last writer wins.
func (repo gradeRepository) UpsertGrade(ctx context.Context, g grade.Grade) (grade.Grade, error) {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	row, err := repo.boil(g)
	if err != nil {
		return grade.Grade{}, err
	}

	q := fmt.Sprintf(`INSERT INTO grades (%s) VALUES (%s)
		ON CONFLICT ON CONSTRAINT grades_tuple_key DO UPDATE SET
			curriculum_type = EXCLUDED.curriculum_type, status = EXCLUDED.status, scores = EXCLUDED.scores,
			comments = EXCLUDED.comments, complete = EXCLUDED.complete, missing_fields = EXCLUDED.missing_fields,
			submitted_at = EXCLUDED.submitted_at, approved_by = EXCLUDED.approved_by, approved_at = EXCLUDED.approved_at,
			rejected_by = EXCLUDED.rejected_by, rejected_at = EXCLUDED.rejected_at, rejection_reason = EXCLUDED.rejection_reason,
			released_by = EXCLUDED.released_by, released_at = EXCLUDED.released_at, overridden_by = EXCLUDED.overridden_by,
			overridden_at = EXCLUDED.overridden_at, override_reason = EXCLUDED.override_reason, updated_at = EXCLUDED.updated_at
		RETURNING %s`, gradeColumns, placeholders(27, 1), gradeColumns)

	var stored gradeRow
	if err := queries.Raw(q, row.args()...).Bind(ctx, repo.exec, &stored); err != nil {
		return grade.Grade{}, trapConflictErr(err, "grade", "upserting grade")
	}
	return repo.unboil(stored)
}

func (repo gradeRepository) GetGrade(ctx context.Context, id string) (grade.Grade, error) {
	if !isUUID(id) {
		return grade.Grade{}, core.NewNotFoundError("grade", id)
	}
	var row gradeRow
	q := fmt.Sprintf("SELECT %s FROM grades WHERE id = $1", gradeColumns)
	if err := queries.Raw(q, id).Bind(ctx, repo.exec, &row); err != nil {
		return grade.Grade{}, trapNoRowsErr(err, "grade", id, "getting grade")
	}
	return repo.unboil(row)
}

func (repo gradeRepository) GetGrades(ctx context.Context, ids []string) ([]grade.Grade, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if isUUID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return []grade.Grade{}, nil
	}

	var rows []gradeRow
	q := fmt.Sprintf("SELECT %s FROM grades WHERE id = ANY($1)", gradeColumns)
	if err := queries.Raw(q, pq.Array(valid)).Bind(ctx, repo.exec, &rows); err != nil {
		return nil, errors.Wrap(err, "getting grades")
	}
	return repo.unboilSlice(rows)
}

func (repo gradeRepository) QueryGrades(ctx context.Context, filter grade.QueryFilter) ([]grade.Grade, error) {
	w := &where{}
	w.eq("school_id", filter.SchoolID)
	w.eq("class_id", filter.ClassID)
	w.eq("subject_id", filter.SubjectID)
	w.eq("student_id", filter.StudentID)
	w.eq("term", filter.Term)
	w.eq("exam_type", filter.ExamType)
	w.eq("submitted_by", filter.SubmittedBy)
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		w.add("status = ANY($%d)", pq.Array(statuses))
	}

	var rows []gradeRow
	q := fmt.Sprintf("SELECT %s FROM grades%s ORDER BY created_at, id", gradeColumns, w)
	if err := queries.Raw(q, w.args...).Bind(ctx, repo.exec, &rows); err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}
	return repo.unboilSlice(rows)
}

// UpdateGradeIf is a compare-and-set on the status column.
func (repo gradeRepository) UpdateGradeIf(ctx context.Context, g grade.Grade, expected grade.Status) (bool, error) {
	row, err := repo.boil(g)
	if err != nil {
		return false, err
	}

	q := `UPDATE grades SET
			curriculum_type = $3, status = $4, scores = $5, comments = $6, complete = $7, missing_fields = $8,
			submitted_at = $9, approved_by = $10, approved_at = $11, rejected_by = $12, rejected_at = $13,
			rejection_reason = $14, released_by = $15, released_at = $16, overridden_by = $17, overridden_at = $18,
			override_reason = $19, updated_at = $20
		WHERE id = $1 AND status = $2`
	res, err := queries.Raw(q,
		row.ID, string(expected),
		row.CurriculumType, row.Status, row.Scores, row.Comments, row.Complete, row.MissingFields,
		row.SubmittedAt, row.ApprovedBy, row.ApprovedAt, row.RejectedBy, row.RejectedAt,
		row.RejectionReason, row.ReleasedBy, row.ReleasedAt, row.OverriddenBy, row.OverriddenAt,
		row.OverrideReason, row.UpdatedAt,
	).ExecContext(ctx, repo.exec)
	if err != nil {
		return false, errors.Wrap(err, "updating grade")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "updating grade")
	}
	if n > 0 {
		return true, nil
	}
	// tell a lost race from a missing grade
	if _, err := repo.GetGrade(ctx, g.ID); err != nil {
		return false, err
	}
	return false, nil
}
