package boiledrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/types"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/curriculum"
)

type classRow struct {
	ID             string      `boil:"id"`
	SchoolID       string      `boil:"school_id"`
	Name           string      `boil:"name"`
	CurriculumType null.String `boil:"curriculum_type"`
	Curriculum     null.String `boil:"curriculum"`
	StudentCount   int         `boil:"student_count"`
}

type classRepository struct {
	exec core.DBExecutor
}

var _ curriculum.ClassRepository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(exec core.DBExecutor) *classRepository {
	return &classRepository{exec: exec}
}

func (repo classRepository) GetClass(ctx context.Context, id string) (curriculum.Class, error) {
	var row classRow
	q := "SELECT id, school_id, name, curriculum_type, curriculum, student_count FROM classes WHERE id = $1"
	if err := queries.Raw(q, id).Bind(ctx, repo.exec, &row); err != nil {
		return curriculum.Class{}, trapNoRowsErr(err, "class", id, "getting class")
	}
	return curriculum.Class{
		ID:             row.ID,
		SchoolID:       row.SchoolID,
		Name:           row.Name,
		CurriculumType: row.CurriculumType.String,
		Curriculum:     row.Curriculum.String,
		StudentCount:   row.StudentCount,
	}, nil
}

func (repo classRepository) SaveClass(ctx context.Context, c curriculum.Class) (curriculum.Class, error) {
	q := `INSERT INTO classes (id, school_id, name, curriculum_type, curriculum, student_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			school_id = EXCLUDED.school_id, name = EXCLUDED.name, curriculum_type = EXCLUDED.curriculum_type,
			curriculum = EXCLUDED.curriculum, student_count = EXCLUDED.student_count`
	_, err := queries.Raw(q,
		c.ID, c.SchoolID, c.Name, nullString(c.CurriculumType), nullString(c.Curriculum), c.StudentCount,
	).ExecContext(ctx, repo.exec)
	if err != nil {
		return curriculum.Class{}, errors.Wrap(err, "saving class")
	}
	return c, nil
}

type competencyRow struct {
	ID              string            `boil:"id"`
	SchoolID        string            `boil:"school_id"`
	SubjectID       string            `boil:"subject_id"`
	ClassID         null.String       `boil:"class_id"`
	Name            string            `boil:"name"`
	Strands         types.StringArray `boil:"strands"`
	AssessmentTypes types.StringArray `boil:"assessment_types"`
	IsDefault       bool              `boil:"is_default"`
}

type competencyRepository struct {
	exec core.DBExecutor
}

var _ curriculum.CompetencyRepository = (*competencyRepository)(nil) // interface compliance check

func NewCompetencyRepository(exec core.DBExecutor) *competencyRepository {
	return &competencyRepository{exec: exec}
}

func (repo competencyRepository) QueryCompetencies(ctx context.Context, classID, subjectID string) ([]curriculum.Competency, error) {
	var rows []competencyRow
	q := `SELECT id, school_id, subject_id, class_id, name, strands, assessment_types, is_default
		FROM competencies
		WHERE subject_id = $1 AND (class_id = $2 OR class_id IS NULL)
		ORDER BY class_id NULLS LAST, name`
	if err := queries.Raw(q, subjectID, classID).Bind(ctx, repo.exec, &rows); err != nil {
		return nil, errors.Wrap(err, "querying competencies")
	}

	comps := make([]curriculum.Competency, 0, len(rows))
	for _, row := range rows {
		comps = append(comps, curriculum.Competency{
			ID:              row.ID,
			SchoolID:        row.SchoolID,
			SubjectID:       row.SubjectID,
			ClassID:         row.ClassID.String,
			Name:            row.Name,
			Strands:         []string(row.Strands),
			AssessmentTypes: []string(row.AssessmentTypes),
			IsDefault:       row.IsDefault,
		})
	}
	return comps, nil
}

// SaveCompetency inserts or replaces a competency; used to seed CBC subjects.
func (repo competencyRepository) SaveCompetency(ctx context.Context, c curriculum.Competency) (curriculum.Competency, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	q := `INSERT INTO competencies (id, school_id, subject_id, class_id, name, strands, assessment_types, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			school_id = EXCLUDED.school_id, subject_id = EXCLUDED.subject_id, class_id = EXCLUDED.class_id,
			name = EXCLUDED.name, strands = EXCLUDED.strands, assessment_types = EXCLUDED.assessment_types,
			is_default = EXCLUDED.is_default`
	_, err := queries.Raw(q,
		c.ID, c.SchoolID, c.SubjectID, nullString(c.ClassID), c.Name,
		types.StringArray(c.Strands), types.StringArray(c.AssessmentTypes), c.IsDefault,
	).ExecContext(ctx, repo.exec)
	if err != nil {
		return curriculum.Competency{}, errors.Wrap(err, "saving competency")
	}
	return c, nil
}

type schemeRow struct {
	SubjectID        string     `boil:"subject_id"`
	SchoolID         string     `boil:"school_id"`
	CourseworkWeight float64    `boil:"coursework_weight"`
	ExamWeight       float64    `boil:"exam_weight"`
	Boundaries       types.JSON `boil:"boundaries"`
	UpdatedAt        time.Time  `boil:"updated_at"`
}

type schemeRepository struct {
	exec core.DBExecutor
}

var _ curriculum.SchemeRepository = (*schemeRepository)(nil) // interface compliance check

func NewSchemeRepository(exec core.DBExecutor) *schemeRepository {
	return &schemeRepository{exec: exec}
}

func (repo schemeRepository) GetScheme(ctx context.Context, subjectID string) (curriculum.Scheme, error) {
	var row schemeRow
	q := `SELECT subject_id, school_id, coursework_weight, exam_weight, boundaries, updated_at
		FROM grading_schemes WHERE subject_id = $1`
	if err := queries.Raw(q, subjectID).Bind(ctx, repo.exec, &row); err != nil {
		return curriculum.Scheme{}, trapNoRowsErr(err, "scheme", subjectID, "getting scheme")
	}

	scheme := curriculum.Scheme{
		SubjectID: row.SubjectID,
		SchoolID:  row.SchoolID,
		Weights:   core.Weights{Coursework: row.CourseworkWeight, Exam: row.ExamWeight},
		UpdatedAt: row.UpdatedAt,
	}
	if err := row.Boundaries.Unmarshal(&scheme.Boundaries); err != nil {
		return curriculum.Scheme{}, errors.Wrap(err, "decoding boundaries")
	}
	return scheme, nil
}

func (repo schemeRepository) SaveScheme(ctx context.Context, s curriculum.Scheme) (curriculum.Scheme, error) {
	boundaries, err := json.Marshal(s.Boundaries)
	if err != nil {
		return curriculum.Scheme{}, errors.Wrap(err, "encoding boundaries")
	}
	q := `INSERT INTO grading_schemes (subject_id, school_id, coursework_weight, exam_weight, boundaries, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (subject_id) DO UPDATE SET
			school_id = EXCLUDED.school_id, coursework_weight = EXCLUDED.coursework_weight,
			exam_weight = EXCLUDED.exam_weight, boundaries = EXCLUDED.boundaries, updated_at = EXCLUDED.updated_at`
	_, err = queries.Raw(q,
		s.SubjectID, s.SchoolID, s.Weights.Coursework, s.Weights.Exam, types.JSON(boundaries), s.UpdatedAt.UTC(),
	).ExecContext(ctx, repo.exec)
	if err != nil {
		return curriculum.Scheme{}, errors.Wrap(err, "saving scheme")
	}
	return s, nil
}
