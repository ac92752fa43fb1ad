package grade

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/gradebook/core"
)

// DraftInput is what a teacher enters for one student/subject.
// Only the fields of the class's curriculum may be set.
type DraftInput struct {
	SchoolID  string `json:"school_id" validate:"required,notblank"`
	StudentID string `json:"student_id" validate:"required,notblank"`
	SubjectID string `json:"subject_id" validate:"required,notblank"`
	ClassID   string `json:"class_id" validate:"required,notblank"`
	Term      string `json:"term" validate:"required,notblank"`
	ExamType  string `json:"exam_type" validate:"required,notblank"`
	Comments  string `json:"comments"`

	// standard
	Score    *float64 `json:"score" validate:"omitempty,gte=0"`
	MaxScore *float64 `json:"max_score" validate:"omitempty,gt=0"`
	Absent   bool     `json:"absent"`

	// cbc
	StrandScores   map[string]string `json:"strand_scores" validate:"omitempty,dive,keys,notblank,endkeys,omitempty,perflevel"`
	TeacherRemarks string            `json:"teacher_remarks"`

	// igcse
	CourseworkScore  *float64 `json:"coursework_score" validate:"omitempty,gte=0,lte=100"`
	ExamScore        *float64 `json:"exam_score" validate:"omitempty,gte=0,lte=100"`
	CourseworkWeight *float64 `json:"coursework_weight" validate:"omitempty,gte=0,lte=100"`
	ExamWeight       *float64 `json:"exam_weight" validate:"omitempty,gte=0,lte=100"`
}

func (in *DraftInput) clean() {
	in.SchoolID = core.CleanString(in.SchoolID)
	in.StudentID = core.CleanString(in.StudentID)
	in.SubjectID = core.CleanString(in.SubjectID)
	in.ClassID = core.CleanString(in.ClassID)
	in.Term = core.CleanString(in.Term)
	in.ExamType = core.CleanString(in.ExamType)
	in.Comments = core.CleanString(in.Comments)
	in.TeacherRemarks = core.CleanString(in.TeacherRemarks)
}

func (in *DraftInput) Validate(validate *validator.Validate) error {
	in.clean()
	return validate.Struct(in)
}

func (in DraftInput) hasStandard() bool {
	return in.Score != nil || in.MaxScore != nil || in.Absent
}

func (in DraftInput) hasCBC() bool {
	return len(in.StrandScores) > 0 || in.TeacherRemarks != ""
}

func (in DraftInput) hasIGCSE() bool {
	return in.CourseworkScore != nil || in.ExamScore != nil || in.CourseworkWeight != nil || in.ExamWeight != nil
}

// OverrideInput carries the principal's replacement values. Reason is mandatory.
type OverrideInput struct {
	// standard
	Score *float64 `json:"score" validate:"omitempty,gte=0"`

	// cbc
	StrandScores     map[string]string `json:"strand_scores" validate:"omitempty,dive,keys,notblank,endkeys,perflevel"`
	PerformanceLevel string            `json:"performance_level" validate:"omitempty,perflevel"`

	// igcse
	CourseworkScore *float64 `json:"coursework_score" validate:"omitempty,gte=0,lte=100"`
	ExamScore       *float64 `json:"exam_score" validate:"omitempty,gte=0,lte=100"`

	Reason string `json:"reason" validate:"required,notblank"`
}

func (in *OverrideInput) Validate(validate *validator.Validate) error {
	in.Reason = core.CleanString(in.Reason)
	return validate.Struct(in)
}

// BulkInput selects the grades of a bulk action.
type BulkInput struct {
	IDs    []string `json:"ids" validate:"required,min=1,dive,required,notblank"`
	Reason string   `json:"reason"`
}

func (in *BulkInput) Validate(validate *validator.Validate) error {
	in.IDs = core.UniqueStrings(in.IDs)
	in.Reason = core.CleanString(in.Reason)
	return validate.Struct(in)
}
