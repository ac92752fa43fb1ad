package curriculum

import (
	"time"

	"github.com/trezcool/gradebook/core"
)

// Type is one of the supported curricula.
type Type string

const (
	Standard Type = "standard"
	CBC      Type = "cbc"
	IGCSE    Type = "igcse"
)

var Types = []Type{Standard, CBC, IGCSE}

// ParseType normalizes case and whitespace and reports whether s names a known curriculum.
func ParseType(s string) (Type, bool) {
	t := Type(core.CleanString(s, true /* lower */))
	switch t {
	case Standard, CBC, IGCSE:
		return t, true
	}
	return "", false
}

func (t Type) String() string { return string(t) }

// Class is the read-only projection of a class the engine needs.
// The curriculum may be stored under either CurriculumType or the older Curriculum field.
type Class struct {
	ID             string `json:"id"`
	SchoolID       string `json:"school_id"`
	Name           string `json:"name"`
	CurriculumType string `json:"curriculum_type"`
	Curriculum     string `json:"curriculum"`
	StudentCount   int    `json:"student_count"`
}

// RawCurriculum returns the first non-blank curriculum value of the class.
func (c Class) RawCurriculum() string {
	if v := core.CleanString(c.CurriculumType); v != "" {
		return v
	}
	return core.CleanString(c.Curriculum)
}

// Resolution is the outcome of resolving a class's curriculum. Type is always usable.
type Resolution struct {
	ClassID string `json:"class_id"`
	Type    Type   `json:"curriculum_type"`
	Warning string `json:"warning,omitempty"`
}

func (r Resolution) HasWarning() bool { return r.Warning != "" }

// DefaultStrands are used when no competency is configured for a CBC subject.
var DefaultStrands = []string{"Communication", "Problem Solving", "Application", "Understanding"}

const defaultCompetencyName = "General Competency"

// Competency groups the strands a CBC subject is assessed on.
type Competency struct {
	ID              string   `json:"id"`
	SchoolID        string   `json:"school_id"`
	SubjectID       string   `json:"subject_id"`
	ClassID         string   `json:"class_id"`
	Name            string   `json:"name"`
	Strands         []string `json:"strands"`
	AssessmentTypes []string `json:"assessment_types"`
	IsDefault       bool     `json:"is_default"`
}

func defaultCompetency(classID, subjectID string) Competency {
	return Competency{
		SubjectID: subjectID,
		ClassID:   classID,
		Name:      defaultCompetencyName,
		Strands:   append([]string{}, DefaultStrands...),
		IsDefault: true,
	}
}

// Scheme is the IGCSE weighting and boundary table of a subject.
type Scheme struct {
	SchoolID   string          `json:"school_id"`
	SubjectID  string          `json:"subject_id"`
	Weights    core.Weights    `json:"weights"`
	Boundaries core.Boundaries `json:"boundaries"`
	IsDefault  bool            `json:"is_default"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Validate checks that weights sum to 100 and boundaries strictly decrease.
func (s Scheme) Validate() error {
	if err := s.Weights.Validate(); err != nil {
		return err
	}
	return s.Boundaries.Validate()
}
