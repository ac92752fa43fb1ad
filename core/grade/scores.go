package grade

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/curriculum"
	"github.com/trezcool/gradebook/core/scoring"
)

// Scores is the curriculum-specific part of a grade.
// Teacher-entered values and principal overrides are kept in separate fields;
// the Effective* accessors give overrides precedence.
type Scores interface {
	Curriculum() curriculum.Type

	compute(r Rules)
	missing(r Rules) []string
	applyOverride(o OverrideInput, r Rules) error
	clone() Scores
}

var (
	_ Scores = (*StandardScores)(nil)
	_ Scores = (*CBCScores)(nil)
	_ Scores = (*IGCSEScores)(nil)
)

func floatPtr(f float64) *float64 { return &f }

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	return floatPtr(*f)
}

func firstFloat(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

// Standard

type StandardScores struct {
	Score       *float64 `json:"score"`
	MaxScore    float64  `json:"max_score"`
	Absent      bool     `json:"absent,omitempty"`
	Percentage  *float64 `json:"percentage"`
	LetterGrade string   `json:"letter_grade,omitempty"`

	OverriddenScore       *float64 `json:"overridden_score,omitempty"`
	OverriddenPercentage  *float64 `json:"overridden_percentage,omitempty"`
	OverriddenLetterGrade string   `json:"overridden_letter_grade,omitempty"`
}

func (s *StandardScores) Curriculum() curriculum.Type { return curriculum.Standard }

func (s *StandardScores) EffectiveScore() *float64 {
	return firstFloat(s.OverriddenScore, s.Score)
}

func (s *StandardScores) EffectivePercentage() *float64 {
	return firstFloat(s.OverriddenPercentage, s.Percentage)
}

func (s *StandardScores) EffectiveLetterGrade() string {
	if s.OverriddenLetterGrade != "" {
		return s.OverriddenLetterGrade
	}
	return s.LetterGrade
}

func (s *StandardScores) compute(r Rules) {
	if s.MaxScore <= 0 {
		s.MaxScore = r.MaxScore
	}
	s.Percentage, s.LetterGrade = s.derive(s.Score)
	s.OverriddenPercentage, s.OverriddenLetterGrade = s.derive(s.OverriddenScore)
}

func (s *StandardScores) derive(score *float64) (*float64, string) {
	if score == nil {
		return nil, ""
	}
	pct := scoring.Percentage(*score, s.MaxScore)
	return floatPtr(pct), scoring.StandardLetter(pct)
}

func (s *StandardScores) missing(Rules) []string {
	if s.Absent || s.EffectiveScore() != nil {
		return nil
	}
	return []string{"score"}
}

func (s *StandardScores) applyOverride(o OverrideInput, r Rules) error {
	if o.Score == nil {
		return core.NewValidationError(
			errors.New("an overriding score is required"),
			core.FieldError{Field: "score", Error: "this field is required"},
		)
	}
	if s.MaxScore <= 0 {
		s.MaxScore = r.MaxScore
	}
	if err := checkRange("score", *o.Score, s.MaxScore); err != nil {
		return err
	}
	s.OverriddenScore = floatPtr(*o.Score)
	return nil
}

func (s *StandardScores) clone() Scores {
	c := *s
	c.Score = copyFloat(s.Score)
	c.Percentage = copyFloat(s.Percentage)
	c.OverriddenScore = copyFloat(s.OverriddenScore)
	c.OverriddenPercentage = copyFloat(s.OverriddenPercentage)
	return &c
}

// CBC

type CBCScores struct {
	StrandScores     map[string]scoring.Level `json:"strand_scores"`
	PerformanceLevel scoring.Level            `json:"performance_level,omitempty"`
	TeacherRemarks   string                   `json:"teacher_remarks,omitempty"`

	OverriddenStrandScores     map[string]scoring.Level `json:"overridden_strand_scores,omitempty"`
	OverriddenPerformanceLevel scoring.Level            `json:"overridden_performance_level,omitempty"`
}

func (s *CBCScores) Curriculum() curriculum.Type { return curriculum.CBC }

// EffectiveStrandScores merges overridden strands over the teacher-entered ones.
func (s *CBCScores) EffectiveStrandScores() map[string]scoring.Level {
	eff := make(map[string]scoring.Level, len(s.StrandScores)+len(s.OverriddenStrandScores))
	for k, v := range s.StrandScores {
		eff[k] = v
	}
	for k, v := range s.OverriddenStrandScores {
		eff[k] = v
	}
	return eff
}

func (s *CBCScores) EffectivePerformanceLevel() scoring.Level {
	if s.OverriddenPerformanceLevel != "" {
		return s.OverriddenPerformanceLevel
	}
	return s.PerformanceLevel
}

func (s *CBCScores) compute(Rules) {
	s.PerformanceLevel = scoring.CBCAggregateStrands(s.StrandScores)
	if len(s.OverriddenStrandScores) > 0 {
		s.OverriddenPerformanceLevel = scoring.CBCAggregateStrands(s.EffectiveStrandScores())
	}
}

// missing is judged against the full required strand set, not against what is present.
func (s *CBCScores) missing(r Rules) []string {
	required := r.RequiredStrands
	if len(required) == 0 {
		required = curriculum.DefaultStrands
	}
	eff := s.EffectiveStrandScores()
	var miss []string
	for _, strand := range required {
		if _, ok := eff[strand]; !ok {
			miss = append(miss, "strand_scores."+strand)
		}
	}
	return miss
}

func (s *CBCScores) applyOverride(o OverrideInput, r Rules) error {
	hasStrands := len(o.StrandScores) > 0
	hasLevel := core.CleanString(o.PerformanceLevel) != ""
	switch {
	case hasStrands && hasLevel:
		return core.NewValidationError(
			errors.New("override either strand scores or the performance level, not both"),
			core.FieldError{Field: "performance_level", Error: "cannot be set together with strand_scores"},
		)
	case hasStrands:
		levels, err := parseStrandScores(o.StrandScores, r.RequiredStrands)
		if err != nil {
			return err
		}
		s.OverriddenStrandScores = levels
		return nil
	case hasLevel:
		l, err := scoring.ParseLevel(o.PerformanceLevel)
		if err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "performance_level", Error: err.Error()})
		}
		s.OverriddenStrandScores = nil
		s.OverriddenPerformanceLevel = l
		return nil
	default:
		return core.NewValidationError(
			errors.New("overriding strand scores or performance level are required"),
			core.FieldError{Field: "strand_scores", Error: "this field is required"},
		)
	}
}

func (s *CBCScores) clone() Scores {
	c := *s
	c.StrandScores = copyLevels(s.StrandScores)
	c.OverriddenStrandScores = copyLevels(s.OverriddenStrandScores)
	return &c
}

func copyLevels(m map[string]scoring.Level) map[string]scoring.Level {
	if m == nil {
		return nil
	}
	c := make(map[string]scoring.Level, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// parseStrandScores normalizes a strand -> level input. When required is set, unknown strands are rejected.
func parseStrandScores(in map[string]string, required []string) (map[string]scoring.Level, error) {
	known := make(map[string]bool, len(required))
	for _, s := range required {
		known[s] = true
	}

	names := make([]string, 0, len(in))
	for name := range in {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]scoring.Level, len(in))
	var flds []core.FieldError
	for _, name := range names {
		strand := core.CleanString(name)
		raw := core.CleanString(in[name])
		if raw == "" {
			continue
		}
		if len(known) > 0 && !known[strand] {
			flds = append(flds, core.FieldError{Field: "strand_scores." + strand, Error: "unknown strand"})
			continue
		}
		l, err := scoring.ParseLevel(raw)
		if err != nil {
			flds = append(flds, core.FieldError{Field: "strand_scores." + strand, Error: err.Error()})
			continue
		}
		out[strand] = l
	}
	if len(flds) > 0 {
		return nil, core.NewValidationError(errors.New("invalid strand scores"), flds...)
	}
	return out, nil
}

// IGCSE

type IGCSEScores struct {
	CourseworkScore  *float64 `json:"coursework_score"`
	ExamScore        *float64 `json:"exam_score"`
	CourseworkWeight float64  `json:"coursework_weight"`
	ExamWeight       float64  `json:"exam_weight"`
	TotalScore       *float64 `json:"total_score"`
	Percentage       *float64 `json:"percentage"`
	LetterGrade      string   `json:"letter_grade,omitempty"`

	OverriddenCourseworkScore *float64 `json:"overridden_coursework_score,omitempty"`
	OverriddenExamScore       *float64 `json:"overridden_exam_score,omitempty"`
	OverriddenTotalScore      *float64 `json:"overridden_total_score,omitempty"`
	OverriddenPercentage      *float64 `json:"overridden_percentage,omitempty"`
	OverriddenLetterGrade     string   `json:"overridden_letter_grade,omitempty"`
}

func (s *IGCSEScores) Curriculum() curriculum.Type { return curriculum.IGCSE }

func (s *IGCSEScores) Weights() core.Weights {
	return core.Weights{Coursework: s.CourseworkWeight, Exam: s.ExamWeight}
}

func (s *IGCSEScores) EffectiveCourseworkScore() *float64 {
	return firstFloat(s.OverriddenCourseworkScore, s.CourseworkScore)
}

func (s *IGCSEScores) EffectiveExamScore() *float64 {
	return firstFloat(s.OverriddenExamScore, s.ExamScore)
}

func (s *IGCSEScores) EffectiveTotalScore() *float64 {
	return firstFloat(s.OverriddenTotalScore, s.TotalScore)
}

func (s *IGCSEScores) EffectivePercentage() *float64 {
	return firstFloat(s.OverriddenPercentage, s.Percentage)
}

func (s *IGCSEScores) EffectiveLetterGrade() string {
	if s.OverriddenLetterGrade != "" {
		return s.OverriddenLetterGrade
	}
	return s.LetterGrade
}

func (s *IGCSEScores) isOverridden() bool {
	return s.OverriddenCourseworkScore != nil || s.OverriddenExamScore != nil
}

func (s *IGCSEScores) compute(r Rules) {
	if s.Weights() == (core.Weights{}) {
		w := r.Scheme.Weights
		if w == (core.Weights{}) {
			w = core.DefaultWeights
		}
		s.CourseworkWeight, s.ExamWeight = w.Coursework, w.Exam
	}

	s.TotalScore, s.Percentage, s.LetterGrade = s.derive(s.CourseworkScore, s.ExamScore, r)
	if s.isOverridden() {
		s.OverriddenTotalScore, s.OverriddenPercentage, s.OverriddenLetterGrade =
			s.derive(s.EffectiveCourseworkScore(), s.EffectiveExamScore(), r)
	} else {
		s.OverriddenTotalScore, s.OverriddenPercentage, s.OverriddenLetterGrade = nil, nil, ""
	}
}

// derive needs both components; a partial entry has no total and no letter.
func (s *IGCSEScores) derive(cw, exam *float64, r Rules) (*float64, *float64, string) {
	if cw == nil || exam == nil {
		return nil, nil, ""
	}
	total := scoring.IGCSETotal(*cw, *exam, s.Weights())
	return floatPtr(total), floatPtr(total), scoring.IGCSELetter(total, r.Scheme.Boundaries)
}

func (s *IGCSEScores) missing(Rules) []string {
	var miss []string
	if s.EffectiveCourseworkScore() == nil {
		miss = append(miss, "coursework_score")
	}
	if s.EffectiveExamScore() == nil {
		miss = append(miss, "exam_score")
	}
	return miss
}

func (s *IGCSEScores) applyOverride(o OverrideInput, _ Rules) error {
	if o.CourseworkScore == nil && o.ExamScore == nil {
		return core.NewValidationError(
			errors.New("an overriding coursework or exam score is required"),
			core.FieldError{Field: "exam_score", Error: "this field is required"},
		)
	}
	if o.CourseworkScore != nil {
		if err := checkRange("coursework_score", *o.CourseworkScore, 100); err != nil {
			return err
		}
		s.OverriddenCourseworkScore = floatPtr(*o.CourseworkScore)
	}
	if o.ExamScore != nil {
		if err := checkRange("exam_score", *o.ExamScore, 100); err != nil {
			return err
		}
		s.OverriddenExamScore = floatPtr(*o.ExamScore)
	}
	return nil
}

func (s *IGCSEScores) clone() Scores {
	c := *s
	c.CourseworkScore = copyFloat(s.CourseworkScore)
	c.ExamScore = copyFloat(s.ExamScore)
	c.TotalScore = copyFloat(s.TotalScore)
	c.Percentage = copyFloat(s.Percentage)
	c.OverriddenCourseworkScore = copyFloat(s.OverriddenCourseworkScore)
	c.OverriddenExamScore = copyFloat(s.OverriddenExamScore)
	c.OverriddenTotalScore = copyFloat(s.OverriddenTotalScore)
	c.OverriddenPercentage = copyFloat(s.OverriddenPercentage)
	return &c
}

// checkRange rejects values outside [0, max]; nothing is clamped.
func checkRange(field string, v, max float64) error {
	if v < 0 || v > max {
		msg := fmt.Sprintf("must be between 0 and %v", max)
		return core.NewValidationError(errors.Errorf("%s %s", field, msg), core.FieldError{Field: field, Error: msg})
	}
	return nil
}

// newScores returns empty scores for the curriculum.
func newScores(t curriculum.Type) (Scores, error) {
	switch t {
	case curriculum.Standard:
		return &StandardScores{}, nil
	case curriculum.CBC:
		return &CBCScores{}, nil
	case curriculum.IGCSE:
		return &IGCSEScores{}, nil
	}
	return nil, errors.Errorf("unknown curriculum type %q", t)
}
