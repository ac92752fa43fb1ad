package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrWeightsSum          = errors.New("coursework and exam weights must sum to 100")
	ErrWeightRange         = errors.New("weights must be between 0 and 100")
	ErrBoundariesEmpty     = errors.New("grade boundaries are empty")
	ErrBoundaryRange       = errors.New("grade boundary thresholds must be between 0 and 100")
	ErrBoundariesDuplicate = errors.New("grade boundary letters must be unique")
	ErrBoundariesOrder     = errors.New("grade boundary thresholds must strictly decrease from the best letter to the worst")
)

// Weights are the IGCSE coursework/exam percentages.
type Weights struct {
	Coursework float64 `json:"coursework_weight"`
	Exam       float64 `json:"exam_weight"`
}

var DefaultWeights = Weights{Coursework: 30, Exam: 70}

func (w Weights) Validate() error {
	if w.Coursework < 0 || w.Coursework > 100 || w.Exam < 0 || w.Exam > 100 {
		return NewValidationError(ErrWeightRange, FieldError{Field: "weights", Error: ErrWeightRange.Error()})
	}
	if w.Coursework+w.Exam != 100 {
		return NewValidationError(ErrWeightsSum, FieldError{Field: "weights", Error: ErrWeightsSum.Error()})
	}
	return nil
}

// Boundary is the minimum percentage needed to be awarded Letter.
type Boundary struct {
	Letter    string  `json:"letter"`
	Threshold float64 `json:"threshold"`
}

// Boundaries are listed from the best letter to the worst.
type Boundaries []Boundary

// DefaultBoundaries is the IGCSE table used when a subject has none configured.
var DefaultBoundaries = Boundaries{
	{Letter: "A*", Threshold: 90},
	{Letter: "A", Threshold: 80},
	{Letter: "B", Threshold: 70},
	{Letter: "C", Threshold: 60},
	{Letter: "D", Threshold: 50},
	{Letter: "E", Threshold: 40},
	{Letter: "F", Threshold: 30},
	{Letter: "G", Threshold: 20},
	{Letter: "U", Threshold: 0},
}

// Validate checks that every threshold is within [0, 100], letters are unique
// and thresholds strictly decrease in the listed letter order.
func (b Boundaries) Validate() error {
	if len(b) == 0 {
		return NewValidationError(ErrBoundariesEmpty, FieldError{Field: "boundaries", Error: ErrBoundariesEmpty.Error()})
	}
	seen := make(map[string]bool, len(b))
	for i, bd := range b {
		if bd.Threshold < 0 || bd.Threshold > 100 {
			return NewValidationError(ErrBoundaryRange, FieldError{Field: "boundaries", Error: fmt.Sprintf("%s: %v", bd.Letter, ErrBoundaryRange)})
		}
		letter := CleanString(bd.Letter)
		if letter == "" || seen[letter] {
			return NewValidationError(ErrBoundariesDuplicate, FieldError{Field: "boundaries", Error: ErrBoundariesDuplicate.Error()})
		}
		seen[letter] = true
		if i > 0 && bd.Threshold >= b[i-1].Threshold {
			return NewValidationError(ErrBoundariesOrder, FieldError{Field: "boundaries", Error: ErrBoundariesOrder.Error()})
		}
	}
	return nil
}

// Descending returns a copy sorted by threshold, highest first.
func (b Boundaries) Descending() Boundaries {
	sorted := make(Boundaries, len(b))
	copy(sorted, b)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Threshold > sorted[j].Threshold })
	return sorted
}

// String formats the table as "A*=90,A=80,...", the form read by ParseBoundaries.
func (b Boundaries) String() string {
	parts := make([]string, 0, len(b))
	for _, bd := range b {
		parts = append(parts, bd.Letter+"="+strconv.FormatFloat(bd.Threshold, 'f', -1, 64))
	}
	return strings.Join(parts, ",")
}

// ParseBoundaries reads a "LETTER=THRESHOLD,..." list, keeping the given order.
func ParseBoundaries(s string) (Boundaries, error) {
	s = CleanString(s)
	if s == "" {
		return nil, ErrBoundariesEmpty
	}
	var b Boundaries
	for _, part := range strings.Split(s, ",") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, errors.Errorf("invalid boundary %q: expected LETTER=THRESHOLD", part)
		}
		threshold, err := strconv.ParseFloat(CleanString(kv[1]), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid threshold for %q", CleanString(kv[0]))
		}
		b = append(b, Boundary{Letter: CleanString(kv[0]), Threshold: threshold})
	}
	return b, nil
}
