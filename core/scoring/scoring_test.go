package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/gradebook/core"
)

func TestStandardLetter(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{100, "A+"}, {90, "A+"}, {89.99, "A"}, {80, "A"}, {79, "B+"}, {70, "B+"},
		{69.5, "B"}, {60, "B"}, {59, "C+"}, {50, "C+"}, {49, "C"}, {40, "C"},
		{39, "D+"}, {30, "D+"}, {29, "D"}, {20, "D"}, {19.99, "E"}, {0, "E"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StandardLetter(tt.score), "StandardLetter(%v)", tt.score)
	}
}

func TestStandardLetter_monotonic(t *testing.T) {
	rank := map[string]int{"A+": 9, "A": 8, "B+": 7, "B": 6, "C+": 5, "C": 4, "D+": 3, "D": 2, "E": 1}
	prev := rank[StandardLetter(100)]
	for s := 100.0; s >= 0; s -= 0.25 {
		letter := StandardLetter(s)
		r, ok := rank[letter]
		if !assert.True(t, ok, "unknown letter %q for %v", letter, s) {
			return
		}
		assert.LessOrEqual(t, r, prev, "letter quality increased at %v", s)
		prev = r
	}
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 75.0, Percentage(75, 100))
	assert.Equal(t, 87.5, Percentage(35, 40))
	assert.Equal(t, 33.33, Percentage(1, 3))
	assert.Zero(t, Percentage(10, 0))
}

func TestIGCSETotal(t *testing.T) {
	tests := []struct {
		name     string
		cw, exam float64
		weights  core.Weights
		want     float64
	}{
		{name: "default weights", cw: 80, exam: 60, weights: core.DefaultWeights, want: 66},
		{name: "even weights", cw: 50, exam: 90, weights: core.Weights{Coursework: 50, Exam: 50}, want: 70},
		{name: "exam only", cw: 100, exam: 45, weights: core.Weights{Coursework: 0, Exam: 100}, want: 45},
		{name: "zeros", weights: core.DefaultWeights, want: 0},
		{name: "fractional", cw: 33, exam: 67, weights: core.Weights{Coursework: 40, Exam: 60}, want: 53.4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IGCSETotal(tt.cw, tt.exam, tt.weights))
		})
	}
}

func TestIGCSELetter(t *testing.T) {
	custom := core.Boundaries{
		{Letter: "A", Threshold: 75},
		{Letter: "B", Threshold: 55},
		{Letter: "C", Threshold: 35},
	}
	unsorted := core.Boundaries{
		{Letter: "C", Threshold: 60},
		{Letter: "A*", Threshold: 90},
		{Letter: "B", Threshold: 70},
	}
	tests := []struct {
		name   string
		pct    float64
		bounds core.Boundaries
		want   string
	}{
		{name: "default C", pct: 66, want: "C"},
		{name: "default A*", pct: 90, want: "A*"},
		{name: "default G", pct: 20, want: "G"},
		{name: "default U", pct: 19.99, want: "U"},
		{name: "default U at zero", pct: 0, want: "U"},
		{name: "custom A", pct: 75, bounds: custom, want: "A"},
		{name: "custom below all", pct: 10, bounds: custom, want: "U"},
		{name: "unsorted scanned descending", pct: 95, bounds: unsorted, want: "A*"},
		{name: "unsorted middle", pct: 65, bounds: unsorted, want: "C"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IGCSELetter(tt.pct, tt.bounds))
		})
	}
}

func TestIGCSE_totalAndLetter(t *testing.T) {
	total := IGCSETotal(80, 60, core.Weights{Coursework: 30, Exam: 70})
	assert.Equal(t, 66.0, total)
	assert.Equal(t, "C", IGCSELetter(total, core.DefaultBoundaries))
}

func TestCBCAggregate(t *testing.T) {
	tests := []struct {
		name   string
		levels []Level
		want   Level
	}{
		{name: "empty", want: LevelEM},
		{name: "PR and EX", levels: []Level{LevelPR, LevelEX}, want: LevelEX},
		{name: "all EM", levels: []Level{LevelEM, LevelEM}, want: LevelEM},
		{name: "AP boundary", levels: []Level{LevelEM, LevelAP}, want: LevelAP},
		{name: "PR boundary", levels: []Level{LevelAP, LevelPR}, want: LevelPR},
		{name: "below AP", levels: []Level{LevelEM, LevelEM, LevelAP}, want: LevelEM},
		{name: "mixed", levels: []Level{LevelEX, LevelPR, LevelAP, LevelEM}, want: LevelPR},
		{name: "invalid ignored", levels: []Level{"ZZ", LevelEX}, want: LevelEX},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CBCAggregate(tt.levels))
		})
	}
}

func TestCBCAggregate_orderIndependent(t *testing.T) {
	levels := []Level{LevelEX, LevelAP, LevelPR, LevelEM, LevelPR}
	want := CBCAggregate(levels)
	for i := range levels {
		rotated := append(append([]Level{}, levels[i:]...), levels[:i]...)
		assert.Equal(t, want, CBCAggregate(rotated))
	}
	reversed := make([]Level, len(levels))
	for i, l := range levels {
		reversed[len(levels)-1-i] = l
	}
	assert.Equal(t, want, CBCAggregate(reversed))
}

func TestCBCAggregateStrands(t *testing.T) {
	got := CBCAggregateStrands(map[string]Level{"S1": LevelPR, "S2": LevelEX})
	assert.Equal(t, LevelEX, got)
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel(" pr ")
	assert.NoError(t, err)
	assert.Equal(t, LevelPR, l)

	_, err = ParseLevel("XX")
	assert.Error(t, err)
}
