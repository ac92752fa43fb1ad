package curriculum

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/tests"
)

type fakeClasses struct {
	classes map[string]Class
	err     error
	calls   int
}

func (f *fakeClasses) GetClass(_ context.Context, id string) (Class, error) {
	f.calls++
	if f.err != nil {
		return Class{}, f.err
	}
	if c, ok := f.classes[id]; ok {
		return c, nil
	}
	return Class{}, core.NewNotFoundError("class", id)
}

type fakeCompetencies struct {
	comps []Competency
}

func (f fakeCompetencies) QueryCompetencies(_ context.Context, classID, subjectID string) ([]Competency, error) {
	var out []Competency
	for _, c := range f.comps {
		if c.SubjectID == subjectID && (c.ClassID == "" || c.ClassID == classID) {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeSchemes struct {
	schemes map[string]Scheme
}

func (f *fakeSchemes) GetScheme(_ context.Context, subjectID string) (Scheme, error) {
	if s, ok := f.schemes[subjectID]; ok {
		return s, nil
	}
	return Scheme{}, core.NewNotFoundError("scheme", subjectID)
}

func (f *fakeSchemes) SaveScheme(_ context.Context, s Scheme) (Scheme, error) {
	if f.schemes == nil {
		f.schemes = make(map[string]Scheme)
	}
	f.schemes[s.SubjectID] = s
	return s, nil
}

func TestResolver_Resolve(t *testing.T) {
	classes := &fakeClasses{classes: map[string]Class{
		"c-std":    {ID: "c-std", CurriculumType: "standard"},
		"c-cbc":    {ID: "c-cbc", CurriculumType: " CBC "},
		"c-legacy": {ID: "c-legacy", Curriculum: "IGCSE"},
		"c-both":   {ID: "c-both", CurriculumType: "cbc", Curriculum: "igcse"},
		"c-unset":  {ID: "c-unset"},
		"c-blank":  {ID: "c-blank", CurriculumType: "   "},
		"c-bad":    {ID: "c-bad", CurriculumType: "montessori"},
	}}
	r := NewResolver(classes, testutil.NewLogger())

	tests := []struct {
		name    string
		classID string
		want    Resolution
	}{
		{name: "no class selected", classID: "", want: Resolution{Type: Standard}},
		{name: "standard", classID: "c-std", want: Resolution{ClassID: "c-std", Type: Standard}},
		{name: "normalized case and space", classID: "c-cbc", want: Resolution{ClassID: "c-cbc", Type: CBC}},
		{name: "legacy field", classID: "c-legacy", want: Resolution{ClassID: "c-legacy", Type: IGCSE}},
		{name: "current field wins", classID: "c-both", want: Resolution{ClassID: "c-both", Type: CBC}},
		{name: "unset", classID: "c-unset", want: Resolution{ClassID: "c-unset", Type: Standard, Warning: WarnNoCurriculum}},
		{name: "blank", classID: "c-blank", want: Resolution{ClassID: "c-blank", Type: Standard, Warning: WarnNoCurriculum}},
		{
			name:    "invalid",
			classID: "c-bad",
			want: Resolution{
				ClassID: "c-bad",
				Type:    Standard,
				Warning: "invalid curriculum type: got montessori, expected one of {standard, cbc, igcse}",
			},
		},
		{name: "unknown class", classID: "nope", want: Resolution{ClassID: "nope", Type: Standard, Warning: WarnClassNotFound}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(context.Background(), tt.classID))
		})
	}
}

func TestResolver_Resolve_emptyIDSkipsLookup(t *testing.T) {
	classes := &fakeClasses{}
	r := NewResolver(classes, testutil.NewLogger())
	r.Resolve(context.Background(), "  ")
	assert.Zero(t, classes.calls)
}

func TestResolver_Resolve_storeFailure(t *testing.T) {
	logger := testutil.NewLogger()
	r := NewResolver(&fakeClasses{err: errors.New("connection reset")}, logger)

	got := r.Resolve(context.Background(), "c1")
	assert.Equal(t, Resolution{ClassID: "c1", Type: Standard, Warning: WarnLookupFailed}, got)
	assert.Len(t, logger.Entries("error"), 1)
}

func newTestService(t *testing.T, comps []Competency, schemes map[string]Scheme) *Service {
	return NewService(
		testutil.Config(t),
		testutil.NewLogger(),
		&fakeClasses{classes: map[string]Class{"c1": {ID: "c1", CurriculumType: "cbc", StudentCount: 30}}},
		fakeCompetencies{comps: comps},
		&fakeSchemes{schemes: schemes},
	)
}

func TestService_RequiredStrands(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, []Competency{
		{SubjectID: "math", ClassID: "c1", Name: "Numbers", Strands: []string{"Counting", "Addition"}},
		{SubjectID: "math", Name: "Shapes", Strands: []string{"Geometry", " Addition "}},
		{SubjectID: "eng", Name: "Empty", Strands: []string{" "}},
	}, nil)

	strands, err := svc.RequiredStrands(ctx, "c1", "math")
	require.NoError(t, err)
	assert.Equal(t, []string{"Counting", "Addition", "Geometry"}, strands)

	// a competency without strands does not count as configured
	strands, err = svc.RequiredStrands(ctx, "c1", "eng")
	require.NoError(t, err)
	assert.Equal(t, DefaultStrands, strands)

	comps, err := svc.Competencies(ctx, "c1", "art")
	require.NoError(t, err)
	require.Len(t, comps, 1)
	assert.True(t, comps[0].IsDefault)
	assert.Equal(t, []string{"Communication", "Problem Solving", "Application", "Understanding"}, comps[0].Strands)
}

func TestService_Scheme(t *testing.T) {
	ctx := context.Background()
	custom := Scheme{
		SubjectID:  "bio",
		Weights:    core.Weights{Coursework: 40, Exam: 60},
		Boundaries: core.Boundaries{{Letter: "A", Threshold: 70}, {Letter: "B", Threshold: 50}},
	}
	svc := newTestService(t, nil, map[string]Scheme{"bio": custom, "chem": {SubjectID: "chem"}})

	got, err := svc.Scheme(ctx, "bio")
	require.NoError(t, err)
	assert.Equal(t, custom, got)

	got, err = svc.Scheme(ctx, "phy")
	require.NoError(t, err)
	assert.True(t, got.IsDefault)
	assert.Equal(t, core.DefaultWeights, got.Weights)
	assert.Equal(t, core.DefaultBoundaries, got.Boundaries)

	// partially configured schemes are completed from the defaults
	got, err = svc.Scheme(ctx, "chem")
	require.NoError(t, err)
	assert.Equal(t, core.DefaultWeights, got.Weights)
	assert.Equal(t, core.DefaultBoundaries, got.Boundaries)
}

func TestService_SaveScheme(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil, nil)
	valid := core.Boundaries{{Letter: "A", Threshold: 80}, {Letter: "B", Threshold: 60}, {Letter: "U", Threshold: 0}}

	tests := []struct {
		name    string
		scheme  Scheme
		wantErr error
	}{
		{name: "missing subject", scheme: Scheme{Weights: core.DefaultWeights, Boundaries: valid}},
		{name: "weights do not sum to 100", scheme: Scheme{SubjectID: "x", Weights: core.Weights{Coursework: 40, Exam: 50}, Boundaries: valid}, wantErr: core.ErrWeightsSum},
		{name: "negative weight", scheme: Scheme{SubjectID: "x", Weights: core.Weights{Coursework: -10, Exam: 110}, Boundaries: valid}, wantErr: core.ErrWeightRange},
		{
			name:    "thresholds not decreasing",
			scheme:  Scheme{SubjectID: "x", Weights: core.DefaultWeights, Boundaries: core.Boundaries{{Letter: "A", Threshold: 60}, {Letter: "B", Threshold: 70}}},
			wantErr: core.ErrBoundariesOrder,
		},
		{
			name:    "threshold out of range",
			scheme:  Scheme{SubjectID: "x", Weights: core.DefaultWeights, Boundaries: core.Boundaries{{Letter: "A", Threshold: 120}}},
			wantErr: core.ErrBoundaryRange,
		},
		{
			name:    "duplicate letters",
			scheme:  Scheme{SubjectID: "x", Weights: core.DefaultWeights, Boundaries: core.Boundaries{{Letter: "A", Threshold: 80}, {Letter: "A", Threshold: 70}}},
			wantErr: core.ErrBoundariesDuplicate,
		},
		{name: "empty boundaries", scheme: Scheme{SubjectID: "x", Weights: core.DefaultWeights}, wantErr: core.ErrBoundariesEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SaveScheme(ctx, tt.scheme)
			require.Error(t, err)
			vErr, ok := err.(*core.ValidationError)
			require.True(t, ok, "want *core.ValidationError, got %T", err)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, vErr.Err)
			}
		})
	}

	saved, err := svc.SaveScheme(ctx, Scheme{SubjectID: " geo ", Weights: core.Weights{Coursework: 20, Exam: 80}, Boundaries: valid})
	require.NoError(t, err)
	assert.Equal(t, "geo", saved.SubjectID)
	assert.False(t, saved.UpdatedAt.IsZero())

	got, err := svc.Scheme(ctx, "geo")
	require.NoError(t, err)
	assert.Equal(t, core.Weights{Coursework: 20, Exam: 80}, got.Weights)
}
