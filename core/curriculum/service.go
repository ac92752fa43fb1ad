package curriculum

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
)

type (
	CompetencyRepository interface {
		// QueryCompetencies returns the competencies of a subject, class-specific ones first.
		QueryCompetencies(ctx context.Context, classID, subjectID string) ([]Competency, error)
	}

	SchemeRepository interface {
		// GetScheme returns a *core.NotFoundError when the subject has no scheme.
		GetScheme(ctx context.Context, subjectID string) (Scheme, error)
		SaveScheme(ctx context.Context, scheme Scheme) (Scheme, error)
	}

	ServiceInterface interface {
		Resolve(ctx context.Context, classID string) Resolution
		GetClass(ctx context.Context, classID string) (Class, error)
		Competencies(ctx context.Context, classID, subjectID string) ([]Competency, error)
		RequiredStrands(ctx context.Context, classID, subjectID string) ([]string, error)
		Scheme(ctx context.Context, subjectID string) (Scheme, error)
		SaveScheme(ctx context.Context, scheme Scheme) (Scheme, error)
	}

	Service struct {
		resolver     *Resolver
		classes      ClassRepository
		competencies CompetencyRepository
		schemes      SchemeRepository
		grading      core.GradingConfig
		logger       core.Logger
	}
)

var _ ServiceInterface = (*Service)(nil) // interface compliance check

func NewService(
	conf *core.Config,
	logger core.Logger,
	classes ClassRepository,
	competencies CompetencyRepository,
	schemes SchemeRepository,
) *Service {
	return &Service{
		resolver:     NewResolver(classes, logger),
		classes:      classes,
		competencies: competencies,
		schemes:      schemes,
		grading:      conf.Grading,
		logger:       logger,
	}
}

func (svc *Service) Resolve(ctx context.Context, classID string) Resolution {
	return svc.resolver.Resolve(ctx, classID)
}

func (svc *Service) GetClass(ctx context.Context, classID string) (Class, error) {
	return svc.classes.GetClass(ctx, core.CleanString(classID))
}

// Competencies returns the configured competencies, or the synthesized default one.
func (svc *Service) Competencies(ctx context.Context, classID, subjectID string) ([]Competency, error) {
	comps, err := svc.competencies.QueryCompetencies(ctx, classID, subjectID)
	if err != nil {
		return nil, errors.Wrap(err, "querying competencies")
	}

	configured := make([]Competency, 0, len(comps))
	for _, c := range comps {
		if len(core.UniqueStrings(c.Strands)) > 0 {
			configured = append(configured, c)
		}
	}
	if len(configured) == 0 {
		return []Competency{defaultCompetency(classID, subjectID)}, nil
	}
	return configured, nil
}

// RequiredStrands lists every strand a complete CBC grade must carry, in configured order.
func (svc *Service) RequiredStrands(ctx context.Context, classID, subjectID string) ([]string, error) {
	comps, err := svc.Competencies(ctx, classID, subjectID)
	if err != nil {
		return nil, err
	}
	var strands []string
	for _, c := range comps {
		strands = append(strands, c.Strands...)
	}
	return core.UniqueStrings(strands), nil
}

// Scheme returns the subject's IGCSE scheme, falling back to the configured defaults.
func (svc *Service) Scheme(ctx context.Context, subjectID string) (Scheme, error) {
	scheme, err := svc.schemes.GetScheme(ctx, core.CleanString(subjectID))
	if err != nil {
		if core.IsNotFound(err) {
			return svc.defaultScheme(subjectID), nil
		}
		return Scheme{}, errors.Wrap(err, "getting scheme")
	}
	if len(scheme.Boundaries) == 0 {
		scheme.Boundaries = svc.grading.Boundaries
	}
	if scheme.Weights == (core.Weights{}) {
		scheme.Weights = svc.grading.Weights
	}
	return scheme, nil
}

func (svc *Service) defaultScheme(subjectID string) Scheme {
	return Scheme{
		SubjectID:  subjectID,
		Weights:    svc.grading.Weights,
		Boundaries: append(core.Boundaries{}, svc.grading.Boundaries...),
		IsDefault:  true,
	}
}

// SaveScheme validates and stores a subject scheme.
func (svc *Service) SaveScheme(ctx context.Context, scheme Scheme) (Scheme, error) {
	scheme.SubjectID = core.CleanString(scheme.SubjectID)
	if scheme.SubjectID == "" {
		return Scheme{}, core.NewValidationError(
			errors.New("subject is required"),
			core.FieldError{Field: "subject_id", Error: "this field is required"},
		)
	}
	for i := range scheme.Boundaries {
		scheme.Boundaries[i].Letter = core.CleanString(scheme.Boundaries[i].Letter)
	}
	if err := scheme.Validate(); err != nil {
		return Scheme{}, err
	}
	scheme.IsDefault = false
	scheme.UpdatedAt = core.Now()

	saved, err := svc.schemes.SaveScheme(ctx, scheme)
	if err != nil {
		return Scheme{}, errors.Wrap(err, "saving scheme")
	}
	return saved, nil
}
