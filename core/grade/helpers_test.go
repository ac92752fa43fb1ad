package grade_test

import (
	"context"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/actor"
	"github.com/trezcool/gradebook/core/audit"
	"github.com/trezcool/gradebook/core/batch"
	"github.com/trezcool/gradebook/core/curriculum"
	"github.com/trezcool/gradebook/core/grade"
	inmemdb "github.com/trezcool/gradebook/storage/database/inmem"
	"github.com/trezcool/gradebook/tests"
)

var (
	teacher   = actor.New("t1", "teacher")
	teacher2  = actor.New("t2", "teacher")
	admin     = actor.New("a1", "admin")
	principal = actor.New("p1", "principal")
	owner     = actor.New("o1", "owner")
)

type recordingNotifier struct {
	mu       sync.Mutex
	outcomes []grade.Outcome
}

func (n *recordingNotifier) Notify(_ context.Context, o grade.Outcome) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.outcomes = append(n.outcomes, o)
}

// staleRepo loses every conditional update, as if another writer got there first.
type staleRepo struct {
	grade.Repository
}

func (staleRepo) UpdateGradeIf(context.Context, grade.Grade, grade.Status) (bool, error) {
	return false, nil
}

type env struct {
	db        *inmemdb.DB
	logger    *testutil.Logger
	notifier  *recordingNotifier
	repo      grade.Repository
	curricula *curriculum.Service
	audits    *audit.Service
	batches   *batch.Service
	svc       *grade.Service
}

func newEnv(conf *core.Config, wrap ...func(grade.Repository) grade.Repository) *env {
	ctx := context.Background()
	e := &env{
		db:       inmemdb.Open(),
		logger:   testutil.NewLogger(),
		notifier: &recordingNotifier{},
	}

	classes := inmemdb.NewClassRepository(e.db)
	for _, c := range []curriculum.Class{
		{ID: "c-std", SchoolID: "s1", Name: "Form 1 East", CurriculumType: "standard", StudentCount: 3},
		{ID: "c-cbc", SchoolID: "s1", Name: "Grade 4 Blue", CurriculumType: "cbc", StudentCount: 2},
		{ID: "c-igcse", SchoolID: "s1", Name: "Year 10", Curriculum: "IGCSE", StudentCount: 2},
	} {
		_, _ = classes.SaveClass(ctx, c)
	}
	competencies := inmemdb.NewCompetencyRepository(e.db)
	_, _ = competencies.SaveCompetency(ctx, curriculum.Competency{
		SchoolID:  "s1",
		SubjectID: "sci",
		Name:      "Scientific Inquiry",
		Strands:   []string{"Observation", "Reasoning"},
	})

	e.repo = inmemdb.NewGradeRepository(e.db)
	for _, w := range wrap {
		e.repo = w(e.repo)
	}
	e.curricula = curriculum.NewService(conf, e.logger, classes, competencies, inmemdb.NewSchemeRepository(e.db))
	e.audits = audit.NewService(conf, inmemdb.NewAuditRepository(e.db), e.logger)
	e.batches = batch.NewService(inmemdb.NewBatchRepository(e.db), e.repo, e.curricula, e.logger)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	grade.InitValidators(validate, translator)

	e.svc = grade.NewService(grade.Deps{
		Config:     conf,
		Logger:     e.logger,
		Repo:       e.repo,
		Curricula:  e.curricula,
		Audit:      e.audits,
		Batches:    e.batches,
		Notifier:   e.notifier,
		Validate:   validate,
		Translator: translator,
	})
	return e
}

func f(v float64) *float64 { return &v }

func stdDraft(student, subject string, score float64) grade.DraftInput {
	return grade.DraftInput{
		SchoolID:  "s1",
		StudentID: student,
		SubjectID: subject,
		ClassID:   "c-std",
		Term:      "2026-T1",
		ExamType:  "end_term",
		Score:     f(score),
	}
}

func cbcDraft(student, subject string, strands map[string]string) grade.DraftInput {
	return grade.DraftInput{
		SchoolID:     "s1",
		StudentID:    student,
		SubjectID:    subject,
		ClassID:      "c-cbc",
		Term:         "2026-T1",
		ExamType:     "end_term",
		StrandScores: strands,
	}
}

// mustDraft saves a draft as a and returns the grade, advanced through the given actions by the principal.
func (e *env) mustDraft(a actor.Actor, in grade.DraftInput, then ...grade.Action) grade.Grade {
	ctx := context.Background()
	res, err := e.svc.SaveDraft(ctx, a, in)
	if err != nil {
		panic(err)
	}
	g := res.Grade
	for _, act := range then {
		switch act {
		case grade.ActionSubmit:
			g, err = e.svc.Submit(ctx, a, g.ID)
		case grade.ActionApprove:
			g, err = e.svc.Approve(ctx, principal, g.ID)
		case grade.ActionReject:
			g, err = e.svc.Reject(ctx, principal, g.ID, "recheck the marks")
		case grade.ActionRelease:
			g, err = e.svc.Release(ctx, principal, g.ID)
		}
		if err != nil {
			panic(err)
		}
	}
	return g
}

func (e *env) auditEntries() []audit.Entry {
	entries, err := e.audits.Query(context.Background(), audit.QueryFilter{})
	if err != nil {
		panic(err)
	}
	return entries
}
