package grade

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/actor"
	"github.com/trezcool/gradebook/core/audit"
	"github.com/trezcool/gradebook/core/curriculum"
	"github.com/trezcool/gradebook/core/scoring"
)

var (
	ErrGradeLocked    = errors.New("grade is locked for editing")
	ErrReasonRequired = errors.New("a reason is required")
	ErrIncomplete     = errors.New("grade is incomplete")
	ErrNotStandard    = errors.New("class summaries are only available for standard curriculum sheets")
	ErrSummaryScope   = errors.New("class summaries need a class, a term and an exam type")

	// errStale means the stored status changed between read and conditional write.
	errStale = errors.New("grade status changed concurrently")
)

type (
	Repository interface {
		// UpsertGrade inserts g or replaces the grade with the same
		// (school, student, subject, class, term, exam type, submitter); last write wins.
		UpsertGrade(ctx context.Context, g Grade) (Grade, error)
		// GetGrade returns a *core.NotFoundError when there is no such grade.
		GetGrade(ctx context.Context, id string) (Grade, error)
		// GetGrades returns the grades found among ids; missing ones are left out.
		GetGrades(ctx context.Context, ids []string) ([]Grade, error)
		QueryGrades(ctx context.Context, filter QueryFilter) ([]Grade, error)
		// UpdateGradeIf replaces the stored grade only if its status still equals expected.
		UpdateGradeIf(ctx context.Context, g Grade, expected Status) (bool, error)
	}

	// AuditRecorder is the audit sink. Record must not fail the caller.
	AuditRecorder interface {
		Record(ctx context.Context, entries ...audit.Entry)
	}

	ServiceInterface interface {
		SaveDraft(ctx context.Context, a actor.Actor, in DraftInput) (DraftResult, error)
		Get(ctx context.Context, id string) (Grade, error)
		Query(ctx context.Context, filter QueryFilter) ([]Grade, error)
		ClassSheet(ctx context.Context, filter QueryFilter) (Sheet, error)
		Summaries(ctx context.Context, filter QueryFilter) ([]scoring.StudentSummary, error)

		Submit(ctx context.Context, a actor.Actor, id string) (Grade, error)
		Approve(ctx context.Context, a actor.Actor, id string) (Grade, error)
		Reject(ctx context.Context, a actor.Actor, id, reason string) (Grade, error)
		Release(ctx context.Context, a actor.Actor, id string) (Grade, error)
		Override(ctx context.Context, a actor.Actor, id string, in OverrideInput) (Grade, error)

		BulkSubmit(ctx context.Context, a actor.Actor, in BulkInput) (BulkResult, error)
		BulkApprove(ctx context.Context, a actor.Actor, in BulkInput) (BulkResult, error)
		BulkReject(ctx context.Context, a actor.Actor, in BulkInput) (BulkResult, error)
		BulkRelease(ctx context.Context, a actor.Actor, in BulkInput) (BulkResult, error)
	}

	// Deps are the collaborators of Service. Policy, Batches and Notifier are optional.
	Deps struct {
		Config     *core.Config
		Logger     core.Logger
		Repo       Repository
		Curricula  curriculum.ServiceInterface
		Audit      AuditRecorder
		Batches    BatchTracker
		Notifier   Notifier
		Policy     Policy
		Validate   *validator.Validate
		Translator ut.Translator
	}

	Service struct {
		grading    core.GradingConfig
		logger     core.Logger
		repo       Repository
		curricula  curriculum.ServiceInterface
		audit      AuditRecorder
		batches    BatchTracker
		notifier   Notifier
		policy     Policy
		validate   *validator.Validate
		translator ut.Translator
	}
)

var _ ServiceInterface = (*Service)(nil) // interface compliance check

func NewService(d Deps) *Service {
	svc := &Service{
		grading:    d.Config.Grading,
		logger:     d.Logger,
		repo:       d.Repo,
		curricula:  d.Curricula,
		audit:      d.Audit,
		batches:    d.Batches,
		notifier:   d.Notifier,
		policy:     d.Policy,
		validate:   d.Validate,
		translator: d.Translator,
	}
	if svc.policy == nil {
		svc.policy = RolePolicy{}
	}
	if svc.batches == nil {
		svc.batches = nopTracker{}
	}
	if svc.notifier == nil {
		svc.notifier = nopNotifier{}
	}
	return svc
}

// authorize fails when the actor may not perform the action from any status. No I/O happens here.
func (svc *Service) authorize(a actor.Actor, act Action) error {
	if a.ID == "" || !allowedAnywhere(svc.policy, a, act) {
		return core.NewPermissionError(a.ID, a.Role, string(act))
	}
	return nil
}

func (svc *Service) validationError(err error) error {
	return core.TranslateValidationErrors(err, svc.translator)
}

// rules loads the curriculum configuration a grade is computed against.
func (svc *Service) rules(ctx context.Context, t curriculum.Type, classID, subjectID string) (Rules, error) {
	r := Rules{MaxScore: svc.grading.DefaultMaxScore}
	switch t {
	case curriculum.CBC:
		strands, err := svc.curricula.RequiredStrands(ctx, classID, subjectID)
		if err != nil {
			return Rules{}, errors.Wrap(err, "loading required strands")
		}
		r.RequiredStrands = strands
	case curriculum.IGCSE:
		scheme, err := svc.curricula.Scheme(ctx, subjectID)
		if err != nil {
			return Rules{}, errors.Wrap(err, "loading subject scheme")
		}
		r.Scheme = scheme
	}
	return r, nil
}

// buildScores shapes the input for the curriculum, rejecting fields of other curricula.
func (svc *Service) buildScores(t curriculum.Type, in DraftInput, r Rules) (Scores, error) {
	foreign := func(fields ...string) error {
		flds := make([]core.FieldError, 0, len(fields))
		for _, f := range fields {
			flds = append(flds, core.FieldError{Field: f, Error: fmt.Sprintf("not accepted for %s grades", t)})
		}
		return core.NewValidationError(errors.Errorf("input does not match the %s curriculum", t), flds...)
	}

	switch t {
	case curriculum.Standard:
		if in.hasCBC() || in.hasIGCSE() {
			return nil, foreign("strand_scores", "coursework_score", "exam_score")
		}
		s := &StandardScores{MaxScore: r.MaxScore, Absent: in.Absent}
		if in.MaxScore != nil {
			s.MaxScore = *in.MaxScore
		}
		if in.Score != nil {
			if err := checkRange("score", *in.Score, s.MaxScore); err != nil {
				return nil, err
			}
			s.Score = floatPtr(*in.Score)
		}
		return s, nil

	case curriculum.CBC:
		if in.hasStandard() || in.hasIGCSE() {
			return nil, foreign("score", "coursework_score", "exam_score")
		}
		strands, err := parseStrandScores(in.StrandScores, r.RequiredStrands)
		if err != nil {
			return nil, err
		}
		return &CBCScores{StrandScores: strands, TeacherRemarks: in.TeacherRemarks}, nil

	case curriculum.IGCSE:
		if in.hasStandard() || in.hasCBC() {
			return nil, foreign("score", "strand_scores")
		}
		w := r.Scheme.Weights
		if in.CourseworkWeight != nil && in.ExamWeight != nil {
			w = core.Weights{Coursework: *in.CourseworkWeight, Exam: *in.ExamWeight}
		}
		if err := w.Validate(); err != nil {
			return nil, err
		}
		return &IGCSEScores{
			CourseworkScore:  copyFloat(in.CourseworkScore),
			ExamScore:        copyFloat(in.ExamScore),
			CourseworkWeight: w.Coursework,
			ExamWeight:       w.Exam,
		}, nil
	}
	return newScores(t)
}

// SaveDraft creates or updates the actor's draft for a student/subject.
// Editing a rejected grade moves it back to draft; submitted, approved and released grades are locked.
func (svc *Service) SaveDraft(ctx context.Context, a actor.Actor, in DraftInput) (DraftResult, error) {
	if err := svc.authorize(a, ActionEdit); err != nil {
		return DraftResult{}, err
	}
	if err := in.Validate(svc.validate); err != nil {
		return DraftResult{}, svc.validationError(err)
	}

	res := svc.curricula.Resolve(ctx, in.ClassID)
	if res.HasWarning() {
		svc.logger.Warn(fmt.Sprintf("class %s: %s; grading as %s", in.ClassID, res.Warning, res.Type), a)
	}

	rules, err := svc.rules(ctx, res.Type, in.ClassID, in.SubjectID)
	if err != nil {
		return DraftResult{}, err
	}
	scores, err := svc.buildScores(res.Type, in, rules)
	if err != nil {
		return DraftResult{}, err
	}

	existing, err := svc.repo.QueryGrades(ctx, QueryFilter{
		SchoolID:    in.SchoolID,
		ClassID:     in.ClassID,
		SubjectID:   in.SubjectID,
		StudentID:   in.StudentID,
		Term:        in.Term,
		ExamType:    in.ExamType,
		SubmittedBy: a.ID,
	})
	if err != nil {
		return DraftResult{}, errors.Wrap(err, "looking up existing grade")
	}

	now := core.Now()
	var g Grade
	created := len(existing) == 0
	if created {
		g = Grade{
			SchoolID:    in.SchoolID,
			StudentID:   in.StudentID,
			SubjectID:   in.SubjectID,
			ClassID:     in.ClassID,
			Term:        in.Term,
			ExamType:    in.ExamType,
			Status:      StatusDraft,
			SubmittedBy: a.ID,
			CreatedAt:   now,
		}
	} else {
		g = existing[0].Clone()
		if _, ok := ActionEdit.Target(g.Status); !ok {
			msg := fmt.Sprintf("a %s grade cannot be edited", g.Status)
			return DraftResult{}, core.NewValidationError(
				errors.Wrap(ErrGradeLocked, msg),
				core.FieldError{Field: "status", Error: msg},
			)
		}
		if !svc.policy.CanTransition(a, g.Status, StatusDraft) {
			return DraftResult{}, core.NewPermissionError(a.ID, a.Role, string(ActionEdit))
		}
		// rejection fields stay so the teacher can see what to fix
		g.Status = StatusDraft
		// the scores are teacher-entered again
		g.OverriddenBy, g.OverriddenAt, g.OverrideReason = "", nil, ""
	}

	g.Curriculum = res.Type
	g.Scores = scores
	g.Comments = in.Comments
	g.UpdatedAt = now
	g.evaluate(rules)

	saved, err := svc.repo.UpsertGrade(ctx, g)
	if err != nil {
		return DraftResult{}, errors.Wrap(err, "upserting grade")
	}
	svc.batches.Track(ctx, saved.BatchKey())

	return DraftResult{Grade: saved, Created: created, Warning: res.Warning}, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Grade, error) {
	return svc.repo.GetGrade(ctx, core.CleanString(id))
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Grade, error) {
	return svc.repo.QueryGrades(ctx, filter)
}

func (svc *Service) ClassSheet(ctx context.Context, filter QueryFilter) (Sheet, error) {
	grades, err := svc.repo.QueryGrades(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}
	return NewSheet(grades), nil
}

// Summaries ranks the students of a standard class sheet for one term and exam type.
// Scores are taken as percentages so every subject weighs 100 points.
func (svc *Service) Summaries(ctx context.Context, filter QueryFilter) ([]scoring.StudentSummary, error) {
	var missing []core.FieldError
	for _, fld := range []struct{ name, value string }{
		{"class_id", filter.ClassID},
		{"term", filter.Term},
		{"exam_type", filter.ExamType},
	} {
		if core.CleanString(fld.value) == "" {
			missing = append(missing, core.FieldError{Field: fld.name, Error: "this field is required"})
		}
	}
	if len(missing) > 0 {
		return nil, core.NewValidationError(ErrSummaryScope, missing...)
	}
	res := svc.curricula.Resolve(ctx, filter.ClassID)
	if res.Type != curriculum.Standard {
		return nil, core.NewValidationError(ErrNotStandard, core.FieldError{Field: "class_id", Error: ErrNotStandard.Error()})
	}

	sheet, err := svc.ClassSheet(ctx, filter)
	if err != nil {
		return nil, err
	}
	subjects := sheet.Subjects()
	summaries := make([]scoring.StudentSummary, 0)
	for _, studentID := range sheet.Students() {
		var entries []scoring.SubjectScore
		for _, g := range sheet.StudentGrades(studentID) {
			s, ok := g.Scores.(*StandardScores)
			if !ok {
				continue
			}
			entries = append(entries, scoring.SubjectScore{
				SubjectID: g.SubjectID,
				Score:     s.EffectivePercentage(),
				Absent:    s.Absent,
			})
		}
		summaries = append(summaries, scoring.Aggregate(studentID, subjects, entries))
	}
	return scoring.Rank(summaries), nil
}

// transition

type moveOpts struct {
	reason   string
	override *OverrideInput
}

// move applies an action to one grade and conditionally writes it.
// It returns the audit entry to record, if the action is audited.
func (svc *Service) move(ctx context.Context, a actor.Actor, act Action, g Grade, opts moveOpts) (Grade, *audit.Entry, error) {
	from := g.Status
	to, ok := act.Target(from)
	if !ok {
		return Grade{}, nil, invalidTransitionError(act, from)
	}
	if !svc.policy.CanTransition(a, from, to) {
		return Grade{}, nil, core.NewPermissionError(a.ID, a.Role, string(act))
	}
	if act == ActionSubmit && !a.IsReviewer() && g.SubmittedBy != a.ID {
		return Grade{}, nil, core.NewPermissionError(a.ID, a.Role, "submit another teacher's grade")
	}

	now := core.Now()
	upd := g.Clone()
	switch act {
	case ActionSubmit:
		rules, err := svc.rules(ctx, upd.Curriculum, upd.ClassID, upd.SubjectID)
		if err != nil {
			return Grade{}, nil, err
		}
		upd.evaluate(rules)
		if !upd.Complete {
			return Grade{}, nil, incompleteError(upd.MissingFields)
		}
		upd.SubmittedAt = &now
	case ActionApprove:
		upd.ApprovedBy, upd.ApprovedAt = a.ID, &now
		upd.RejectedBy, upd.RejectedAt, upd.RejectionReason = "", nil, ""
	case ActionReject:
		upd.RejectedBy, upd.RejectedAt, upd.RejectionReason = a.ID, &now, opts.reason
		upd.ApprovedBy, upd.ApprovedAt = "", nil
	case ActionRelease:
		upd.ReleasedBy, upd.ReleasedAt = a.ID, &now
	case ActionOverride:
		if upd.Scores == nil {
			return Grade{}, nil, incompleteError([]string{"scores"})
		}
		rules, err := svc.rules(ctx, upd.Curriculum, upd.ClassID, upd.SubjectID)
		if err != nil {
			return Grade{}, nil, err
		}
		if err := upd.Scores.applyOverride(*opts.override, rules); err != nil {
			return Grade{}, nil, err
		}
		upd.evaluate(rules)
		upd.OverriddenBy, upd.OverriddenAt, upd.OverrideReason = a.ID, &now, opts.override.Reason
		if to == StatusApproved {
			upd.ApprovedBy, upd.ApprovedAt = a.ID, &now
		}
	}
	upd.Status = to
	upd.UpdatedAt = now

	ok, err := svc.repo.UpdateGradeIf(ctx, upd, from)
	if err != nil {
		return Grade{}, nil, errors.Wrap(err, "updating grade")
	}
	if !ok {
		return Grade{}, nil, errStale
	}

	entry := auditEntry(a, act, g, upd, opts)
	return upd, entry, nil
}

func incompleteError(missing []string) error {
	flds := make([]core.FieldError, 0, len(missing))
	for _, m := range missing {
		flds = append(flds, core.FieldError{Field: m, Error: "this field is required"})
	}
	return core.NewValidationError(
		errors.Wrapf(ErrIncomplete, "missing %s", strings.Join(missing, ", ")),
		flds...,
	)
}

func auditEntry(a actor.Actor, act Action, old, upd Grade, opts moveOpts) *audit.Entry {
	var action audit.Action
	switch act {
	case ActionApprove:
		action = audit.ActionApprove
	case ActionReject:
		action = audit.ActionReject
	case ActionRelease:
		action = audit.ActionRelease
	case ActionOverride:
		action = audit.ActionOverride
	default:
		return nil
	}

	newValues := snapshot(upd)
	if act == ActionOverride && old.Status == StatusReleased {
		newValues["released_override"] = true
	}
	reason := opts.reason
	if opts.override != nil {
		reason = opts.override.Reason
	}
	return &audit.Entry{
		GradeID:   upd.ID,
		ActorID:   a.ID,
		ActorRole: a.Role,
		Action:    action,
		OldValues: snapshot(old),
		NewValues: newValues,
		Reason:    reason,
	}
}

// snapshot flattens the audited fields of a grade into JSON-compatible values.
func snapshot(g Grade) audit.Values {
	vals := audit.Values{
		"status":   string(g.Status),
		"complete": g.Complete,
	}
	if g.Comments != "" {
		vals["comments"] = g.Comments
	}
	if g.Scores != nil {
		if raw, err := json.Marshal(g.Scores); err == nil {
			var scores map[string]interface{}
			if err := json.Unmarshal(raw, &scores); err == nil {
				vals["scores"] = scores
			}
		}
	}
	for k, v := range map[string]string{
		"approved_by":      g.ApprovedBy,
		"rejected_by":      g.RejectedBy,
		"rejection_reason": g.RejectionReason,
		"released_by":      g.ReleasedBy,
		"overridden_by":    g.OverriddenBy,
		"override_reason":  g.OverrideReason,
	} {
		if v != "" {
			vals[k] = v
		}
	}
	return vals
}

// one runs a single-grade action: state mismatches and lost races are errors.
func (svc *Service) one(ctx context.Context, a actor.Actor, act Action, id string, opts moveOpts) (Grade, error) {
	g, err := svc.repo.GetGrade(ctx, core.CleanString(id))
	if err != nil {
		return Grade{}, errors.Wrap(err, "getting grade")
	}

	upd, entry, err := svc.move(ctx, a, act, g, opts)
	if err != nil {
		if err == errStale {
			return Grade{}, core.NewConflictError("grade", fmt.Sprintf("%s was modified while trying to %s it", g.ID, act))
		}
		return Grade{}, err
	}

	result := newBulkResult(act, 1)
	result.affected(upd.ID)
	svc.after(ctx, a, act, opts, result, []Grade{upd}, entry)
	return upd, nil
}

// bulk runs an action over many grades. Each grade is committed on its own; grades
// not in a source status of the action are skipped.
func (svc *Service) bulk(ctx context.Context, a actor.Actor, act Action, in BulkInput, opts moveOpts) (BulkResult, error) {
	grades, err := svc.repo.GetGrades(ctx, in.IDs)
	if err != nil {
		return BulkResult{}, errors.Wrap(err, "getting grades")
	}
	byID := make(map[string]Grade, len(grades))
	for _, g := range grades {
		byID[g.ID] = g
	}

	result := newBulkResult(act, len(in.IDs))
	var (
		updated []Grade
		entries []*audit.Entry
	)
	for _, id := range in.IDs {
		g, ok := byID[id]
		if !ok {
			result.skipped(id)
			continue
		}
		if _, ok := act.Target(g.Status); !ok {
			result.skipped(id)
			continue
		}

		upd, entry, err := svc.move(ctx, a, act, g, opts)
		switch {
		case err == errStale:
			result.skipped(id)
		case err != nil:
			result.failed(id, err)
			if !core.IsValidationError(err) && !core.IsPermissionDenied(err) {
				svc.logger.Error(fmt.Sprintf("bulk %s of grade %s: %v", act, id, err), err, a)
			}
		default:
			result.affected(id)
			updated = append(updated, upd)
			entries = append(entries, entry)
		}
	}

	if result.Affected > 0 {
		svc.after(ctx, a, act, opts, result, updated, entries...)
	}
	return result, nil
}

// after records audit entries, refreshes batches and notifies, in that order.
func (svc *Service) after(ctx context.Context, a actor.Actor, act Action, opts moveOpts, result BulkResult, grades []Grade, entries ...*audit.Entry) {
	records := make([]audit.Entry, 0, len(entries))
	for _, e := range entries {
		if e != nil {
			records = append(records, *e)
		}
	}
	if len(records) > 0 {
		svc.audit.Record(ctx, records...)
	}

	seen := make(map[BatchKey]bool)
	keys := make([]BatchKey, 0)
	for _, g := range grades {
		if k := g.BatchKey(); !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	svc.batches.Track(ctx, keys...)

	reason := opts.reason
	if opts.override != nil {
		reason = opts.override.Reason
	}
	svc.notifier.Notify(ctx, Outcome{Action: act, Actor: a, Reason: reason, Result: result, Grades: grades})
}

func requireReason(reason string) (string, error) {
	reason = core.CleanString(reason)
	if reason == "" {
		return "", core.NewValidationError(ErrReasonRequired, core.FieldError{Field: "reason", Error: "this field is required"})
	}
	return reason, nil
}

func (svc *Service) Submit(ctx context.Context, a actor.Actor, id string) (Grade, error) {
	if err := svc.authorize(a, ActionSubmit); err != nil {
		return Grade{}, err
	}
	return svc.one(ctx, a, ActionSubmit, id, moveOpts{})
}

func (svc *Service) Approve(ctx context.Context, a actor.Actor, id string) (Grade, error) {
	if err := svc.authorize(a, ActionApprove); err != nil {
		return Grade{}, err
	}
	return svc.one(ctx, a, ActionApprove, id, moveOpts{})
}

func (svc *Service) Reject(ctx context.Context, a actor.Actor, id, reason string) (Grade, error) {
	if err := svc.authorize(a, ActionReject); err != nil {
		return Grade{}, err
	}
	reason, err := requireReason(reason)
	if err != nil {
		return Grade{}, err
	}
	return svc.one(ctx, a, ActionReject, id, moveOpts{reason: reason})
}

func (svc *Service) Release(ctx context.Context, a actor.Actor, id string) (Grade, error) {
	if err := svc.authorize(a, ActionRelease); err != nil {
		return Grade{}, err
	}
	return svc.one(ctx, a, ActionRelease, id, moveOpts{})
}

// Override replaces the grade's values with the principal's, forcing approval.
// A released grade stays released; the audit entry flags it as a released override.
func (svc *Service) Override(ctx context.Context, a actor.Actor, id string, in OverrideInput) (Grade, error) {
	if err := svc.authorize(a, ActionOverride); err != nil {
		return Grade{}, err
	}
	if err := in.Validate(svc.validate); err != nil {
		return Grade{}, svc.validationError(err)
	}
	return svc.one(ctx, a, ActionOverride, id, moveOpts{override: &in})
}

func (svc *Service) bulkAction(ctx context.Context, a actor.Actor, act Action, in BulkInput, needsReason bool) (BulkResult, error) {
	if err := svc.authorize(a, act); err != nil {
		return BulkResult{}, err
	}
	var opts moveOpts
	if needsReason {
		reason, err := requireReason(in.Reason)
		if err != nil {
			return BulkResult{}, err
		}
		opts.reason = reason
	}
	if err := in.Validate(svc.validate); err != nil {
		return BulkResult{}, svc.validationError(err)
	}
	return svc.bulk(ctx, a, act, in, opts)
}

func (svc *Service) BulkSubmit(ctx context.Context, a actor.Actor, in BulkInput) (BulkResult, error) {
	return svc.bulkAction(ctx, a, ActionSubmit, in, false)
}

func (svc *Service) BulkApprove(ctx context.Context, a actor.Actor, in BulkInput) (BulkResult, error) {
	return svc.bulkAction(ctx, a, ActionApprove, in, false)
}

func (svc *Service) BulkReject(ctx context.Context, a actor.Actor, in BulkInput) (BulkResult, error) {
	return svc.bulkAction(ctx, a, ActionReject, in, true)
}

func (svc *Service) BulkRelease(ctx context.Context, a actor.Actor, in BulkInput) (BulkResult, error) {
	return svc.bulkAction(ctx, a, ActionRelease, in, false)
}
