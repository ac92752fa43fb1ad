package echoapi_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/gradebook/core/actor"
	"github.com/trezcool/gradebook/core/audit"
	"github.com/trezcool/gradebook/core/batch"
	"github.com/trezcool/gradebook/core/curriculum"
	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/core/scoring"
)

type draftResponse struct {
	Grade   grade.Grade `json:"grade"`
	Created bool        `json:"created"`
	Warning string      `json:"warning"`
}

type bulkResponse struct {
	grade.BulkResult
	Message string `json:"message"`
}

func stdDraft(student, subject, term string, score float64) grade.DraftInput {
	return grade.DraftInput{
		SchoolID: "s1", StudentID: student, SubjectID: subject, ClassID: "c-std",
		Term: term, ExamType: "end_term", Score: f(score),
	}
}

func saveDraft(t *testing.T, a actor.Actor, in grade.DraftInput) grade.Grade {
	t.Helper()
	rec := do(t, a, http.MethodPut, "/v1/grades", in)
	require.Contains(t, []int{http.StatusOK, http.StatusCreated}, rec.Code, rec.Body.String())
	var res draftResponse
	decode(t, rec, &res)
	return res.Grade
}

func TestAuth(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		wantCode int
	}{
		{name: "no token", wantCode: http.StatusUnauthorized},
		{name: "bad token", token: "not-a-jwt", wantCode: http.StatusUnauthorized},
		{name: "unknown role", token: getToken(t, actor.Actor{ID: "x1", Role: "janitor"}), wantCode: http.StatusForbidden},
		{name: "no subject", token: getToken(t, actor.Actor{Role: actor.RoleTeacher}), wantCode: http.StatusUnauthorized},
		{name: "teacher", token: getToken(t, teacher), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/curriculum/c-std", tt.token)
			app.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}

	t.Run("missing token message", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/grades", "")
		app.ServeHTTP(rec, req)
		var got httpErr
		decode(t, rec, &got)
		assert.Equal(t, errMissingToken, got)
	})
}

func TestCurriculumAPI(t *testing.T) {
	type response struct {
		curriculum.Resolution
		RequiredStrands []string           `json:"required_strands"`
		Scheme          *curriculum.Scheme `json:"scheme"`
	}

	tests := []struct {
		name        string
		path        string
		wantType    curriculum.Type
		wantWarning bool
		wantStrands []string
		wantScheme  bool
	}{
		{name: "standard", path: "/v1/curriculum/c-std", wantType: curriculum.Standard},
		{name: "cbc strands", path: "/v1/curriculum/c-cbc?subject_id=sci", wantType: curriculum.CBC, wantStrands: []string{"Observation", "Reasoning"}},
		{name: "cbc default strands", path: "/v1/curriculum/c-cbc?subject_id=art", wantType: curriculum.CBC, wantStrands: curriculum.DefaultStrands},
		{name: "legacy igcse field", path: "/v1/curriculum/c-igcse?subject_id=chem", wantType: curriculum.IGCSE, wantScheme: true},
		{name: "unknown class falls back", path: "/v1/curriculum/nope", wantType: curriculum.Standard, wantWarning: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, teacher, http.MethodGet, tt.path, nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var got response
			decode(t, rec, &got)
			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, tt.wantWarning, got.Warning != "")
			assert.Equal(t, tt.wantStrands, got.RequiredStrands)
			assert.Equal(t, tt.wantScheme, got.Scheme != nil)
		})
	}

	t.Run("schemes", func(t *testing.T) {
		scheme := curriculum.Scheme{
			Weights:    conf.Grading.Weights,
			Boundaries: conf.Grading.Boundaries,
		}
		scheme.Weights.Coursework, scheme.Weights.Exam = 40, 60

		rec := do(t, teacher, http.MethodPut, "/v1/schemes/phy", scheme)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		scheme.Weights.Exam = 70
		rec = do(t, principal, http.MethodPut, "/v1/schemes/phy", scheme)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "weights must sum to 100")

		scheme.Weights.Exam = 60
		rec = do(t, principal, http.MethodPut, "/v1/schemes/phy", scheme)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = do(t, teacher, http.MethodGet, "/v1/schemes/phy", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var got curriculum.Scheme
		decode(t, rec, &got)
		assert.Equal(t, 40.0, got.Weights.Coursework)
		assert.False(t, got.IsDefault)
	})
}

func TestGradeAPI(t *testing.T) {
	const term = "api-T1"

	t.Run("save draft", func(t *testing.T) {
		rec := do(t, teacher, http.MethodPut, "/v1/grades", stdDraft("st1", "math", term, 70))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = do(t, teacher, http.MethodPut, "/v1/grades", stdDraft("st1", "math", term, 75))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var res draftResponse
		decode(t, rec, &res)
		assert.False(t, res.Created)
		assert.Equal(t, 75.0, *res.Grade.Scores.(*grade.StandardScores).Score)
	})

	t.Run("invalid draft", func(t *testing.T) {
		in := stdDraft("st1", "math", term, 70)
		in.StudentID = ""
		in.StrandScores = map[string]string{"Observation": "EX"}
		rec := do(t, teacher, http.MethodPut, "/v1/grades", in)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("workflow", func(t *testing.T) {
		g := saveDraft(t, teacher, stdDraft("st2", "math", term, 55))
		path := "/v1/grades/" + g.ID

		rec := do(t, teacher2, http.MethodPost, path+"/submit", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code, "not their grade")

		rec = do(t, teacher, http.MethodPost, path+"/submit", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = do(t, teacher, http.MethodPost, path+"/approve", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = do(t, principal, http.MethodPost, path+"/reject", map[string]string{"reason": " "})
		assert.Equal(t, http.StatusBadRequest, rec.Code, "reason is required")

		rec = do(t, principal, http.MethodPost, path+"/reject", map[string]string{"reason": strings.Repeat("x", 501)})
		assert.Equal(t, http.StatusBadRequest, rec.Code, "reason is too long")
		assert.Contains(t, rec.Body.String(), "reason")

		rec = do(t, principal, http.MethodPost, path+"/approve", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var approved grade.Grade
		decode(t, rec, &approved)
		assert.Equal(t, grade.StatusApproved, approved.Status)
		assert.Equal(t, principal.ID, approved.ApprovedBy)

		rec = do(t, principal, http.MethodPost, path+"/approve", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "already approved")

		rec = do(t, principal, http.MethodPost, path+"/override", grade.OverrideInput{Score: f(60), Reason: "remarked paper"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = do(t, principal, http.MethodPost, path+"/release", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = do(t, teacher, http.MethodGet, path+"/audit", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var entries []audit.Entry
		decode(t, rec, &entries)
		actions := make([]audit.Action, 0, len(entries))
		for _, e := range entries {
			actions = append(actions, e.Action)
		}
		assert.Equal(t, []audit.Action{audit.ActionApprove, audit.ActionOverride, audit.ActionRelease}, actions)

		rec = do(t, teacher, http.MethodPut, "/v1/grades", stdDraft("st2", "math", term, 10))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "released grades are locked")
	})

	t.Run("not found", func(t *testing.T) {
		rec := do(t, teacher, http.MethodGet, "/v1/grades/nope", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		rec = do(t, teacher, http.MethodGet, "/v1/grades/nope/audit", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		rec = do(t, principal, http.MethodPost, "/v1/grades/nope/approve", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("bulk", func(t *testing.T) {
		a := saveDraft(t, teacher, stdDraft("st3", "eng", term, 40))
		b := saveDraft(t, teacher, stdDraft("st4", "eng", term, 50))

		rec := do(t, teacher, http.MethodPost, "/v1/grades/bulk/submit", grade.BulkInput{IDs: []string{a.ID}})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = do(t, principal, http.MethodPost, "/v1/grades/bulk/reject", grade.BulkInput{IDs: []string{a.ID, b.ID}})
		assert.Equal(t, http.StatusBadRequest, rec.Code, "reason is required")

		rec = do(t, principal, http.MethodPost, "/v1/grades/bulk/reject", grade.BulkInput{IDs: []string{a.ID, b.ID, "nope"}, Reason: "recheck"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var res bulkResponse
		decode(t, rec, &res)
		assert.Equal(t, 3, res.Requested)
		assert.Equal(t, 1, res.Affected)
		assert.Equal(t, 2, res.Skipped)
		assert.Equal(t, []string{a.ID}, res.AffectedIDs)
		assert.Equal(t, "1 of 3 succeeded", res.Message)

		rec = do(t, principal, http.MethodPost, "/v1/grades/bulk/release", grade.BulkInput{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("sheet and summaries", func(t *testing.T) {
		rec := do(t, teacher, http.MethodGet, "/v1/grades?class_id=c-std&term="+term+"&status=draft,rejected", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var sheet []grade.Grade
		decode(t, rec, &sheet)
		assert.Len(t, sheet, 3) // st1 math draft, st3 eng rejected, st4 eng draft

		rec = do(t, teacher, http.MethodGet, "/v1/grades?status=lost", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = do(t, teacher, http.MethodGet, "/v1/summaries?class_id=c-std&term="+term+"&exam_type=end_term", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var sums []scoring.StudentSummary
		decode(t, rec, &sums)
		require.NotEmpty(t, sums)
		assert.Equal(t, 1, sums[0].Position)

		rec = do(t, teacher, http.MethodGet, "/v1/summaries?class_id=c-std", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "term and exam type are required")
		assert.Contains(t, rec.Body.String(), "exam_type")

		rec = do(t, teacher, http.MethodGet, "/v1/summaries?class_id=c-cbc&term="+term+"&exam_type=end_term", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "standard classes only")
	})
}

func TestBatchAPI(t *testing.T) {
	const term = "batch-T1"
	g := saveDraft(t, teacher, stdDraft("st1", "bio", term, 64))

	b, err := batchSvc.UpsertBatch(context.Background(), g.BatchKey())
	require.NoError(t, err)
	path := "/v1/batches/" + b.ID

	rec := do(t, teacher, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got batch.Batch
	decode(t, rec, &got)
	assert.Equal(t, grade.StatusDraft, got.Status)
	assert.Equal(t, 1, got.GradesEntered)
	assert.Equal(t, 3, got.TotalStudents)

	rec = do(t, teacher, http.MethodPost, path+"/recompute", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, principal, http.MethodPost, path+"/recompute", nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, teacher, http.MethodPut, path+"/notes", map[string]string{"principal_notes": "ok"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, principal, http.MethodPut, path+"/notes", map[string]string{"principal_notes": strings.Repeat("a", 2001)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "principal_notes")

	rec = do(t, principal, http.MethodPut, path+"/notes", map[string]string{"principal_notes": " see me "})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &got)
	assert.Equal(t, "see me", got.PrincipalNotes)

	rec = do(t, principal, http.MethodGet, "/v1/batches/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
