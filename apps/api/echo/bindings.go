package echoapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grade"
)

// bindFilter reads a grade.QueryFilter from the query string.
// "status" may be repeated or comma separated.
func bindFilter(ctx echo.Context) (grade.QueryFilter, error) {
	q := ctx.QueryParams()
	filter := grade.QueryFilter{
		SchoolID:    core.CleanString(q.Get("school_id")),
		ClassID:     core.CleanString(q.Get("class_id")),
		SubjectID:   core.CleanString(q.Get("subject_id")),
		StudentID:   core.CleanString(q.Get("student_id")),
		Term:        core.CleanString(q.Get("term")),
		ExamType:    core.CleanString(q.Get("exam_type")),
		SubmittedBy: core.CleanString(q.Get("submitted_by")),
	}
	for _, raw := range q["status"] {
		for _, s := range strings.Split(raw, ",") {
			st := grade.Status(core.CleanString(s, true /* lower */))
			if st == "" {
				continue
			}
			if !st.Valid() {
				return grade.QueryFilter{}, echo.NewHTTPError(http.StatusBadRequest, "invalid status: "+s)
			}
			filter.Statuses = append(filter.Statuses, st)
		}
	}
	return filter, nil
}

// bind decodes the request body, reporting malformed input as a 400.
func bind(ctx echo.Context, i interface{}) error {
	if err := ctx.Bind(i); err != nil {
		if herr, ok := err.(*echo.HTTPError); ok {
			return herr
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
