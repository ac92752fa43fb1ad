package echoapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/gradebook/core"
	testutil "github.com/trezcool/gradebook/tests"
)

func TestAppHTTPErrorHandler(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantCode     int
		wantBody     string
		wantShutdown bool
		wantLogged   bool
	}{
		{
			name:     "http error",
			err:      echo.NewHTTPError(http.StatusTeapot, "short and stout"),
			wantCode: http.StatusTeapot,
			wantBody: `{"error":"short and stout"}`,
		},
		{
			name:     "validation error with fields",
			err:      errors.Wrap(core.NewValidationError(errors.New("invalid input"), core.FieldError{Field: "score", Error: "too high"}), "saving draft"),
			wantCode: http.StatusBadRequest,
			wantBody: `{"score":"too high"}`,
		},
		{
			name:     "permission error",
			err:      core.NewPermissionError("t1", "teacher:", "approve"),
			wantCode: http.StatusForbidden,
			wantBody: `{"error":"permission denied: role \"teacher:\" may not approve"}`,
		},
		{
			name:     "not found",
			err:      errors.Wrap(core.NewNotFoundError("grade", "g1"), "getting grade"),
			wantCode: http.StatusNotFound,
			wantBody: `{"error":"grade \"g1\" not found"}`,
		},
		{
			name:     "conflict",
			err:      core.NewConflictError("grade", "g1 was modified"),
			wantCode: http.StatusConflict,
			wantBody: `{"error":"grade conflict: g1 was modified"}`,
		},
		{
			name:       "server error",
			err:        errors.New("db is down"),
			wantCode:   http.StatusInternalServerError,
			wantBody:   `{"error":"Internal Server Error"}`,
			wantLogged: true,
		},
		{
			name:         "shutdown",
			err:          core.NewShutdownError("integrity issue"),
			wantCode:     http.StatusInternalServerError,
			wantBody:     `{"error":"Internal Server Error"}`,
			wantShutdown: true,
			wantLogged:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := testutil.NewLogger()
			var shutdown bool
			handler := newAppHTTPErrorHandler(logger, core.NewTranslator(), func() { shutdown = true })

			e := echo.New()
			rec := httptest.NewRecorder()
			handler(tt.err, e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
			assert.Equal(t, tt.wantShutdown, shutdown)
			assert.Equal(t, tt.wantLogged, len(logger.Entries("error")) > 0)
		})
	}
}
