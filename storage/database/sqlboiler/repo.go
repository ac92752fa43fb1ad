// Package boiledrepos implements the repositories on PostgreSQL with sqlboiler raw queries.
package boiledrepos

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/gradebook/core"
)

// uniqueViolation is the PostgreSQL error code of a unique constraint violation.
const uniqueViolation = "23505"

// trapNoRowsErr maps psql "no rows" err to a *core.NotFoundError
func trapNoRowsErr(err error, resource, id, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return core.NewNotFoundError(resource, id)
	}
	return errors.Wrap(err, msg)
}

// trapConflictErr maps unique violations to a *core.ConflictError
func trapConflictErr(err error, resource, msg string) error {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation {
		return core.NewConflictError(resource, pqErr.Message)
	}
	return errors.Wrap(err, msg)
}

func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func nullString(s string) null.String {
	return null.NewString(s, s != "")
}

func nullTime(t *time.Time) null.Time {
	if t == nil {
		return null.Time{}
	}
	return null.TimeFrom(t.UTC())
}

// where accumulates "col = $n" conditions with their positional args.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, arg interface{}) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *where) eq(col, val string) {
	if val != "" {
		w.add(col+" = $%d", val)
	}
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}
