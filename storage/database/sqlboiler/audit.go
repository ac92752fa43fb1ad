package boiledrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/types"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/audit"
)

type auditRow struct {
	ID        string     `boil:"id"`
	GradeID   string     `boil:"grade_id"`
	ActorID   string     `boil:"actor_id"`
	ActorRole string     `boil:"actor_role"`
	Action    string     `boil:"action"`
	OldValues types.JSON `boil:"old_values"`
	NewValues types.JSON `boil:"new_values"`
	Reason    string     `boil:"reason"`
	CreatedAt time.Time  `boil:"created_at"`
}

type auditRepository struct {
	exec core.DBExecutor
}

var _ audit.Repository = (*auditRepository)(nil) // interface compliance check

func NewAuditRepository(exec core.DBExecutor) *auditRepository {
	return &auditRepository{exec: exec}
}

func values(v audit.Values) (types.JSON, error) {
	if v == nil {
		v = audit.Values{}
	}
	var j types.JSON
	if err := j.Marshal(v); err != nil {
		return nil, errors.Wrap(err, "encoding audit values")
	}
	return j, nil
}

// AppendEntries inserts every entry in one statement, so either all or none are stored.
func (repo auditRepository) AppendEntries(ctx context.Context, entries ...audit.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	rows := make([]string, 0, len(entries))
	args := make([]interface{}, 0, 9*len(entries))
	for _, e := range entries {
		oldVals, err := values(e.OldValues)
		if err != nil {
			return err
		}
		newVals, err := values(e.NewValues)
		if err != nil {
			return err
		}
		rows = append(rows, "("+placeholders(9, len(args)+1)+")")
		args = append(args, e.ID, e.GradeID, e.ActorID, e.ActorRole, string(e.Action), oldVals, newVals, e.Reason, e.Timestamp.UTC())
	}

	q := fmt.Sprintf(`INSERT INTO audit_entries
		(id, grade_id, actor_id, actor_role, action, old_values, new_values, reason, created_at)
		VALUES %s`, strings.Join(rows, ", "))
	if _, err := queries.Raw(q, args...).ExecContext(ctx, repo.exec); err != nil {
		return errors.Wrap(err, "inserting audit entries")
	}
	return nil
}

func (repo auditRepository) QueryEntries(ctx context.Context, filter audit.QueryFilter) ([]audit.Entry, error) {
	w := &where{}
	if len(filter.GradeIDs) > 0 {
		w.add("grade_id::text = ANY($%d)", pq.Array(filter.GradeIDs))
	}
	w.eq("actor_id", filter.ActorID)
	if len(filter.Actions) > 0 {
		actions := make([]string, 0, len(filter.Actions))
		for _, a := range filter.Actions {
			actions = append(actions, string(a))
		}
		w.add("action = ANY($%d)", pq.Array(actions))
	}

	var rows []auditRow
	q := fmt.Sprintf(`SELECT id, grade_id, actor_id, actor_role, action, old_values, new_values, reason, created_at
		FROM audit_entries%s ORDER BY created_at, id`, w)
	if err := queries.Raw(q, w.args...).Bind(ctx, repo.exec, &rows); err != nil {
		return nil, errors.Wrap(err, "querying audit entries")
	}

	entries := make([]audit.Entry, 0, len(rows))
	for _, row := range rows {
		e := audit.Entry{
			ID:        row.ID,
			GradeID:   row.GradeID,
			ActorID:   row.ActorID,
			ActorRole: row.ActorRole,
			Action:    audit.Action(row.Action),
			Reason:    row.Reason,
			Timestamp: row.CreatedAt,
		}
		if err := row.OldValues.Unmarshal(&e.OldValues); err != nil {
			return nil, errors.Wrap(err, "decoding audit values")
		}
		if err := row.NewValues.Unmarshal(&e.NewValues); err != nil {
			return nil, errors.Wrap(err, "decoding audit values")
		}
		entries = append(entries, e)
	}
	return entries, nil
}
