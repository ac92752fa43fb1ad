package audit

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"go.jetify.com/typeid"

	"github.com/trezcool/gradebook/core"
)

const idPrefix = "audit"

type (
	Repository interface {
		// AppendEntries stores all entries or none.
		AppendEntries(ctx context.Context, entries ...Entry) error
		QueryEntries(ctx context.Context, filter QueryFilter) ([]Entry, error)
	}

	ServiceInterface interface {
		Record(ctx context.Context, entries ...Entry)
		History(ctx context.Context, gradeID string) ([]Entry, error)
		Query(ctx context.Context, filter QueryFilter) ([]Entry, error)
	}

	// Service writes audit entries best-effort: failed writes are retried with
	// exponential backoff and, once exhausted, logged at error level.
	// A failed write never fails the caller.
	Service struct {
		repo       Repository
		logger     core.Logger
		maxRetries uint64
		interval   time.Duration
	}
)

var _ ServiceInterface = (*Service)(nil) // interface compliance check

func NewService(conf *core.Config, repo Repository, logger core.Logger) *Service {
	return &Service{
		repo:       repo,
		logger:     logger,
		maxRetries: conf.Grading.AuditMaxRetries,
		interval:   conf.Grading.AuditRetryInterval,
	}
}

// NewID returns a new "audit_..." type ID.
func NewID() string {
	tid, err := typeid.WithPrefix(idPrefix)
	if err != nil {
		// the prefix is a valid constant
		panic(err)
	}
	return tid.String()
}

func (svc *Service) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	if svc.interval > 0 {
		exp.InitialInterval = svc.interval
	}
	return backoff.WithContext(backoff.WithMaxRetries(exp, svc.maxRetries), ctx)
}

// Record appends one entry per grade.
// The write outlives the caller's cancellation so that a finished transition is always audited.
func (svc *Service) Record(ctx context.Context, entries ...Entry) {
	if len(entries) == 0 {
		return
	}
	now := core.Now()
	for i := range entries {
		if entries[i].ID == "" {
			entries[i].ID = NewID()
		}
		if entries[i].Timestamp.IsZero() {
			entries[i].Timestamp = now
		}
	}

	ctx = context.WithoutCancel(ctx)
	var attempts int
	op := func() error {
		attempts++
		return svc.repo.AppendEntries(ctx, entries...)
	}
	if err := backoff.Retry(op, svc.backOff(ctx)); err != nil {
		ids := make([]string, 0, len(entries))
		for _, e := range entries {
			ids = append(ids, e.GradeID)
		}
		msg := fmt.Sprintf("writing %d audit entries (%s) failed after %d attempts: %v", len(entries), entries[0].Action, attempts, err)
		svc.logger.Error(msg, errors.Wrap(err, "appending audit entries"), map[string]interface{}{"grade_ids": ids})
	}
}

// History returns a grade's entries, oldest first.
func (svc *Service) History(ctx context.Context, gradeID string) ([]Entry, error) {
	gradeID = core.CleanString(gradeID)
	if gradeID == "" {
		return nil, core.NewValidationError(
			errors.New("grade is required"),
			core.FieldError{Field: "grade_id", Error: "this field is required"},
		)
	}
	return svc.Query(ctx, QueryFilter{GradeIDs: []string{gradeID}})
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Entry, error) {
	entries, err := svc.repo.QueryEntries(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying audit entries")
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Timestamp.Before(entries[j].Timestamp) })
	return entries, nil
}
