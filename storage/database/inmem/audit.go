package inmemdb

import (
	"context"

	"github.com/trezcool/gradebook/core/audit"
)

type auditRepository struct {
	db *auditTable
}

var _ audit.Repository = (*auditRepository)(nil) // interface compliance check

func NewAuditRepository(db *DB) *auditRepository {
	return &auditRepository{db: db.audit}
}

func (repo *auditRepository) AppendEntries(_ context.Context, entries ...audit.Entry) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.table = append(repo.db.table, entries...)
	return nil
}

func (repo *auditRepository) QueryEntries(_ context.Context, filter audit.QueryFilter) ([]audit.Entry, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	entries := make([]audit.Entry, 0)
	for _, e := range repo.db.table {
		if filter.Match(e) {
			entries = append(entries, e)
		}
	}
	return entries, nil
}
