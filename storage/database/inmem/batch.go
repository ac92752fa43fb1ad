package inmemdb

import (
	"context"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/batch"
)

type batchRepository struct {
	db *batchTable
}

var _ batch.Repository = (*batchRepository)(nil) // interface compliance check

func NewBatchRepository(db *DB) *batchRepository {
	return &batchRepository{db: db.batch}
}

func (repo *batchRepository) UpsertBatch(_ context.Context, b batch.Batch) (batch.Batch, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, cur := range repo.db.table {
		if cur.Key() == b.Key() {
			return *cur, nil
		}
	}
	b.ID = newID()
	repo.db.table[b.ID] = &b
	return b, nil
}

func (repo *batchRepository) GetBatch(_ context.Context, id string) (batch.Batch, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if b, ok := repo.db.table[id]; ok {
		return *b, nil
	}
	return batch.Batch{}, core.NewNotFoundError("batch", id)
}

func (repo *batchRepository) UpdateBatch(_ context.Context, b batch.Batch) (batch.Batch, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cur, ok := repo.db.table[b.ID]
	if !ok {
		return batch.Batch{}, core.NewNotFoundError("batch", b.ID)
	}
	b.CreatedAt = cur.CreatedAt
	repo.db.table[b.ID] = &b
	return b, nil
}
