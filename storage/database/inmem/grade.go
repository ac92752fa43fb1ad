package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grade"
)

type gradeRepository struct {
	db *gradeTable
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db *DB) *gradeRepository {
	return &gradeRepository{db: db.grade}
}

type gradeTuple struct {
	grade.Key
	grade.BatchKey
}

func tuple(g grade.Grade) gradeTuple {
	return gradeTuple{Key: g.Key(), BatchKey: g.BatchKey()}
}

func (repo *gradeRepository) query(filter grade.QueryFilter) []grade.Grade {
	grades := make([]grade.Grade, 0)
	for _, g := range repo.db.table {
		if filter.Match(*g) {
			grades = append(grades, g.Clone())
		}
	}
	sort.Slice(grades, func(i, j int) bool {
		if !grades[i].CreatedAt.Equal(grades[j].CreatedAt) {
			return grades[i].CreatedAt.Before(grades[j].CreatedAt)
		}
		return grades[i].ID < grades[j].ID
	})
	return grades
}

func (repo *gradeRepository) UpsertGrade(_ context.Context, g grade.Grade) (grade.Grade, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := tuple(g)
	for id, cur := range repo.db.table {
		if tuple(*cur) == key {
			g.ID = id
			g.CreatedAt = cur.CreatedAt
			break
		}
	}
	if g.ID == "" {
		g.ID = newID()
	}
	stored := g.Clone()
	repo.db.table[g.ID] = &stored
	return g.Clone(), nil
}

func (repo *gradeRepository) GetGrade(_ context.Context, id string) (grade.Grade, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if g, ok := repo.db.table[id]; ok {
		return g.Clone(), nil
	}
	return grade.Grade{}, core.NewNotFoundError("grade", id)
}

func (repo *gradeRepository) GetGrades(_ context.Context, ids []string) ([]grade.Grade, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	grades := make([]grade.Grade, 0, len(ids))
	for _, id := range ids {
		if g, ok := repo.db.table[id]; ok {
			grades = append(grades, g.Clone())
		}
	}
	return grades, nil
}

func (repo *gradeRepository) QueryGrades(_ context.Context, filter grade.QueryFilter) ([]grade.Grade, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.query(filter), nil
}

func (repo *gradeRepository) UpdateGradeIf(_ context.Context, g grade.Grade, expected grade.Status) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cur, ok := repo.db.table[g.ID]
	if !ok {
		return false, core.NewNotFoundError("grade", g.ID)
	}
	if cur.Status != expected {
		return false, nil
	}
	stored := g.Clone()
	stored.CreatedAt = cur.CreatedAt
	repo.db.table[g.ID] = &stored
	return true, nil
}
