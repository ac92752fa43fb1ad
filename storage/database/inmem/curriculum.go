package inmemdb

import (
	"context"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/curriculum"
)

type classRepository struct {
	db *classTable
}

var _ curriculum.ClassRepository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db *DB) *classRepository {
	return &classRepository{db: db.class}
}

func (repo *classRepository) GetClass(_ context.Context, id string) (curriculum.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if class, ok := repo.db.table[id]; ok {
		return class, nil
	}
	return curriculum.Class{}, core.NewNotFoundError("class", id)
}

// SaveClass stores or replaces a class. Classes are owned by the school system; this only seeds them.
func (repo *classRepository) SaveClass(_ context.Context, class curriculum.Class) (curriculum.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if class.ID == "" {
		class.ID = newID()
	}
	repo.db.table[class.ID] = class
	return class, nil
}

type competencyRepository struct {
	db *competencyTable
}

var _ curriculum.CompetencyRepository = (*competencyRepository)(nil) // interface compliance check

func NewCompetencyRepository(db *DB) *competencyRepository {
	return &competencyRepository{db: db.competency}
}

func (repo *competencyRepository) QueryCompetencies(_ context.Context, classID, subjectID string) ([]curriculum.Competency, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	// class-specific first, then subject-wide
	var specific, general []curriculum.Competency
	for _, c := range repo.db.table {
		if c.SubjectID != subjectID {
			continue
		}
		switch c.ClassID {
		case classID:
			specific = append(specific, c)
		case "":
			general = append(general, c)
		}
	}
	return append(specific, general...), nil
}

func (repo *competencyRepository) SaveCompetency(_ context.Context, c curriculum.Competency) (curriculum.Competency, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	c.Strands = append([]string{}, c.Strands...)
	c.AssessmentTypes = append([]string{}, c.AssessmentTypes...)
	if c.ID == "" {
		c.ID = newID()
		repo.db.table = append(repo.db.table, c)
		return c, nil
	}
	for i, cur := range repo.db.table {
		if cur.ID == c.ID {
			repo.db.table[i] = c
			return c, nil
		}
	}
	repo.db.table = append(repo.db.table, c)
	return c, nil
}

type schemeRepository struct {
	db *schemeTable
}

var _ curriculum.SchemeRepository = (*schemeRepository)(nil) // interface compliance check

func NewSchemeRepository(db *DB) *schemeRepository {
	return &schemeRepository{db: db.scheme}
}

func (repo *schemeRepository) GetScheme(_ context.Context, subjectID string) (curriculum.Scheme, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.table[subjectID]; ok {
		s.Boundaries = append(core.Boundaries{}, s.Boundaries...)
		return s, nil
	}
	return curriculum.Scheme{}, core.NewNotFoundError("scheme", subjectID)
}

func (repo *schemeRepository) SaveScheme(_ context.Context, s curriculum.Scheme) (curriculum.Scheme, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	s.Boundaries = append(core.Boundaries{}, s.Boundaries...)
	repo.db.table[s.SubjectID] = s
	return s, nil
}
