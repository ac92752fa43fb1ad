package inmemdb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/gradebook/core/audit"
	"github.com/trezcool/gradebook/core/batch"
	"github.com/trezcool/gradebook/core/curriculum"
	"github.com/trezcool/gradebook/core/grade"
)

type (
	// DB is a process-local store used in tests.
	DB struct {
		class      *classTable
		competency *competencyTable
		scheme     *schemeTable
		grade      *gradeTable
		audit      *auditTable
		batch      *batchTable
	}

	classTable struct {
		mutex sync.RWMutex
		table map[string]curriculum.Class
	}

	competencyTable struct {
		mutex sync.RWMutex
		table []curriculum.Competency
	}

	schemeTable struct {
		mutex sync.RWMutex
		table map[string]curriculum.Scheme
	}

	gradeTable struct {
		mutex sync.RWMutex
		table map[string]*grade.Grade
	}

	auditTable struct {
		mutex sync.RWMutex
		table []audit.Entry
	}

	batchTable struct {
		mutex sync.RWMutex
		table map[string]*batch.Batch
	}
)

func Open() *DB {
	return &DB{
		class:      &classTable{table: make(map[string]curriculum.Class)},
		competency: &competencyTable{},
		scheme:     &schemeTable{table: make(map[string]curriculum.Scheme)},
		grade:      &gradeTable{table: make(map[string]*grade.Grade)},
		audit:      &auditTable{},
		batch:      &batchTable{table: make(map[string]*batch.Batch)},
	}
}

func newID() string {
	return uuid.New().String()
}
