package grade

import "sort"

// Sheet is a class grade sheet keyed by (student, subject).
// It is never mutated in place: With and Without return new sheets.
type Sheet map[Key]Grade

// NewSheet builds a sheet; when several grades share a key the most recently updated one wins.
func NewSheet(grades []Grade) Sheet {
	sh := make(Sheet, len(grades))
	for _, g := range grades {
		if cur, ok := sh[g.Key()]; ok && cur.UpdatedAt.After(g.UpdatedAt) {
			continue
		}
		sh[g.Key()] = g
	}
	return sh
}

func (sh Sheet) copy(extra int) Sheet {
	c := make(Sheet, len(sh)+extra)
	for k, v := range sh {
		c[k] = v
	}
	return c
}

// With returns a new sheet holding g in place of any grade with the same key.
func (sh Sheet) With(g Grade) Sheet {
	c := sh.copy(1)
	c[g.Key()] = g
	return c
}

// Without returns a new sheet without the grade at k.
func (sh Sheet) Without(k Key) Sheet {
	c := sh.copy(0)
	delete(c, k)
	return c
}

func (sh Sheet) Get(studentID, subjectID string) (Grade, bool) {
	g, ok := sh[Key{StudentID: studentID, SubjectID: subjectID}]
	return g, ok
}

// Students returns the sorted student IDs present on the sheet.
func (sh Sheet) Students() []string {
	seen := make(map[string]bool)
	var ids []string
	for k := range sh {
		if !seen[k.StudentID] {
			seen[k.StudentID] = true
			ids = append(ids, k.StudentID)
		}
	}
	sort.Strings(ids)
	return ids
}

// Subjects returns the sorted subject IDs present on the sheet.
func (sh Sheet) Subjects() []string {
	seen := make(map[string]bool)
	var ids []string
	for k := range sh {
		if !seen[k.SubjectID] {
			seen[k.SubjectID] = true
			ids = append(ids, k.SubjectID)
		}
	}
	sort.Strings(ids)
	return ids
}

// StudentGrades returns a student's grades sorted by subject.
func (sh Sheet) StudentGrades(studentID string) []Grade {
	var grades []Grade
	for k, g := range sh {
		if k.StudentID == studentID {
			grades = append(grades, g)
		}
	}
	sort.Slice(grades, func(i, j int) bool { return grades[i].SubjectID < grades[j].SubjectID })
	return grades
}

// List returns every grade, sorted by student then subject.
func (sh Sheet) List() []Grade {
	grades := make([]Grade, 0, len(sh))
	for _, g := range sh {
		grades = append(grades, g)
	}
	sort.Slice(grades, func(i, j int) bool {
		if grades[i].StudentID != grades[j].StudentID {
			return grades[i].StudentID < grades[j].StudentID
		}
		return grades[i].SubjectID < grades[j].SubjectID
	})
	return grades
}
