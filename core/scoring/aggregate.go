package scoring

import (
	"sort"

	"github.com/shopspring/decimal"
)

// SubjectScore is one student's result in one subject. Score is nil when nothing was entered.
type SubjectScore struct {
	SubjectID string   `json:"subject_id"`
	Score     *float64 `json:"score"`
	Absent    bool     `json:"absent"`
}

// counts reports whether the entry takes part in the totals.
func (s SubjectScore) counts() bool {
	return !s.Absent && s.Score != nil && *s.Score > 0
}

// StudentSummary is a student's roll-up across subjects on a standard sheet.
type StudentSummary struct {
	StudentID     string  `json:"student_id"`
	TotalScore    float64 `json:"total_score"`
	TotalPossible float64 `json:"total_possible"`
	Percentage    float64 `json:"percentage"`
	AverageScore  float64 `json:"average_score"`
	SubjectCount  int     `json:"subject_count"`
	Position      int     `json:"position"` // 0 means unranked
	LetterGrade   string  `json:"letter_grade,omitempty"`
}

// Aggregate rolls up a student's scores for the given subjects.
// Entries for subjects not listed are ignored; when subjects is empty every entry is considered.
// Absent and missing scores, and scores of 0, are excluded rather than counted as zero.
// Position is left at 0; see Rank.
func Aggregate(studentID string, subjects []string, entries []SubjectScore) StudentSummary {
	wanted := make(map[string]bool, len(subjects))
	for _, s := range subjects {
		wanted[s] = true
	}

	total := decimal.Zero
	var count int
	for _, e := range entries {
		if len(wanted) > 0 && !wanted[e.SubjectID] {
			continue
		}
		if !e.counts() {
			continue
		}
		total = total.Add(decimal.NewFromFloat(*e.Score))
		count++
	}

	sum := StudentSummary{
		StudentID:     studentID,
		TotalScore:    round(total),
		TotalPossible: float64(100 * count),
		SubjectCount:  count,
	}
	if count > 0 {
		n := decimal.NewFromInt(int64(count))
		sum.Percentage = round(total.Div(n.Mul(hundred)).Mul(hundred))
		sum.AverageScore = round(total.Div(n))
	}
	if sum.AverageScore > 0 {
		sum.LetterGrade = StandardLetter(sum.AverageScore)
	}
	return sum
}

// Rank assigns competition ranking positions ("1, 1, 3") by TotalScore, highest first.
// Students with a TotalScore of 0 get position 0 and do not take a rank.
// The returned slice is sorted by position, unranked students last, ties by StudentID.
func Rank(summaries []StudentSummary) []StudentSummary {
	ranked := make([]StudentSummary, len(summaries))
	copy(ranked, summaries)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].TotalScore != ranked[j].TotalScore {
			return ranked[i].TotalScore > ranked[j].TotalScore
		}
		return ranked[i].StudentID < ranked[j].StudentID
	})

	for i := range ranked {
		switch {
		case ranked[i].TotalScore <= 0:
			ranked[i].Position = 0
		case i > 0 && ranked[i].TotalScore == ranked[i-1].TotalScore:
			ranked[i].Position = ranked[i-1].Position
		default:
			ranked[i].Position = i + 1
		}
	}
	return ranked
}
