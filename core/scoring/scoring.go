// Package scoring holds the pure grade calculators for every supported curriculum.
// Nothing in here does I/O or keeps state; arithmetic goes through decimal.Decimal
// so that weighted totals and averages do not drift.
package scoring

import (
	"github.com/shopspring/decimal"

	"github.com/trezcool/gradebook/core"
)

const precision = 2

var hundred = decimal.NewFromInt(100)

// round keeps two decimal places.
func round(d decimal.Decimal) float64 {
	return d.Round(precision).InexactFloat64()
}

// Percentage returns score/max as a percentage. A non-positive max yields 0.
func Percentage(score, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return round(decimal.NewFromFloat(score).Div(decimal.NewFromFloat(max)).Mul(hundred))
}

type ladderStep struct {
	min    float64
	letter string
}

var standardLadder = []ladderStep{
	{90, "A+"},
	{80, "A"},
	{70, "B+"},
	{60, "B"},
	{50, "C+"},
	{40, "C"},
	{30, "D+"},
	{20, "D"},
}

// StandardLetter maps a 0..100 score to the standard letter ladder.
func StandardLetter(score float64) string {
	for _, step := range standardLadder {
		if score >= step.min {
			return step.letter
		}
	}
	return "E"
}

// IGCSETotal weights the two components: cw*w.Coursework/100 + exam*w.Exam/100.
func IGCSETotal(coursework, exam float64, w core.Weights) float64 {
	cw := decimal.NewFromFloat(coursework).Mul(decimal.NewFromFloat(w.Coursework)).Div(hundred)
	ex := decimal.NewFromFloat(exam).Mul(decimal.NewFromFloat(w.Exam)).Div(hundred)
	return round(cw.Add(ex))
}

// IGCSELetter returns the first boundary met scanning thresholds from the highest down,
// or "U" when none is met.
func IGCSELetter(percentage float64, b core.Boundaries) string {
	if len(b) == 0 {
		b = core.DefaultBoundaries
	}
	for _, bd := range b.Descending() {
		if percentage >= bd.Threshold {
			return bd.Letter
		}
	}
	return "U"
}
