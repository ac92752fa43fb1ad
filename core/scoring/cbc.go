package scoring

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/gradebook/core"
)

// Level is a CBC performance level.
type Level string

const (
	LevelEM Level = "EM" // Emerging
	LevelAP Level = "AP" // Approaching Proficiency
	LevelPR Level = "PR" // Proficient
	LevelEX Level = "EX" // Exemplary
)

var (
	ErrInvalidLevel = errors.New("invalid performance level")

	levelValues = map[Level]int64{LevelEM: 1, LevelAP: 2, LevelPR: 3, LevelEX: 4}

	exThreshold = decimal.NewFromFloat(3.5)
	prThreshold = decimal.NewFromFloat(2.5)
	apThreshold = decimal.NewFromFloat(1.5)
)

// ParseLevel accepts EM, AP, PR or EX in any case.
func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToUpper(core.CleanString(s)))
	if _, ok := levelValues[l]; !ok {
		return "", errors.Wrapf(ErrInvalidLevel, "%q", s)
	}
	return l, nil
}

func (l Level) Value() int64 {
	return levelValues[l]
}

func (l Level) Valid() bool {
	_, ok := levelValues[l]
	return ok
}

// CBCAggregate averages the strand levels (EM=1, AP=2, PR=3, EX=4) and maps the mean back:
// >=3.5 EX, >=2.5 PR, >=1.5 AP, else EM. An empty set is EM. Unknown levels are ignored.
func CBCAggregate(levels []Level) Level {
	var (
		sum   int64
		count int64
	)
	for _, l := range levels {
		if v, ok := levelValues[l]; ok {
			sum += v
			count++
		}
	}
	if count == 0 {
		return LevelEM
	}

	mean := decimal.NewFromInt(sum).Div(decimal.NewFromInt(count))
	switch {
	case mean.GreaterThanOrEqual(exThreshold):
		return LevelEX
	case mean.GreaterThanOrEqual(prThreshold):
		return LevelPR
	case mean.GreaterThanOrEqual(apThreshold):
		return LevelAP
	default:
		return LevelEM
	}
}

// CBCAggregateStrands aggregates a strand -> level map.
func CBCAggregateStrands(strands map[string]Level) Level {
	levels := make([]Level, 0, len(strands))
	for _, l := range strands {
		levels = append(levels, l)
	}
	return CBCAggregate(levels)
}
