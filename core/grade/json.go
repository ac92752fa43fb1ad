package grade

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core/curriculum"
)

type gradeAlias Grade

// gradeJSON puts the curriculum-specific scores under "scores"; curriculum_type is the discriminant.
type gradeJSON struct {
	gradeAlias
	Scores json.RawMessage `json:"scores"`
}

func (g Grade) MarshalJSON() ([]byte, error) {
	out := gradeJSON{gradeAlias: gradeAlias(g), Scores: json.RawMessage("null")}
	if g.Scores != nil {
		if g.Curriculum != "" && g.Scores.Curriculum() != g.Curriculum {
			return nil, errors.Errorf("grade %s: %s scores on a %s grade", g.ID, g.Scores.Curriculum(), g.Curriculum)
		}
		raw, err := json.Marshal(g.Scores)
		if err != nil {
			return nil, errors.Wrap(err, "marshalling scores")
		}
		out.Scores = raw
	}
	return json.Marshal(out)
}

func (g *Grade) UnmarshalJSON(data []byte) error {
	var in gradeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*g = Grade(in.gradeAlias)

	scores, err := UnmarshalScores(g.Curriculum, in.Scores)
	if err != nil {
		return err
	}
	g.Scores = scores
	return nil
}

// UnmarshalScores decodes raw scores of the given curriculum. Null or empty input gives nil scores.
func UnmarshalScores(t curriculum.Type, raw []byte) (Scores, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	scores, err := newScores(t)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, scores); err != nil {
		return nil, errors.Wrapf(err, "unmarshalling %s scores", t)
	}
	return scores, nil
}
