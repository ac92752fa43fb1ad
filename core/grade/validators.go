package grade

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/gradebook/core"
)

var (
	scoreMaxTag  = "scoremax"
	scoreMaxText = "score cannot exceed the max score"

	weightsPairTag  = "weightspair"
	weightsPairText = "coursework and exam weights must be set together"

	weightsSumTag  = "weightssum"
	weightsSumText = "coursework and exam weights must sum to 100"
)

// InitValidators registers the grade struct validations. core.InitValidators must run first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(draftStructValidation, DraftInput{})
	core.RegisterCustomTranslation(validate, translator, scoreMaxTag, scoreMaxText)
	core.RegisterCustomTranslation(validate, translator, weightsPairTag, weightsPairText)
	core.RegisterCustomTranslation(validate, translator, weightsSumTag, weightsSumText)
}

// draftStructValidation checks the cross-field rules of DraftInput.
// The max score defaults are applied later, so only an explicit max is checked here.
func draftStructValidation(sl validator.StructLevel) {
	in, ok := sl.Current().Interface().(DraftInput)
	if !ok {
		return
	}

	if in.Score != nil && in.MaxScore != nil && *in.Score > *in.MaxScore {
		sl.ReportError(in.Score, "score", "Score", scoreMaxTag, "")
	}

	switch {
	case (in.CourseworkWeight == nil) != (in.ExamWeight == nil):
		sl.ReportError(in.CourseworkWeight, "coursework_weight", "CourseworkWeight", weightsPairTag, "")
	case in.CourseworkWeight != nil && *in.CourseworkWeight+*in.ExamWeight != 100:
		sl.ReportError(in.CourseworkWeight, "coursework_weight", "CourseworkWeight", weightsSumTag, "")
	}
}
