package core

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// custom validation tags & texts
	notBlankTag  = "notblank"
	notBlankText = "this field cannot be blank"

	curriculumTag    = "curriculum"
	curriculumText   = "must be one of standard, cbc or igcse"
	curriculumValues = map[string]bool{"standard": true, "cbc": true, "igcse": true}

	perfLevelTag    = "perflevel"
	perfLevelText   = "must be one of EM, AP, PR or EX"
	perfLevelValues = map[string]bool{"EM": true, "AP": true, "PR": true, "EX": true}

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"
)

// NewTranslator returns the english translator used for validation messages.
func NewTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(notBlankTag, notBlankValidation)
	RegisterCustomTranslation(validate, translator, notBlankTag, notBlankText)

	_ = validate.RegisterValidation(curriculumTag, curriculumValidation)
	RegisterCustomTranslation(validate, translator, curriculumTag, curriculumText)

	_ = validate.RegisterValidation(perfLevelTag, perfLevelValidation)
	RegisterCustomTranslation(validate, translator, perfLevelTag, perfLevelText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Custom Global Validators

// notBlankValidation rejects strings made only of whitespace.
func notBlankValidation(fl validator.FieldLevel) bool {
	return CleanString(fl.Field().String()) != ""
}

// curriculumValidation accepts the known curriculum types, case-insensitively. Empty is allowed.
func curriculumValidation(fl validator.FieldLevel) bool {
	v := CleanString(fl.Field().String(), true /* lower */)
	return v == "" || curriculumValues[v]
}

// perfLevelValidation accepts the CBC performance levels.
func perfLevelValidation(fl validator.FieldLevel) bool {
	return perfLevelValues[strings.ToUpper(CleanString(fl.Field().String()))]
}
