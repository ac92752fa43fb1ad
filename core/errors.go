package core

import (
	"fmt"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

func IsValidationError(err error) bool {
	_, ok := errors.Cause(err).(*ValidationError)
	return ok
}

// TranslateValidationErrors turns validator.ValidationErrors into a *ValidationError with translated messages.
// Any other error is returned untouched.
func TranslateValidationErrors(err error, translator ut.Translator) error {
	vErrs, ok := errors.Cause(err).(validator.ValidationErrors)
	if !ok {
		return err
	}
	flds := make([]FieldError, 0, len(vErrs))
	for _, vErr := range vErrs {
		flds = append(flds, FieldError{Field: vErr.Field(), Error: vErr.Translate(translator)})
	}
	return NewValidationError(errors.New("invalid input"), flds...)
}

// ErrPermissionDenied is the cause of every PermissionError.
var ErrPermissionDenied = errors.New("permission denied")

// PermissionError is returned when an actor's role does not allow an action.
type PermissionError struct {
	ActorID string
	Role    string
	Action  string
}

func NewPermissionError(actorID, role, action string) error {
	return &PermissionError{ActorID: actorID, Role: role, Action: action}
}

func (err PermissionError) Error() string {
	return fmt.Sprintf("%v: role %q may not %s", ErrPermissionDenied, err.Role, err.Action)
}

func IsPermissionDenied(err error) bool {
	_, ok := errors.Cause(err).(*PermissionError)
	return ok
}

// NotFoundError is returned when a referenced entity does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func NewNotFoundError(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

func (err NotFoundError) Error() string {
	if err.ID == "" {
		return err.Resource + " not found"
	}
	return fmt.Sprintf("%s %q not found", err.Resource, err.ID)
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

// ConflictError is returned when a write loses against a concurrent one.
type ConflictError struct {
	Resource string
	Reason   string
}

func NewConflictError(resource, reason string) error {
	return &ConflictError{Resource: resource, Reason: reason}
}

func (err ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s", err.Resource, err.Reason)
}

func IsConflict(err error) bool {
	_, ok := errors.Cause(err).(*ConflictError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
