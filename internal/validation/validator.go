package validation

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// FieldErrors maps JSON field names to a list of validation error messages.
type FieldErrors map[string][]string

// ValidationError satisfies httpx.DomainProblem structurally, so httpx.ToProblem can
// format it without this package importing httpx.
type ValidationError struct {
	summary string
	fields  FieldErrors
}

func (e *ValidationError) Error() string { return e.summary }

// Fields returns the per-field messages.
func (e *ValidationError) Fields() FieldErrors { return e.fields }

func (e *ValidationError) ProblemCode() string    { return "ErrValidation" }
func (e *ValidationError) ProblemStatus() int     { return 400 }
func (e *ValidationError) ProblemTitle() string   { return "Validation error" }
func (e *ValidationError) ProblemDetail() string  { return e.summary }
func (e *ValidationError) ProblemTypeURI() string { return "urn:problem:validation-error" }
func (e *ValidationError) ProblemContext() any    { return map[string]any{"fields": e.fields} }

var (
	once     sync.Once
	instance *validator.Validate
)

func get() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())

		// Report JSON tag names instead of struct field names.
		instance.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.Split(fld.Tag.Get("json"), ",")[0]
			if name == "" || name == "-" {
				return lowerFirst(fld.Name)
			}
			return name
		})
	})
	return instance
}

// ValidateStruct validates a struct instance according to `validate` tags.
// On failure it returns a *ValidationError whose summary reads like
// "code must be exactly 6 characters, and 1 other error".
func ValidateStruct(v any) error {
	err := get().Struct(v)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &ValidationError{summary: "validation failed", fields: FieldErrors{}}
	}

	fields := make(FieldErrors)
	var order []string
	for _, fe := range verrs {
		field := fe.Field()
		if _, seen := fields[field]; !seen {
			order = append(order, field)
		}
		fields[field] = append(fields[field], messageForTag(fe))
	}
	return &ValidationError{summary: summarize(order, fields), fields: fields}
}

func messageForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "numeric":
		return "must contain digits only"
	case "alphanum":
		return "must contain letters and digits only"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "eqfield":
		return fmt.Sprintf("must match %s", lowerFirst(fe.Param()))
	case "nefield":
		return fmt.Sprintf("must differ from %s", lowerFirst(fe.Param()))
	default:
		return "is invalid"
	}
}

// summarize names the first failing field and counts the rest.
func summarize(order []string, fields FieldErrors) string {
	if len(order) == 0 {
		return "validation failed"
	}
	firstField := order[0]
	if firstField == "email" && fields["email"][0] == "must be a valid email" {
		return withOthers("invalid email", totalCount(fields)-1)
	}
	return withOthers(firstField+" "+fields[firstField][0], totalCount(fields)-1)
}

func withOthers(head string, others int) string {
	switch {
	case others <= 0:
		return head
	case others == 1:
		return head + ", and 1 other error"
	default:
		return fmt.Sprintf("%s, and %d other errors", head, others)
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = []rune(strings.ToLower(string(r[0])))[0]
	return string(r)
}

func totalCount(m FieldErrors) int {
	n := 0
	for _, list := range m {
		n += len(list)
	}
	return n
}

