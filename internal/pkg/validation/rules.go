package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// Validation rule patterns
var (
	// Course tag pattern, e.g. "CSE 240" or "CHEM-201L"
	CourseTagPattern = `^[A-Za-z0-9][A-Za-z0-9 .\-]*$`

	CourseNameMaxLength  = 120
	CourseTagMaxLength   = 32
	DescriptionMaxLength = 2000
	PostTitleMaxLength   = 200
	PostContentMaxLength = 20000
)

// CompiledPatterns caches compiled regex patterns
var CompiledPatterns = struct {
	CourseTag *regexp.Regexp
}{
	CourseTag: regexp.MustCompile(CourseTagPattern),
}

// RegisterRules adds the custom tags used by request DTOs to v
func RegisterRules(v *validator.Validate) error {
	return v.RegisterValidation("coursetag", func(fl validator.FieldLevel) bool {
		return NewStringValidation(fl.Field().String()).
			WithMaxLength(CourseTagMaxLength).
			WithPattern(CompiledPatterns.CourseTag).
			Validate()
	})
}

// StringValidation checks a single string value
type StringValidation struct {
	Value    string
	MinLen   int
	MaxLen   int
	Required bool
	Pattern  *regexp.Regexp
}

// NewStringValidation creates a new string validation. Values are trimmed.
func NewStringValidation(value string) *StringValidation {
	return &StringValidation{
		Value:    strings.TrimSpace(value),
		Required: true,
	}
}

// WithMinLength sets minimum length
func (v *StringValidation) WithMinLength(min int) *StringValidation {
	v.MinLen = min
	return v
}

// WithMaxLength sets maximum length
func (v *StringValidation) WithMaxLength(max int) *StringValidation {
	v.MaxLen = max
	return v
}

// WithPattern sets regex pattern
func (v *StringValidation) WithPattern(pattern *regexp.Regexp) *StringValidation {
	v.Pattern = pattern
	return v
}

// WithRequired sets if field is required
func (v *StringValidation) WithRequired(required bool) *StringValidation {
	v.Required = required
	return v
}

// Validate performs validation. Lengths count runes.
func (v *StringValidation) Validate() bool {
	if v.Value == "" {
		return !v.Required
	}

	n := utf8.RuneCountInString(v.Value)
	if v.MinLen > 0 && n < v.MinLen {
		return false
	}
	if v.MaxLen > 0 && n > v.MaxLen {
		return false
	}

	if v.Pattern != nil && !v.Pattern.MatchString(v.Value) {
		return false
	}

	return true
}
