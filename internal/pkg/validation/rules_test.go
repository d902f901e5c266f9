package validation

import (
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringValidation(t *testing.T) {
	tests := []struct {
		name string
		v    *StringValidation
		want bool
	}{
		{"required empty", NewStringValidation("   "), false},
		{"optional empty", NewStringValidation("").WithRequired(false), true},
		{"too short", NewStringValidation("a").WithMinLength(2), false},
		{"too long", NewStringValidation(strings.Repeat("x", 5)).WithMaxLength(4), false},
		{"runes not bytes", NewStringValidation("çğüş").WithMaxLength(4), true},
		{"pattern mismatch", NewStringValidation("#tag").WithPattern(CompiledPatterns.CourseTag), false},
		{"pattern match", NewStringValidation("CSE 240").WithPattern(CompiledPatterns.CourseTag), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.Validate())
		})
	}
}

func TestRegisterRules_CourseTag(t *testing.T) {
	v := validator.New()
	require.NoError(t, RegisterRules(v))

	type req struct {
		Tag string `validate:"required,coursetag"`
	}

	assert.NoError(t, v.Struct(req{Tag: "CHEM 201"}))
	assert.NoError(t, v.Struct(req{Tag: "MAT-101L"}))
	assert.Error(t, v.Struct(req{Tag: "<script>"}))
	assert.Error(t, v.Struct(req{Tag: strings.Repeat("A", 40)}))
}
