package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string  `validate:"notblank"`
	Notes *string `validate:"omitempty,notblank"`
	Role  string  `validate:"omitempty,role"`
}

func TestCustomRules(t *testing.T) {
	v := validator.New()
	require.NoError(t, Register(v))

	blank := "   "
	tests := []struct {
		name  string
		in    sample
		valid bool
	}{
		{"ok", sample{Name: "Ana", Role: "Staff"}, true},
		{"blank name", sample{Name: "  \t"}, false},
		{"blank notes", sample{Name: "Ana", Notes: &blank}, false},
		{"unknown role", sample{Name: "Ana", Role: "Pastor"}, false},
		{"lowercase role", sample{Name: "Ana", Role: "admin"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.in)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestRegisterGinValidators(t *testing.T) {
	require.NoError(t, RegisterGinValidators())
	require.NoError(t, RegisterGinValidators())
}
