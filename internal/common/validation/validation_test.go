package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema_ValidateInput(t *testing.T) {
	schema := TriggerSchema

	tests := []struct {
		name      string
		input     interface{}
		wantValid bool
		wantField string
	}{
		{name: "valid map", input: map[string]interface{}{"applicationId": 12}, wantValid: true},
		{name: "valid bytes", input: []byte(`{"applicationId": 3}`), wantValid: true},
		{name: "missing id", input: map[string]interface{}{}, wantValid: false},
		{name: "zero id", input: []byte(`{"applicationId": 0}`), wantValid: false, wantField: "applicationId"},
		{name: "fractional id", input: []byte(`{"applicationId": 1.5}`), wantValid: false, wantField: "applicationId"},
		{name: "string id", input: `{"applicationId": "12"}`, wantValid: false, wantField: "applicationId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := schema.ValidateInput(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, result.Valid, result.GetErrorMessages())
			if tt.wantField != "" {
				assert.True(t, result.HasErrors(tt.wantField), result.GetErrorMessages())
			}
		})
	}
}

func TestCompileSchema_Invalid(t *testing.T) {
	_, err := CompileSchema(`{"type": 12}`)
	assert.Error(t, err)
}

type sample struct {
	Email      string   `validate:"required,email"`
	PostalCode string   `validate:"len=7"`
	Contacts   []string `validate:"min=1,dive,oneof=electric gas water"`
}

func TestValidator_Struct(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Struct(sample{Email: "a@example.com", PostalCode: "1600023", Contacts: []string{"electric", "water"}}))

	err := v.Struct(sample{Email: "nope", PostalCode: "160-0023", Contacts: []string{"phone"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sample.Email: email")
	assert.Contains(t, err.Error(), "sample.PostalCode: len=7")
	assert.Contains(t, err.Error(), "sample.Contacts[0]: oneof=electric gas water")
}
