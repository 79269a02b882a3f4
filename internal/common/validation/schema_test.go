package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var loginSchema = JSONSchema{
	Type: "object",
	Properties: map[string]Property{
		"username": {Type: "string", MinLength: IntPtr(3), MaxLength: IntPtr(10), Pattern: StringPtr(`^[a-z]+$`)},
		"password": {Type: "string", MinLength: IntPtr(8)},
	},
	Required: []string{"username", "password"},
}

func TestValidator_Validate(t *testing.T) {
	v := MustCompile(loginSchema)

	tests := []struct {
		name       string
		input      map[string]interface{}
		valid      bool
		wantFields []string
	}{
		{
			name:  "valid",
			input: map[string]interface{}{"username": "alice", "password": "longenough"},
			valid: true,
		},
		{
			name:       "missing required",
			input:      map[string]interface{}{"username": "alice"},
			wantFields: []string{"password"},
		},
		{
			name:       "too short and bad pattern",
			input:      map[string]interface{}{"username": "A1", "password": "longenough"},
			wantFields: []string{"username", "username"},
		},
		{
			name:       "extra field rejected",
			input:      map[string]interface{}{"username": "alice", "password": "longenough", "x": 1},
			wantFields: []string{"x"},
		},
		{
			name:       "wrong type",
			input:      map[string]interface{}{"username": 12, "password": "longenough"},
			wantFields: []string{"username"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.Validate(tt.input)
			assert.Equal(t, tt.valid, res.Valid, "%v", res.Errors)
			got := make([]string, 0, len(res.Errors))
			for _, e := range res.Errors {
				got = append(got, e.Field)
			}
			if tt.valid {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.wantFields, got)
		})
	}
}

func TestValidator_ErrorCodes(t *testing.T) {
	v := MustCompile(loginSchema)

	res := v.Validate(map[string]interface{}{"username": "bob", "password": "short"})
	require.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "password", res.Errors[0].Field)
	assert.Equal(t, "string_gte", res.Errors[0].Code)
	assert.NotEmpty(t, res.Errors[0].Message)
}

func TestValidator_StructInput(t *testing.T) {
	type form struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	v := MustCompile(loginSchema)
	assert.True(t, v.Validate(form{Username: "carol", Password: "12345678"}).Valid)
	assert.False(t, v.Validate(form{Username: "carol"}).Valid)
}

func TestCompile_InvalidPattern(t *testing.T) {
	_, err := Compile(JSONSchema{
		Type:       "object",
		Properties: map[string]Property{"a": {Type: "string", Pattern: StringPtr("(")}},
	})
	assert.Error(t, err)

	assert.Panics(t, func() {
		MustCompile(JSONSchema{
			Type:       "object",
			Properties: map[string]Property{"a": {Type: "string", Pattern: StringPtr("(")}},
		})
	})
}
