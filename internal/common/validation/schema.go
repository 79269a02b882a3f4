package validation

import (
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"
)

// JSONSchema defines the structure for input schemas
type JSONSchema struct {
	Type                 string              `json:"type"`
	Properties           map[string]Property `json:"properties"`
	Required             []string            `json:"required,omitempty"`
	AdditionalProperties bool                `json:"additionalProperties"`
}

type Property struct {
	Type        string  `json:"type"`
	Description string  `json:"description,omitempty"`
	Pattern     *string `json:"pattern,omitempty"`
	MinLength   *int    `json:"minLength,omitempty"`
	MaxLength   *int    `json:"maxLength,omitempty"`
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Validator holds a compiled schema and can be shared across goroutines.
type Validator struct {
	schema *gojsonschema.Schema
}

// Compile prepares schema for repeated validation.
func Compile(schema JSONSchema) (*Validator, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: compiled}, nil
}

// MustCompile is Compile for package-level schemas.
func MustCompile(schema JSONSchema) *Validator {
	v, err := Compile(schema)
	if err != nil {
		panic(err)
	}
	return v
}

// Validate checks input and returns every violation, ordered by field.
func (v *Validator) Validate(input interface{}) *ValidationResult {
	result, err := v.schema.Validate(gojsonschema.NewGoLoader(input))
	if err != nil {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "(root)",
				Message: err.Error(),
				Code:    "INVALID_DOCUMENT",
			}},
		}
	}
	return convert(result)
}

func convert(result *gojsonschema.Result) *ValidationResult {
	if result.Valid() {
		return &ValidationResult{Valid: true}
	}

	errs := make([]ValidationError, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		field := re.Field()
		if re.Type() == "required" {
			if p, ok := re.Details()["property"].(string); ok {
				field = p
			}
		}
		if re.Type() == "additional_property_not_allowed" {
			if p, ok := re.Details()["property"].(string); ok {
				field = p
			}
		}
		errs = append(errs, ValidationError{
			Field:   field,
			Message: re.Description(),
			Code:    re.Type(),
		})
	}
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })

	return &ValidationResult{Valid: false, Errors: errs}
}

// IntPtr and StringPtr help build Property literals.
func IntPtr(v int) *int { return &v }

func StringPtr(v string) *string { return &v }
