package auth

import (
	"llm-stock-prediction/internal/common/validation"
)

const (
	usernamePattern   = `^[A-Za-z0-9@.+_-]+$`
	minUsernameLength = 3
	maxUsernameLength = 150
	minPasswordLength = 8
)

func GetSignupSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"username", "password1", "password2"},
		Properties: map[string]validation.Property{
			"username": {
				Type:        "string",
				Description: "Letters, digits and @/./+/-/_ only",
				MinLength:   validation.IntPtr(minUsernameLength),
				MaxLength:   validation.IntPtr(maxUsernameLength),
				Pattern:     validation.StringPtr(usernamePattern),
			},
			"password1": {
				Type:        "string",
				Description: "Password",
				MinLength:   validation.IntPtr(minPasswordLength),
			},
			"password2": {
				Type:        "string",
				Description: "Password confirmation",
				MinLength:   validation.IntPtr(1),
			},
		},
		AdditionalProperties: false,
	}
}

func GetLoginSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"username", "password"},
		Properties: map[string]validation.Property{
			"username": {
				Type:      "string",
				MinLength: validation.IntPtr(1),
				MaxLength: validation.IntPtr(maxUsernameLength),
			},
			"password": {
				Type:      "string",
				MinLength: validation.IntPtr(1),
			},
		},
		AdditionalProperties: false,
	}
}

var (
	signupValidator = validation.MustCompile(GetSignupSchema())
	loginValidator  = validation.MustCompile(GetLoginSchema())
)

const (
	msgRequired         = "This field is required."
	msgUsernameInvalid  = "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	msgUsernameLength   = "Ensure this value has between 3 and 150 characters."
	msgPasswordShort    = "This password is too short. It must contain at least 8 characters."
	msgPasswordNumeric  = "This password is entirely numeric."
	msgPasswordMismatch = "The two password fields didn't match."
)

// fieldMessage turns a schema violation into form text. Empty values are
// reported as missing regardless of which keyword tripped.
func fieldMessage(field string, value string, e validation.ValidationError) string {
	if value == "" || e.Code == "required" {
		return msgRequired
	}
	switch field {
	case "username":
		if e.Code == "pattern" {
			return msgUsernameInvalid
		}
		return msgUsernameLength
	case "password1":
		return msgPasswordShort
	}
	return e.Message
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
