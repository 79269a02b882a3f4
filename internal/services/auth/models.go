package auth

import (
	"llm-stock-prediction/internal/common/logger"
	"llm-stock-prediction/internal/models"
)

// SignupInput mirrors the signup form.
type SignupInput struct {
	Username  string `json:"username"`
	Password1 string `json:"password1"`
	Password2 string `json:"password2"`
	UserAgent string `json:"-"`
	IPAddress string `json:"-"`
}

// LoginInput mirrors the login form.
type LoginInput struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	UserAgent string `json:"-"`
	IPAddress string `json:"-"`
}

// Output is a signed-in user and the session created for them.
type Output struct {
	User    *models.User
	Session *models.Session
}

// FieldErrors maps form field names to human readable messages. The empty
// key holds errors that do not belong to one field.
type FieldErrors map[string][]string

func (f FieldErrors) add(field, msg string) {
	f[field] = append(f[field], msg)
}

type ServiceDependencies struct {
	Logger   logger.Logger
	Users    models.UserRepository
	Sessions models.SessionRepository
}
