// Package auth signs users up, in and out and resolves session cookies.
package auth

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"llm-stock-prediction/internal/common/errors"
	"llm-stock-prediction/internal/common/logger"
	"llm-stock-prediction/internal/common/metrics"
	"llm-stock-prediction/internal/models"
	"llm-stock-prediction/internal/store"

	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	config   *Config
	logger   logger.Logger
	users    models.UserRepository
	sessions models.SessionRepository
	now      func() time.Time

	// compared against for unknown usernames so both rejections cost the same
	dummyHash []byte
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	if config == nil {
		config = DefaultConfig()
	}
	dummyHash, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), config.BcryptCost)
	return &Service{
		config:    config,
		logger:    deps.Logger.WithFields(map[string]interface{}{"service": "auth"}),
		users:     deps.Users,
		sessions:  deps.Sessions,
		now:       time.Now,
		dummyHash: dummyHash,
	}
}

// ValidateSignup checks the signup form and returns per-field errors, or nil.
func ValidateSignup(input *SignupInput) FieldErrors {
	fe := FieldErrors{}
	values := map[string]string{
		"username":  input.Username,
		"password1": input.Password1,
		"password2": input.Password2,
	}

	res := signupValidator.Validate(input)
	for _, e := range res.Errors {
		fe.add(e.Field, fieldMessage(e.Field, values[e.Field], e))
	}

	if input.Password1 != "" && input.Password2 != "" && input.Password1 != input.Password2 {
		fe.add("password2", msgPasswordMismatch)
	}
	if isAllDigits(input.Password1) && len(fe["password1"]) == 0 {
		fe.add("password1", msgPasswordNumeric)
	}

	if len(fe) == 0 {
		return nil
	}
	for k, msgs := range fe {
		fe[k] = dedupe(msgs)
	}
	return fe
}

// Register validates input and creates the user without signing them in.
func (s *Service) Register(ctx context.Context, input *SignupInput) (*models.User, error) {
	input.Username = strings.TrimSpace(input.Username)

	if fe := ValidateSignup(input); fe != nil {
		metrics.AuthEventsTotal.WithLabelValues("signup", "invalid").Inc()
		return nil, validationError(fe)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password1), s.config.BcryptCost)
	if err != nil {
		metrics.AuthEventsTotal.WithLabelValues("signup", "error").Inc()
		return nil, errors.NewInternalError(fmt.Errorf("hash password: %w", err))
	}

	user := &models.User{
		Username:     input.Username,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if stderrors.Is(err, store.ErrUsernameTaken) {
			metrics.AuthEventsTotal.WithLabelValues("signup", "invalid").Inc()
			return nil, errors.NewUsernameTakenError(input.Username).
				WithMetadata("fieldErrors", FieldErrors{"username": {"A user with that username already exists."}})
		}
		metrics.AuthEventsTotal.WithLabelValues("signup", "error").Inc()
		return nil, errors.NewQueryExecutionFailedError("create_user", err)
	}

	s.logger.Info("User registered", map[string]interface{}{
		"userId":   user.ID,
		"username": user.Username,
	})
	return user, nil
}

// Signup registers the user and signs them in.
func (s *Service) Signup(ctx context.Context, input *SignupInput) (*Output, error) {
	user, err := s.Register(ctx, input)
	if err != nil {
		return nil, err
	}

	session, err := s.startSession(ctx, user, input.UserAgent, input.IPAddress)
	if err != nil {
		metrics.AuthEventsTotal.WithLabelValues("signup", "error").Inc()
		return nil, err
	}

	metrics.AuthEventsTotal.WithLabelValues("signup", "ok").Inc()
	return &Output{User: user, Session: session}, nil
}

// Login verifies credentials and opens a new session. Unknown users and
// wrong passwords produce the same error.
func (s *Service) Login(ctx context.Context, input *LoginInput) (*Output, error) {
	input.Username = strings.TrimSpace(input.Username)

	if res := loginValidator.Validate(input); !res.Valid {
		fe := FieldErrors{}
		values := map[string]string{"username": input.Username, "password": input.Password}
		for _, e := range res.Errors {
			fe.add(e.Field, fieldMessage(e.Field, values[e.Field], e))
		}
		metrics.AuthEventsTotal.WithLabelValues("login", "invalid").Inc()
		return nil, validationError(fe)
	}

	user, err := s.users.FindByUsername(ctx, input.Username)
	switch {
	case stderrors.Is(err, store.ErrNotFound):
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(input.Password))
		metrics.AuthEventsTotal.WithLabelValues("login", "rejected").Inc()
		return nil, errors.NewAuthenticationError()
	case err != nil:
		metrics.AuthEventsTotal.WithLabelValues("login", "error").Inc()
		return nil, errors.NewQueryExecutionFailedError("find_user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		s.logger.Info("Login rejected", map[string]interface{}{"username": input.Username})
		metrics.AuthEventsTotal.WithLabelValues("login", "rejected").Inc()
		return nil, errors.NewAuthenticationError()
	}

	session, err := s.startSession(ctx, user, input.UserAgent, input.IPAddress)
	if err != nil {
		metrics.AuthEventsTotal.WithLabelValues("login", "error").Inc()
		return nil, err
	}

	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("Failed to update last login", map[string]interface{}{
			"userId": user.ID,
			"error":  err.Error(),
		})
	} else {
		user.LastLogin = &now
	}

	metrics.AuthEventsTotal.WithLabelValues("login", "ok").Inc()
	s.logger.Info("User logged in", map[string]interface{}{"userId": user.ID})
	return &Output{User: user, Session: session}, nil
}

// Logout ends the session behind token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	session, err := s.sessions.FindByToken(ctx, token)
	if stderrors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return errors.NewCacheOperationFailedError("find_session", err)
	}
	if err := s.sessions.Delete(ctx, session); err != nil {
		return errors.NewCacheOperationFailedError("delete_session", err)
	}

	metrics.AuthEventsTotal.WithLabelValues("logout", "ok").Inc()
	s.logger.Info("User logged out", map[string]interface{}{
		"userId":    session.UserID,
		"sessionId": session.ID,
	})
	return nil
}

// LogoutAll ends every session of the user.
func (s *Service) LogoutAll(ctx context.Context, userID string) error {
	if err := s.sessions.DeleteAllForUser(ctx, userID); err != nil {
		return errors.NewCacheOperationFailedError("delete_user_sessions", err)
	}
	metrics.AuthEventsTotal.WithLabelValues("logout_all", "ok").Inc()
	s.logger.Info("All sessions invalidated", map[string]interface{}{"userId": userID})
	return nil
}

// Authenticate resolves a session token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, *models.Session, error) {
	if token == "" {
		return nil, nil, errors.NewUnauthorizedError()
	}

	session, err := s.sessions.FindByToken(ctx, token)
	if stderrors.Is(err, store.ErrNotFound) {
		return nil, nil, errors.NewUnauthorizedError()
	}
	if err != nil {
		return nil, nil, errors.NewCacheOperationFailedError("find_session", err)
	}
	if session.ExpiresAt.Before(s.now()) {
		_ = s.sessions.Delete(ctx, session)
		return nil, nil, errors.NewUnauthorizedError()
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if stderrors.Is(err, store.ErrNotFound) {
		_ = s.sessions.Delete(ctx, session)
		return nil, nil, errors.NewUnauthorizedError()
	}
	if err != nil {
		return nil, nil, errors.NewQueryExecutionFailedError("find_user", err)
	}
	return user, session, nil
}

func (s *Service) startSession(ctx context.Context, user *models.User, userAgent, ip string) (*models.Session, error) {
	now := s.now().UTC()
	session := &models.Session{
		UserID:    user.ID,
		UserAgent: userAgent,
		IPAddress: ip,
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.SessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, errors.NewCacheOperationFailedError("create_session", err)
	}
	return session, nil
}

func validationError(fe FieldErrors) error {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, strings.Join(fe[f], " ")))
	}
	return errors.NewValidationError(strings.Join(parts, "; ")).WithMetadata("fieldErrors", fe)
}

// FieldErrorsOf extracts form errors attached by Register, Signup or Login.
func FieldErrorsOf(err error) FieldErrors {
	std := errors.Normalize(err)
	if std == nil || std.Metadata == nil {
		return nil
	}
	fe, _ := std.Metadata["fieldErrors"].(FieldErrors)
	return fe
}

func dedupe(msgs []string) []string {
	seen := make(map[string]bool, len(msgs))
	out := msgs[:0]
	for _, m := range msgs {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}
