package web

import (
	"net/http"

	commonerrors "llm-stock-prediction/internal/common/errors"
	"llm-stock-prediction/internal/services/auth"
)

// reloadScript is returned to HTMX requests instead of a redirect.
const reloadScript = "<script>window.location.reload()</script>"

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := &pageData{Title: "Home", User: userFrom(r.Context())}
	s.renderPage(w, r, http.StatusOK, "index", data)
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	data := &pageData{Title: "Sign up", User: userFrom(r.Context())}
	if r.Method == http.MethodGet {
		s.renderPage(w, r, http.StatusOK, "signup", data)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}
	input := &auth.SignupInput{
		Username:  r.PostForm.Get("username"),
		Password1: r.PostForm.Get("password1"),
		Password2: r.PostForm.Get("password2"),
		UserAgent: r.UserAgent(),
		IPAddress: clientIP(r),
	}

	out, err := s.auth.Signup(r.Context(), input)
	if err != nil {
		s.renderFormError(w, r, "signup", data, input.Username, err)
		return
	}

	s.setSessionCookie(w, out.Session)
	s.finishAuthRedirect(w, r)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	data := &pageData{Title: "Log in", User: userFrom(r.Context())}
	if r.Method == http.MethodGet {
		s.renderPage(w, r, http.StatusOK, "login", data)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}
	input := &auth.LoginInput{
		Username:  r.PostForm.Get("username"),
		Password:  r.PostForm.Get("password"),
		UserAgent: r.UserAgent(),
		IPAddress: clientIP(r),
	}

	out, err := s.auth.Login(r.Context(), input)
	if err != nil {
		s.renderFormError(w, r, "login", data, input.Username, err)
		return
	}

	// a previous session on this browser is replaced
	if prev := sessionFrom(r.Context()); prev != nil {
		_ = s.auth.Logout(r.Context(), prev.Token)
	}
	s.setSessionCookie(w, out.Session)
	s.finishAuthRedirect(w, r)
}

// handleLogout ends the current session; ?all=1 ends every session of the user.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if session := sessionFrom(ctx); session != nil {
		var err error
		if r.URL.Query().Get("all") == "1" {
			err = s.auth.LogoutAll(ctx, session.UserID)
		} else {
			err = s.auth.Logout(ctx, session.Token)
		}
		if err != nil {
			s.logger.Warn("Logout failed", map[string]interface{}{
				"userId": session.UserID,
				"error":  err.Error(),
			})
		}
	}
	s.clearSessionCookie(w)
	s.finishAuthRedirect(w, r)
}

func (s *Server) finishAuthRedirect(w http.ResponseWriter, r *http.Request) {
	if isHTMX(r) {
		_ = writeHTML(w, http.StatusOK, []byte(reloadScript))
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// renderFormError redisplays a form with its errors. Only storage failures
// change the status code.
func (s *Server) renderFormError(w http.ResponseWriter, r *http.Request, page string, data *pageData, username string, err error) {
	std := commonerrors.Normalize(err)
	data.Form = map[string]string{"username": username}
	data.Errors = auth.FieldErrorsOf(err)
	if data.Errors == nil {
		data.Errors = auth.FieldErrors{}
	}

	status := http.StatusOK
	switch std.Code {
	case commonerrors.ErrCodeValidationFailed, commonerrors.ErrCodeUsernameTaken:
	case commonerrors.ErrCodeAuthenticationFailed:
		data.Errors[""] = append(data.Errors[""],
			std.Message+" Note that both fields may be case-sensitive.")
	default:
		status = commonerrors.HTTPStatus(std.Code)
		data.Error = "Something went wrong. Please try again."
		s.logger.Error("Auth request failed", map[string]interface{}{
			"page":      page,
			"errorCode": string(std.Code),
			"details":   std.Details,
		})
	}
	s.renderPage(w, r, status, page, data)
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, name string, data *pageData) {
	if err := s.views.page(w, status, name, data); err != nil {
		s.logger.Error("Template render failed", map[string]interface{}{
			"template": name,
			"path":     r.URL.Path,
			"error":    err.Error(),
		})
	}
}

func (s *Server) renderFragment(w http.ResponseWriter, r *http.Request, status int, name string, data *pageData) {
	if err := s.views.fragment(w, status, name, data); err != nil {
		s.logger.Error("Template render failed", map[string]interface{}{
			"template": name,
			"path":     r.URL.Path,
			"error":    err.Error(),
		})
	}
}
