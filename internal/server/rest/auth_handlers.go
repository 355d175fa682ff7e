package rest

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

type registerRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required"`
	FullName *string `json:"full_name"`
}

type loginForm struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type facebookLoginRequest struct {
	AccessToken string `json:"access_token"`
}

type googleLoginRequest struct {
	Credential string `json:"credential"`
}

func (s *Server) issued(w http.ResponseWriter, event, token string) {
	s.deps.Recorder.AuthEvent(event, "success")
	writeJSON(w, http.StatusOK, tokenBody{AccessToken: token, TokenType: common.TokenTypeBearer})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, validationDetail(err))
		return
	}
	if err := s.check(req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, validationDetail(err))
		return
	}

	token, err := s.deps.Auth.Register(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		s.deps.Recorder.AuthEvent("register", "failure")
		if errors.Is(err, common.ErrorConflict) {
			s.fail(w, r, err, http.StatusBadRequest, "Email already registered")
			return
		}
		s.fail(w, r, err, http.StatusInternalServerError, detailInternal)
		return
	}

	s.issued(w, "register", token)
}

// login reads an OAuth2 password-grant style form.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid form body")
		return
	}
	form := loginForm{Username: r.PostForm.Get("username"), Password: r.PostForm.Get("password")}
	if err := s.check(form); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, validationDetail(err))
		return
	}

	token, err := s.deps.Auth.Login(r.Context(), form.Username, form.Password)
	if err != nil {
		s.deps.Recorder.AuthEvent("login", "failure")
		if errors.Is(err, common.ErrorUnauthorized) {
			s.fail(w, r, err, http.StatusUnauthorized, "Incorrect email or password")
			return
		}
		s.fail(w, r, err, http.StatusInternalServerError, detailInternal)
		return
	}

	s.issued(w, "login", token)
}

func (s *Server) facebookLogin(w http.ResponseWriter, r *http.Request) {
	var req facebookLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.logger.Debug(r.Context(), "malformed federated login body", "provider", "facebook", "error", err)
	}
	s.federated(w, r, "facebook", req.AccessToken)
}

func (s *Server) googleLogin(w http.ResponseWriter, r *http.Request) {
	var req googleLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.logger.Debug(r.Context(), "malformed federated login body", "provider", "google", "error", err)
	}
	s.federated(w, r, "google", req.Credential)
}

// federated collapses every failure, including a missing token, into one
// 401. Only an unconfigured provider is reported differently.
func (s *Server) federated(w http.ResponseWriter, r *http.Request, provider, providerToken string) {
	event := provider + "_login"
	if providerToken == "" {
		s.deps.Recorder.AuthEvent(event, "failure")
		writeUnauthorized(w, detailInvalidCredentials)
		return
	}

	token, err := s.deps.Auth.FederatedLogin(r.Context(), provider, providerToken)
	if err != nil {
		s.deps.Recorder.AuthEvent(event, "failure")
		if errors.Is(err, common.ErrorNotFound) {
			s.fail(w, r, err, http.StatusNotFound, provider+" login is not enabled")
			return
		}
		s.fail(w, r, err, http.StatusUnauthorized, detailInvalidCredentials)
		return
	}

	s.issued(w, event, token)
}

// logout revokes whatever bearer string it is given; validity is not
// checked.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		writeUnauthorized(w, "Not authenticated")
		return
	}

	if err := s.deps.Auth.Logout(r.Context(), token); err != nil {
		s.deps.Recorder.AuthEvent("logout", "failure")
		s.fail(w, r, err, http.StatusInternalServerError, "Could not blacklist token")
		return
	}

	s.deps.Recorder.AuthEvent("logout", "success")
	writeJSON(w, http.StatusOK, messageBody{Message: "Successfully logged out"})
}
