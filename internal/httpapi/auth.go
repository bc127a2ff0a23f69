package httpapi

import (
	"errors"
	"net/http"

	"github.com/avitale/eduassist/internal/auth"
)

type signupRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	cred, err := s.auth.Register(r.Context(), req.Username, req.Password, req.DisplayName)
	switch {
	case errors.Is(err, auth.ErrDuplicateUser):
		respondError(w, http.StatusConflict, "duplicate_user", err.Error())
		return
	case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrBadCredentials):
		respondError(w, http.StatusBadRequest, "invalid_credentials", err.Error())
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, authResponse{
		Username:    cred.Username,
		DisplayName: cred.DisplayName,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	cred, err := s.auth.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrBadCredentials) {
			respondError(w, http.StatusUnauthorized, "bad_credentials", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, authResponse{
		Username:    cred.Username,
		DisplayName: cred.DisplayName,
	})
}
