package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"driva/apperr"
	"driva/auth"
)

type userView struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

func toUserView(u *auth.User) userView {
	return userView{
		ID:       u.ID,
		Email:    u.Email,
		FullName: u.FullName,
		Role:     string(u.Role),
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("httpapi: invalid request body: %w", apperr.ErrValidation))
		return
	}

	user, err := s.accounts.Register(r.Context(), req)
	if err != nil {
		s.logger.WarnContext(r.Context(), "registration rejected", "email", req.Email, "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "registration successful",
		"user":    toUserView(user),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("httpapi: invalid request body: %w", apperr.ErrValidation))
		return
	}

	result, err := s.accounts.Login(r.Context(), req)
	if err != nil {
		s.logger.WarnContext(r.Context(), "login failed", "email", req.Email)
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error":   "unauthorized",
			"message": "invalid email or password",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": result.Token,
		"user":  toUserView(&result.User),
	})
}
