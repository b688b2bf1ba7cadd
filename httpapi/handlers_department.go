package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"driva/apperr"
	"driva/department"
)

func (s *Server) handleDepartmentRegister(w http.ResponseWriter, r *http.Request) {
	var req department.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("httpapi: invalid request body: %w", apperr.ErrValidation))
		return
	}

	reg, err := s.departments.Register(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":      "registration submitted for review",
		"registration": toRegistrationView(reg),
	})
}

type reviewRequest struct {
	Decision string `json:"decision"`
}

func (s *Server) handleDepartmentReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("httpapi: invalid request body: %w", apperr.ErrValidation))
		return
	}

	reg, err := s.departments.Review(r.Context(), chi.URLParam(r, "registrationID"), department.Status(req.Decision))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "registration reviewed",
		"registration": toRegistrationView(reg),
	})
}

func (s *Server) handleDepartmentPending(w http.ResponseWriter, r *http.Request) {
	regs, err := s.departments.ListPending(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"registrations": toRegistrationViews(regs)})
}

func (s *Server) handleDepartmentGet(w http.ResponseWriter, r *http.Request) {
	reg, err := s.departments.Get(r.Context(), chi.URLParam(r, "registrationID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"registration": toRegistrationView(reg)})
}
