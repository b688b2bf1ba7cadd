package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"driva/apperr"
	"driva/auth"
	"driva/fine"
	"driva/requestctx"
)

type issueFineRequest struct {
	CitizenID     string    `json:"citizen_id"`
	ViolationType string    `json:"violation_type"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency,omitempty"`
	Location      string    `json:"location,omitempty"`
	DueAt         time.Time `json:"due_at,omitempty"`
}

func (s *Server) handleFineIssue(w http.ResponseWriter, r *http.Request) {
	var req issueFineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("httpapi: invalid request body: %w", apperr.ErrValidation))
		return
	}

	rec, err := s.fines.Issue(r.Context(), fine.IssueParams{
		OfficerID:     requestctx.UserID(r.Context()),
		CitizenID:     req.CitizenID,
		ViolationType: req.ViolationType,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Location:      req.Location,
		DueAt:         req.DueAt,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "fine issued",
		"fine":    toFineView(rec),
	})
}

// handleFineList returns the caller's own fines for citizens and the fines
// the caller issued for officers.
func (s *Server) handleFineList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := fine.Status(r.URL.Query().Get("status"))
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 20)

	var (
		result fine.ListResult
		err    error
	)
	switch requestctx.Role(ctx) {
	case string(auth.RoleCitizen):
		result, err = s.fines.ListForCitizen(ctx, requestctx.UserID(ctx), status, page, pageSize)
	default:
		result, err = s.fines.ListIssuedBy(ctx, requestctx.UserID(ctx), status, page, pageSize)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"fines": toFineViews(result.Items),
		"total": result.Total,
		"page":  page,
	})
}

func (s *Server) handleFineGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rec, err := s.fines.Get(ctx, requestctx.UserID(ctx), requestctx.Role(ctx), chi.URLParam(r, "fineID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"fine": toFineView(rec)})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
