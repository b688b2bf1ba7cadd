package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"driva/apperr"
	"driva/dispute"
	"driva/requestctx"
	"driva/storage"
)

// maxSubmissionBytes bounds the whole multipart submission; individual files
// are still checked against the evidence size limit downstream.
const maxSubmissionBytes = 10 * storage.MaxEvidenceSize

// handleDisputeSubmit accepts a multipart form: repeated fine_ids fields, a
// reason field, and zero or more evidence file parts.
func (s *Server) handleDisputeSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxSubmissionBytes); err != nil {
		writeError(w, fmt.Errorf("httpapi: invalid multipart form: %w", apperr.ErrValidation))
		return
	}

	fineIDs := r.MultipartForm.Value["fine_ids"]
	if len(fineIDs) == 1 && strings.Contains(fineIDs[0], ",") {
		fineIDs = strings.Split(fineIDs[0], ",")
		for i := range fineIDs {
			fineIDs[i] = strings.TrimSpace(fineIDs[i])
		}
	}

	var evidence []dispute.EvidenceFile
	for _, header := range r.MultipartForm.File["evidence"] {
		f, err := header.Open()
		if err != nil {
			writeError(w, fmt.Errorf("httpapi: unreadable evidence part %q: %w", header.Filename, apperr.ErrValidation))
			return
		}
		defer f.Close()
		evidence = append(evidence, dispute.EvidenceFile{
			Filename: header.Filename,
			Size:     header.Size,
			Content:  f,
		})
	}

	records, err := s.disputes.Submit(r.Context(), dispute.SubmitParams{
		CitizenID: requestctx.UserID(r.Context()),
		FineIDs:   fineIDs,
		Reason:    r.FormValue("reason"),
		Evidence:  evidence,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":  "dispute submitted",
		"disputes": toDisputeViews(records),
	})
}

type resolveDisputeRequest struct {
	Decision string `json:"decision"`
	Notes    string `json:"notes,omitempty"`
}

func (s *Server) handleDisputeResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveDisputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("httpapi: invalid request body: %w", apperr.ErrValidation))
		return
	}

	resolved, err := s.disputes.Resolve(r.Context(), dispute.ResolveParams{
		FineID:    chi.URLParam(r, "fineID"),
		OfficerID: requestctx.UserID(r.Context()),
		Decision:  dispute.Decision(req.Decision),
		Notes:     req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "dispute resolved",
		"dispute": toDisputeView(resolved),
	})
}

func (s *Server) handleDisputeList(w http.ResponseWriter, r *http.Request) {
	records, err := s.disputes.List(r.Context(), requestctx.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"disputes": toDisputeViews(records)})
}

func (s *Server) handleDisputeGet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.disputes.Get(r.Context(), requestctx.UserID(r.Context()), chi.URLParam(r, "disputeID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dispute": toDisputeView(rec)})
}
