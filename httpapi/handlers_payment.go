package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"driva/apperr"
	"driva/payment"
	"driva/requestctx"
)

type payRequest struct {
	FineIDs []string `json:"fine_ids"`
	Method  string   `json:"method"`
}

func (s *Server) handlePay(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("httpapi: invalid request body: %w", apperr.ErrValidation))
		return
	}

	count, err := s.payments.Pay(r.Context(), payment.PayParams{
		PayerID: requestctx.UserID(r.Context()),
		FineIDs: req.FineIDs,
		Method:  req.Method,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "payment successful",
		"fines_paid": count,
	})
}

func (s *Server) handlePaymentHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.payments.History(r.Context(), requestctx.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"payments": toPaymentViews(records)})
}
