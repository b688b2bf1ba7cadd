package httpapi

import (
	"time"

	"driva/department"
	"driva/dispute"
	"driva/fine"
	"driva/payment"
)

type fineView struct {
	ID            string    `json:"id"`
	CitizenID     string    `json:"citizen_id"`
	OfficerID     string    `json:"officer_id"`
	ViolationType string    `json:"violation_type"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	Location      string    `json:"location,omitempty"`
	IssuedAt      time.Time `json:"issued_at"`
	DueAt         time.Time `json:"due_at"`
	Status        string    `json:"status"`
}

func toFineView(f fine.Fine) fineView {
	return fineView{
		ID:            f.ID,
		CitizenID:     f.CitizenID,
		OfficerID:     f.OfficerID,
		ViolationType: f.ViolationType,
		Amount:        f.Amount,
		Currency:      f.Currency,
		Location:      f.Location,
		IssuedAt:      f.IssuedAt,
		DueAt:         f.DueAt,
		Status:        string(f.Status),
	}
}

func toFineViews(fines []fine.Fine) []fineView {
	out := make([]fineView, 0, len(fines))
	for _, f := range fines {
		out = append(out, toFineView(f))
	}
	return out
}

type disputeView struct {
	ID           string     `json:"id"`
	FineID       string     `json:"fine_id"`
	CitizenID    string     `json:"citizen_id"`
	Reason       string     `json:"reason"`
	EvidenceURLs []string   `json:"evidence_urls"`
	Status       string     `json:"status"`
	SubmittedAt  time.Time  `json:"submitted_at"`
	ReviewedBy   *string    `json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`
	OfficerNotes *string    `json:"officer_notes,omitempty"`
}

func toDisputeView(d dispute.Record) disputeView {
	return disputeView{
		ID:           d.ID,
		FineID:       d.FineID,
		CitizenID:    d.CitizenID,
		Reason:       d.Reason,
		EvidenceURLs: d.EvidenceURLs,
		Status:       string(d.Status),
		SubmittedAt:  d.SubmittedAt,
		ReviewedBy:   d.ReviewedBy,
		ReviewedAt:   d.ReviewedAt,
		OfficerNotes: d.OfficerNotes,
	}
}

func toDisputeViews(records []dispute.Record) []disputeView {
	out := make([]disputeView, 0, len(records))
	for _, d := range records {
		out = append(out, toDisputeView(d))
	}
	return out
}

type paymentView struct {
	ID            string    `json:"id"`
	FineID        string    `json:"fine_id"`
	Amount        float64   `json:"amount"`
	Method        string    `json:"method"`
	Status        string    `json:"status"`
	TransactionID string    `json:"transaction_id"`
	PaidAt        time.Time `json:"paid_at"`
}

func toPaymentViews(records []payment.Record) []paymentView {
	out := make([]paymentView, 0, len(records))
	for _, p := range records {
		out = append(out, paymentView{
			ID:            p.ID,
			FineID:        p.FineID,
			Amount:        p.Amount,
			Method:        p.Method,
			Status:        p.Status,
			TransactionID: p.TransactionID,
			PaidAt:        p.PaidAt,
		})
	}
	return out
}

type registrationView struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Region       string     `json:"region"`
	District     string     `json:"district,omitempty"`
	Address      string     `json:"address,omitempty"`
	ContactEmail string     `json:"contact_email"`
	Status       string     `json:"status"`
	SubmittedAt  time.Time  `json:"submitted_at"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`
}

func toRegistrationView(reg department.Registration) registrationView {
	return registrationView{
		ID:           reg.ID,
		Name:         reg.Name,
		Region:       reg.Region,
		District:     reg.District,
		Address:      reg.Address,
		ContactEmail: reg.ContactEmail,
		Status:       string(reg.Status),
		SubmittedAt:  reg.SubmittedAt,
		ReviewedAt:   reg.ReviewedAt,
	}
}

func toRegistrationViews(regs []department.Registration) []registrationView {
	out := make([]registrationView, 0, len(regs))
	for _, reg := range regs {
		out = append(out, toRegistrationView(reg))
	}
	return out
}
