package dispute

import "time"

// Status represents the lifecycle of a dispute record.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Decision is an officer's verdict on a pending dispute.
type Decision string

const (
	DecisionApproved Decision = "Approved"
	DecisionRejected Decision = "Rejected"
)

// MaxReasonLength bounds the citizen's free-text reason.
const MaxReasonLength = 500

// Record mirrors the disputes table.
type Record struct {
	ID           string
	FineID       string
	CitizenID    string
	Reason       string
	EvidenceURLs []string
	Status       Status
	SubmittedAt  time.Time
	ReviewedBy   *string
	ReviewedAt   *time.Time
	OfficerNotes *string
}

// Contact bundles what the resolution notification needs about a fine and
// the citizen who disputed it.
type Contact struct {
	Email         string
	FullName      string
	ViolationType string
	DueAt         time.Time
}
