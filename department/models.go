package department

import "time"

// Status represents the review lifecycle of a registration. approved and
// rejected are terminal.
type Status string

const (
	StatusPendingReview Status = "pending_review"
	StatusApproved      Status = "approved"
	StatusRejected      Status = "rejected"
)

// Registration mirrors the departments table.
type Registration struct {
	ID               string
	Name             string
	Region           string
	District         string
	Address          string
	ContactFirstName string
	ContactLastName  string
	ContactEmail     string
	ContactPhone     string
	Status           Status
	SubmittedAt      time.Time
	ReviewedAt       *time.Time
}

// RegisterRequest contains the public registration form fields.
type RegisterRequest struct {
	Name             string `json:"name"`
	Region           string `json:"region"`
	District         string `json:"district"`
	Address          string `json:"address"`
	ContactFirstName string `json:"contact_first_name"`
	ContactLastName  string `json:"contact_last_name"`
	ContactEmail     string `json:"contact_email"`
	ContactPhone     string `json:"contact_phone"`
}
