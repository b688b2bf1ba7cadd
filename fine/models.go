package fine

import "time"

// Status represents the lifecycle of a fine record.
type Status string

const (
	StatusOutstanding Status = "outstanding"
	StatusOverdue     Status = "overdue"
	StatusDisputed    Status = "disputed"
	StatusPaid        Status = "paid"
	StatusWaived      Status = "waived"
)

// transitions enumerates every legal status change. Anything absent here is
// rejected before a row is touched.
var transitions = map[Status][]Status{
	StatusOutstanding: {StatusOverdue, StatusDisputed, StatusPaid},
	StatusOverdue:     {StatusDisputed, StatusPaid},
	StatusDisputed:    {StatusOutstanding, StatusWaived},
}

// CanTransition reports whether from -> to is a legal status change.
// paid and waived are terminal.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// SourcesOf returns every status allowed to transition into to, in
// declaration order. Workflow repositories derive their SQL status guards
// from this so the transition table stays the single authority.
func SourcesOf(to Status) []Status {
	var out []Status
	for _, from := range []Status{StatusOutstanding, StatusOverdue, StatusDisputed, StatusPaid, StatusWaived} {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

// Payable reports whether a fine in this status can be paid or disputed.
func Payable(s Status) bool {
	return s == StatusOutstanding || s == StatusOverdue
}

// Fine mirrors the fines table. Amount is immutable after issuance.
type Fine struct {
	ID            string
	CitizenID     string
	OfficerID     string
	ViolationType string
	Amount        float64
	Currency      string
	Location      string
	IssuedAt      time.Time
	DueAt         time.Time
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Filters narrows fine listings.
type Filters struct {
	CitizenID string
	OfficerID string
	Status    Status
	Page      int
	PageSize  int
}
