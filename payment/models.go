package payment

import "time"

// StatusCompleted is the only payment status this design models; there are
// no partial or failed payment states.
const StatusCompleted = "completed"

// Record mirrors the payments table. Rows are immutable once written.
type Record struct {
	ID            string
	FineID        string
	PayerID       string
	Amount        float64
	Method        string
	Status        string
	TransactionID string
	PaidAt        time.Time
}

// knownMethods are the payment method tags the entry point accepts.
var knownMethods = map[string]struct{}{
	"card":          {},
	"bank_transfer": {},
	"mobile_money":  {},
	"cash":          {},
}

// ValidMethod reports whether the method tag is recognised.
func ValidMethod(method string) bool {
	_, ok := knownMethods[method]
	return ok
}
