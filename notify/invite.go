package notify

import (
	"context"
	"fmt"

	"driva/apperr"
	"driva/auth"
)

// AccountInviter provisions a department admin account and mails the contact
// their invitation. Both steps must succeed for the invitation to count.
type AccountInviter struct {
	accounts *auth.Service
	sender   Sender
}

func NewAccountInviter(accounts *auth.Service, sender Sender) *AccountInviter {
	return &AccountInviter{accounts: accounts, sender: sender}
}

// Invite creates the account and dispatches the invitation mail. Any failure
// reports ErrInvitation so the caller can compensate.
func (i *AccountInviter) Invite(ctx context.Context, email, firstName, lastName, departmentID, departmentName string) error {
	if firstName == "" && lastName == "" {
		firstName, lastName = DeriveNameFromEmail(email)
	}

	if _, err := i.accounts.Invite(ctx, auth.InviteParams{
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         auth.RoleDepartmentAdmin,
		DepartmentID: departmentID,
	}); err != nil {
		return fmt.Errorf("notify: provision invited account: %v: %w", err, apperr.ErrInvitation)
	}

	msg := Message{
		To:      email,
		Subject: fmt.Sprintf("DRIVA access for %s", departmentName),
		Body: fmt.Sprintf(
			"Hello %s %s,\n\nThe registration for %s was approved. An administrator account bound to this address has been created; use the password reset flow to set your credentials.\n",
			firstName, lastName, departmentName),
	}
	if err := i.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: invitation mail: %v: %w", err, apperr.ErrInvitation)
	}

	return nil
}
