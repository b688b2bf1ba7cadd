package auth

import "time"

type Role string

const (
	RoleCitizen         Role = "citizen"
	RoleOfficer         Role = "officer"
	RoleDepartmentAdmin Role = "department_admin"
	RoleAdmin           Role = "admin"
)

// User is the domain representation of an authenticated principal.
// It mirrors the users table and deliberately carries no JSON annotations so
// it can be reused by different presentation layers.
type User struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash string
	Phone        *string
	DepartmentID *string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RegisterRequest contains self-signup data supplied by callers. Self-signup
// only ever produces citizens; privileged roles are provisioned by invitation.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone,omitempty"`
}

// LoginRequest contains user login credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// InviteParams provisions an account for someone who never chose a password,
// e.g. a department contact approved by an administrator.
type InviteParams struct {
	Email        string
	FirstName    string
	LastName     string
	Role         Role
	DepartmentID string
}
