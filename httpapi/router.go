package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"driva/auth"
	"driva/department"
	"driva/dispute"
	"driva/fine"
	"driva/payment"
)

// AccountService covers the auth endpoints.
type AccountService interface {
	TokenVerifier
	Register(ctx context.Context, req auth.RegisterRequest) (*auth.User, error)
	Login(ctx context.Context, req auth.LoginRequest) (auth.LoginResult, error)
}

// FineService covers issuance, listing, and the startup overdue sweep.
type FineService interface {
	Issue(ctx context.Context, params fine.IssueParams) (fine.Fine, error)
	ListForCitizen(ctx context.Context, citizenID string, status fine.Status, page, pageSize int) (fine.ListResult, error)
	ListIssuedBy(ctx context.Context, officerID string, status fine.Status, page, pageSize int) (fine.ListResult, error)
	Get(ctx context.Context, callerID, callerRole, fineID string) (fine.Fine, error)
}

// DisputeService covers the dispute submission and resolution workflows.
type DisputeService interface {
	Submit(ctx context.Context, params dispute.SubmitParams) ([]dispute.Record, error)
	Resolve(ctx context.Context, params dispute.ResolveParams) (dispute.Record, error)
	List(ctx context.Context, citizenID string) ([]dispute.Record, error)
	Get(ctx context.Context, citizenID, disputeID string) (dispute.Record, error)
}

// PaymentService covers batch settlement and history.
type PaymentService interface {
	Pay(ctx context.Context, params payment.PayParams) (int, error)
	History(ctx context.Context, payerID string) ([]payment.Record, error)
}

// DepartmentService covers registration intake and admin review.
type DepartmentService interface {
	Register(ctx context.Context, req department.RegisterRequest) (department.Registration, error)
	Review(ctx context.Context, registrationID string, decision department.Status) (department.Registration, error)
	ListPending(ctx context.Context) ([]department.Registration, error)
	Get(ctx context.Context, id string) (department.Registration, error)
}

// Server is the thin HTTP layer. It delegates to the domain services and
// keeps transport concerns out of them.
type Server struct {
	logger      *slog.Logger
	accounts    AccountService
	fines       FineService
	disputes    DisputeService
	payments    PaymentService
	departments DepartmentService
}

func NewServer(
	logger *slog.Logger,
	accounts AccountService,
	fines FineService,
	disputes DisputeService,
	payments PaymentService,
	departments DepartmentService,
) *Server {
	return &Server{
		logger:      logger,
		accounts:    accounts,
		fines:       fines,
		disputes:    disputes,
		payments:    payments,
		departments: departments,
	}
}

// Routes wires every endpoint. Department registration and the auth
// endpoints are public; everything else requires a bearer token.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/login", s.handleLogin)
	r.Post("/departments/register", s.handleDepartmentRegister)

	r.Group(func(pr chi.Router) {
		pr.Use(RequireAuth(s.accounts, s.logger))

		pr.With(RequireRole(s.logger, auth.RoleOfficer, auth.RoleAdmin)).Post("/fines", s.handleFineIssue)
		pr.Get("/fines", s.handleFineList)
		pr.Get("/fines/{fineID}", s.handleFineGet)
		pr.With(RequireRole(s.logger, auth.RoleOfficer, auth.RoleAdmin)).
			Post("/fines/{fineID}/dispute/resolve", s.handleDisputeResolve)

		pr.With(RequireRole(s.logger, auth.RoleCitizen)).Post("/disputes", s.handleDisputeSubmit)
		pr.With(RequireRole(s.logger, auth.RoleCitizen)).Get("/disputes", s.handleDisputeList)
		pr.With(RequireRole(s.logger, auth.RoleCitizen)).Get("/disputes/{disputeID}", s.handleDisputeGet)

		pr.With(RequireRole(s.logger, auth.RoleCitizen)).Post("/payments", s.handlePay)
		pr.With(RequireRole(s.logger, auth.RoleCitizen)).Get("/payments", s.handlePaymentHistory)

		pr.With(RequireRole(s.logger, auth.RoleAdmin)).Get("/departments/pending", s.handleDepartmentPending)
		pr.With(RequireRole(s.logger, auth.RoleAdmin)).Get("/departments/{registrationID}", s.handleDepartmentGet)
		pr.With(RequireRole(s.logger, auth.RoleAdmin)).Post("/departments/{registrationID}/review", s.handleDepartmentReview)
	})

	return r
}
