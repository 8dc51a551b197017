package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/set-night/questboard/internal/config"
	"github.com/set-night/questboard/internal/domain"
	"github.com/set-night/questboard/internal/service"
	"github.com/set-night/questboard/internal/telegram"
)

// Config captures the dependencies required to construct the server.
type Config struct {
	Cfg         *config.Config
	Users       *service.UserService
	Catalog     *service.CatalogService
	Claims      *service.ClaimService
	Balances    *service.BalanceService
	Referrals   *service.ReferralService
	Eligibility *service.EligibilityService
	TgLogger    *telegram.Logger
}

// Server is the HTTP façade consumed by the Mini App.
type Server struct {
	cfg         *config.Config
	users       *service.UserService
	catalog     *service.CatalogService
	claims      *service.ClaimService
	balances    *service.BalanceService
	referrals   *service.ReferralService
	eligibility *service.EligibilityService
	tgLogger    *telegram.Logger

	router http.Handler
}

func New(cfg Config) *Server {
	srv := &Server{
		cfg:         cfg.Cfg,
		users:       cfg.Users,
		catalog:     cfg.Catalog,
		claims:      cfg.Claims,
		balances:    cfg.Balances,
		referrals:   cfg.Referrals,
		eligibility: cfg.Eligibility,
		tgLogger:    cfg.TgLogger,
	}
	srv.router = srv.buildRouter()
	return srv
}

// Handler exposes the configured HTTP router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(Recover)
	r.Use(RequestLogger)
	r.Use(Metrics)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/users/register", s.handleRegister)

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", s.handleListTasks)
		r.Get("/{id}", s.handleGetTask)
		r.Post("/{id}/complete", s.handleCompleteTask)
	})

	r.Route("/user/{id}", func(r chi.Router) {
		r.Get("/balance", s.handleGetBalance)
		r.Post("/balance", s.handleUpdateBalance)
		r.Get("/transactions", s.handleListTransactions)
		r.Get("/referrals", s.handleGetReferrals)
		r.Get("/referral-code", s.handleGetReferralCode)
		r.Post("/wallet", s.handleLinkWallet)
	})

	r.Get("/telegram/check-subscription", s.handleCheckSubscription)
	r.Get("/ton/check-balance", s.handleCheckTokenBalance)

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.adminAuth)
		r.Post("/tasks", s.handleCreateTask)
		r.Post("/tasks/{id}/deactivate", s.handleDeactivateTask)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// errorResponse is the uniform error body: a machine code plus a
// human-readable message.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// wireError maps a domain sentinel to its HTTP status and wire code.
// Definitive claim outcomes travel as 200s with success:false so the client
// can distinguish them from transport failures.
func wireError(err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrTaskAlreadyDone):
		return http.StatusOK, "AlreadyClaimed", "Task already completed"
	case errors.Is(err, domain.ErrRequirementNotMet):
		return http.StatusOK, "RequirementNotMet", "Task requirement is not satisfied"
	case errors.Is(err, domain.ErrTaskCapacity):
		return http.StatusOK, "CapacityExceeded", "Task participant limit reached"
	case errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusBadRequest, "InsufficientFunds", "Balance is too low"
	case errors.Is(err, domain.ErrInvalidAmount):
		return http.StatusBadRequest, "InvalidAmount", "Amount must be positive"
	case errors.Is(err, domain.ErrTaskNotFound):
		return http.StatusNotFound, "NotFound", "Task not found"
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "NotFound", "User not found"
	case errors.Is(err, domain.ErrSettlementFailed):
		return http.StatusInternalServerError, "SettlementFailed", "Settlement failed, please retry"
	default:
		return http.StatusInternalServerError, "Internal", "Internal server error"
	}
}

func respondError(w http.ResponseWriter, err error) {
	status, code, message := wireError(err)
	writeJSON(w, status, errorResponse{Success: false, Error: code, Message: message})
}
