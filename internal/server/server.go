// Package server exposes the ledger over a JSON HTTP API.
package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mdjukic/settleup/internal/auth"
	"github.com/mdjukic/settleup/internal/middleware"
	"github.com/mdjukic/settleup/internal/service"
	"github.com/mdjukic/settleup/pkg/errors"
)

// Server wires the services into an HTTP handler.
type Server struct {
	auth       *service.AuthService
	ledger     *service.LedgerService
	settlement *service.SettlementService
	recurring  *service.RecurringService
	jwtManager *auth.JWTManager
}

// New creates a server over the given services.
func New(authSvc *service.AuthService, ledger *service.LedgerService, settlement *service.SettlementService, recurring *service.RecurringService, jwtManager *auth.JWTManager) *Server {
	return &Server{
		auth:       authSvc,
		ledger:     ledger,
		settlement: settlement,
		recurring:  recurring,
		jwtManager: jwtManager,
	}
}

// Handler builds the full route table. Auth endpoints, health and metrics
// are public; everything else requires a Bearer token. HTTP/2 without TLS
// is enabled for local and proxied deployments.
func (s *Server) Handler() http.Handler {
	public := http.NewServeMux()
	public.HandleFunc("POST /v1/auth/register", s.handleRegister)
	public.HandleFunc("POST /v1/auth/login", s.handleLogin)
	public.Handle("GET /metrics", promhttp.Handler())
	public.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	private := http.NewServeMux()
	private.HandleFunc("POST /v1/transactions", s.handleCreateTransaction)
	private.HandleFunc("GET /v1/transactions/{id}", s.handleGetTransaction)
	private.HandleFunc("PATCH /v1/transactions/{id}", s.handleUpdateTransaction)
	private.HandleFunc("DELETE /v1/transactions/{id}", s.handleDeleteTransaction)

	private.HandleFunc("GET /v1/groups/{id}/balances", s.handleBalances)
	private.HandleFunc("GET /v1/groups/{id}/transfers", s.handleTransfers)
	private.HandleFunc("POST /v1/groups/{id}/settlements", s.handleConfirmSettlement)
	private.HandleFunc("GET /v1/groups/{id}/settlements", s.handleSettlementHistory)

	private.HandleFunc("POST /v1/recurring", s.handleCreateRule)
	private.HandleFunc("GET /v1/recurring/due", s.handleDueQueue)
	private.HandleFunc("POST /v1/recurring/{id}/confirm", s.handleConfirmRule)
	private.HandleFunc("POST /v1/recurring/{id}/postpone", s.handlePostponeRule)
	private.HandleFunc("POST /v1/recurring/{id}/skip", s.handleSkipRule)
	private.HandleFunc("POST /v1/recurring/{id}/disable", s.handleDisableRule)

	public.Handle("/v1/", middleware.RequireAuth(s.jwtManager)(private))

	handler := middleware.Logging(public)
	return h2c.NewHandler(handler, &http2.Server{})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	kind := errors.KindOf(err)
	writeJSON(w, statusFor(kind), map[string]errorBody{"error": {
		Kind:    string(kind),
		Message: err.Error(),
	}})
}

func statusFor(kind errors.Kind) int {
	switch kind {
	case errors.KindValidation, errors.KindInvalidParticipants:
		return http.StatusBadRequest
	case errors.KindNotFound:
		return http.StatusNotFound
	case errors.KindPermissionDenied:
		return http.StatusForbidden
	case errors.KindStaleSettlement:
		return http.StatusConflict
	case errors.KindRateMissing:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New(errors.KindValidation, "malformed request body")
	}
	return nil
}

// decodeOptional accepts an empty body as an empty request.
func decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return errors.New(errors.KindValidation, "malformed request body")
	}
	return nil
}
