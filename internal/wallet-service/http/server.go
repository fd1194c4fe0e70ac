package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/slotbox-platform-poc/internal/wallet-service/dto"
	"github.com/radieske/slotbox-platform-poc/internal/wallet-service/repo"
)

// Repo são as operações de carteira usadas pelos handlers
type Repo interface {
	GetOrCreateWallet(ctx context.Context, userID string) (walletID string, balance int64, err error)
	Deposit(ctx context.Context, userID string, amount int64, externalRef string) (walletID string, newBalance int64, err error)
	Reserve(ctx context.Context, userID string, amount int64, externalRef string) (reservationID string, err error)
	Commit(ctx context.Context, userID, externalRef string) error
	Refund(ctx context.Context, userID, externalRef string) error
}

// Server é a carteira em centavos usada pelo case-service (reserve -> commit | refund)
type Server struct {
	log  *zap.Logger
	repo Repo
}

func NewServer(log *zap.Logger, repo Repo) *Server { return &Server{log: log, repo: repo} }

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/wallet", s.getWallet) // ?userId=...
	r.Post("/wallet/deposit", s.deposit)
	r.Post("/wallet/reserve", s.reserve)
	r.Post("/wallet/commit", s.commit)
	r.Post("/wallet/refund", s.refund)
	return r
}

func (s *Server) getWallet(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId required")
		return
	}
	walletID, bal, err := s.repo.GetOrCreateWallet(r.Context(), userID)
	if err != nil {
		s.fail(w, "get wallet", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.WalletResponse{UserID: userID, WalletID: walletID, BalanceCents: bal})
}

func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	var req dto.DepositRequest
	if !decode(w, r, &req) {
		return
	}
	if req.UserID == "" || req.AmountCents <= 0 {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	walletID, bal, err := s.repo.Deposit(r.Context(), req.UserID, req.AmountCents, req.ExternalRef)
	if err != nil {
		s.fail(w, "deposit", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.WalletResponse{UserID: req.UserID, WalletID: walletID, BalanceCents: bal})
}

func (s *Server) reserve(w http.ResponseWriter, r *http.Request) {
	var req dto.ReserveRequest
	if !decode(w, r, &req) {
		return
	}
	if req.UserID == "" || req.AmountCents <= 0 || req.ExternalRef == "" {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	resID, err := s.repo.Reserve(r.Context(), req.UserID, req.AmountCents, req.ExternalRef)
	if err != nil {
		s.fail(w, "reserve", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ReservationResponse{ReservationID: resID, Status: "PENDING"})
}

func (s *Server) commit(w http.ResponseWriter, r *http.Request) {
	s.settle(w, r, "commit", s.repo.Commit, "COMMITTED")
}

func (s *Server) refund(w http.ResponseWriter, r *http.Request) {
	s.settle(w, r, "refund", s.repo.Refund, "REFUNDED")
}

func (s *Server) settle(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, string, string) error, status string) {
	var req dto.SettleRequest
	if !decode(w, r, &req) {
		return
	}
	if req.UserID == "" || req.ExternalRef == "" {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := fn(r.Context(), req.UserID, req.ExternalRef); err != nil {
		s.fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ReservationResponse{Status: status})
}

// fail mapeia erros do repo: 404 sem carteira/reserva, 409 sem saldo
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		writeError(w, http.StatusNotFound, "wallet or reservation not found")
	case errors.Is(err, repo.ErrInsufficientFunds):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.log.Error(op, zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
