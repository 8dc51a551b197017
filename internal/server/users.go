package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/set-night/questboard/internal/domain"
)

func pathTelegramID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id != 0
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TelegramID   telegramID `json:"telegramId"`
		Username     string     `json:"username"`
		ReferralCode string     `json:"referralCode"`
	}
	if err := readJSON(r, &body); err != nil || body.TelegramID == 0 {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{Success: false, Error: "BadRequest", Message: "telegramId is required"})
		return
	}

	user, created, err := s.users.FindOrCreate(r.Context(), int64(body.TelegramID), body.Username, body.ReferralCode)
	if err != nil {
		respondError(w, err)
		return
	}
	if created {
		s.tgLogger.LogRegistration(user.TelegramID, user.Username, body.ReferralCode)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user": map[string]any{
			"telegramId":   user.TelegramID,
			"username":     user.Username,
			"balance":      user.Balance,
			"referralCode": user.ReferralCode,
		},
	})
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathTelegramID(r)
	if !ok {
		respondError(w, domain.ErrUserNotFound)
		return
	}

	balance, err := s.balances.Get(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"balance": balance})
}

func (s *Server) handleUpdateBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathTelegramID(r)
	if !ok {
		respondError(w, domain.ErrUserNotFound)
		return
	}

	var body struct {
		Amount    decimal.Decimal `json:"amount"`
		Operation string          `json:"operation"`
	}
	if err := readJSON(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{Success: false, Error: "BadRequest", Message: "invalid request body"})
		return
	}

	var (
		balance decimal.Decimal
		err     error
	)
	switch body.Operation {
	case "add":
		balance, err = s.balances.Credit(r.Context(), id, body.Amount, "Balance top-up")
	case "subtract":
		balance, err = s.balances.Debit(r.Context(), id, body.Amount, "Withdrawal")
	default:
		writeJSON(w, http.StatusBadRequest,
			errorResponse{Success: false, Error: "BadRequest", Message: "operation must be add or subtract"})
		return
	}
	if err != nil {
		respondError(w, err)
		return
	}

	amount, _ := body.Amount.Float64()
	s.tgLogger.LogBalanceChange(id, amount, body.Operation)
	writeJSON(w, http.StatusOK, map[string]any{"balance": balance})
}

type transactionJSON struct {
	ID          int64           `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Type        domain.TxType   `json:"type"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathTelegramID(r)
	if !ok {
		respondError(w, domain.ErrUserNotFound)
		return
	}

	txs, err := s.balances.Transactions(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	out := make([]transactionJSON, 0, len(txs))
	for _, t := range txs {
		out = append(out, transactionJSON{
			ID:          t.ID,
			Amount:      t.Amount,
			Type:        t.TxType,
			Description: t.Description,
			CreatedAt:   t.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": out})
}

func (s *Server) handleGetReferrals(w http.ResponseWriter, r *http.Request) {
	id, ok := pathTelegramID(r)
	if !ok {
		respondError(w, domain.ErrUserNotFound)
		return
	}

	stats, err := s.referrals.Stats(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"referralsCount":   stats.TotalCount,
		"referralsByLevel": stats.CountByLevel,
		"rewardsByLevel":   stats.RewardByLevel,
	})
}

func (s *Server) handleGetReferralCode(w http.ResponseWriter, r *http.Request) {
	id, ok := pathTelegramID(r)
	if !ok {
		respondError(w, domain.ErrUserNotFound)
		return
	}

	user, err := s.users.GetByTelegramID(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"referralCode": user.ReferralCode})
}

func (s *Server) handleLinkWallet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathTelegramID(r)
	if !ok {
		respondError(w, domain.ErrUserNotFound)
		return
	}

	var body struct {
		Address string `json:"address"`
	}
	if err := readJSON(r, &body); err != nil || body.Address == "" {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{Success: false, Error: "BadRequest", Message: "address is required"})
		return
	}

	if err := s.users.LinkWallet(r.Context(), id, body.Address); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
