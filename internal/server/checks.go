package server

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
)

// Display-only requirement checks. The client uses these to render
// requirement state; claims never trust them and re-check server-side.

func (s *Server) handleCheckSubscription(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	telegramID, err := strconv.ParseInt(q.Get("telegramId"), 10, 64)
	channel := q.Get("channelUsername")
	if err != nil || channel == "" {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{Success: false, Error: "BadRequest", Message: "telegramId and channelUsername are required"})
		return
	}

	subscribed := s.eligibility.CheckSubscription(r.Context(), telegramID, channel)
	writeJSON(w, http.StatusOK, map[string]any{"isSubscribed": subscribed})
}

func (s *Server) handleCheckTokenBalance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	address := q.Get("address")
	tokenAddress := q.Get("tokenAddress")
	required, err := decimal.NewFromString(q.Get("requiredAmount"))
	if address == "" || tokenAddress == "" || err != nil {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{Success: false, Error: "BadRequest", Message: "address, tokenAddress and requiredAmount are required"})
		return
	}

	hasEnough := s.eligibility.CheckTokenBalance(r.Context(), address, tokenAddress, required)
	writeJSON(w, http.StatusOK, map[string]any{"hasEnoughTokens": hasEnough})
}
