package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/set-night/questboard/internal/domain"
)

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Type            domain.TaskType `json:"type"`
		Title           string          `json:"title"`
		Description     string          `json:"description"`
		Reward          decimal.Decimal `json:"reward"`
		MaxParticipants *int            `json:"maxParticipants"`
		ChannelUsername string          `json:"channelUsername"`
		TokenAddress    string          `json:"tokenAddress"`
		TokenAmount     decimal.Decimal `json:"tokenAmount"`
	}
	if err := readJSON(r, &body); err != nil || body.Title == "" {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{Success: false, Error: "BadRequest", Message: "invalid task payload"})
		return
	}

	switch body.Type {
	case domain.TaskTypeChannel:
		if body.ChannelUsername == "" {
			writeJSON(w, http.StatusBadRequest,
				errorResponse{Success: false, Error: "BadRequest", Message: "channelUsername is required for CHANNEL tasks"})
			return
		}
	case domain.TaskTypeToken:
		if body.TokenAddress == "" || body.TokenAmount.LessThanOrEqual(decimal.Zero) {
			writeJSON(w, http.StatusBadRequest,
				errorResponse{Success: false, Error: "BadRequest", Message: "tokenAddress and tokenAmount are required for TOKEN tasks"})
			return
		}
	default:
		writeJSON(w, http.StatusBadRequest,
			errorResponse{Success: false, Error: "BadRequest", Message: "type must be CHANNEL or TOKEN"})
		return
	}

	task, err := s.catalog.Create(r.Context(), &domain.Task{
		Type:            body.Type,
		Title:           body.Title,
		Description:     body.Description,
		Reward:          body.Reward,
		MaxParticipants: body.MaxParticipants,
		ChannelUsername: body.ChannelUsername,
		TokenAddress:    body.TokenAddress,
		TokenAmount:     body.TokenAmount,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"task": toTaskJSON(task)})
}

func (s *Server) handleDeactivateTask(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, domain.ErrTaskNotFound)
		return
	}

	if err := s.catalog.Deactivate(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
