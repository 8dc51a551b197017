package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/set-night/questboard/internal/domain"
)

type taskJSON struct {
	ID                  int64           `json:"id"`
	Type                domain.TaskType `json:"type"`
	Title               string          `json:"title"`
	Description         string          `json:"description"`
	Reward              decimal.Decimal `json:"reward"`
	MaxParticipants     *int            `json:"maxParticipants,omitempty"`
	CurrentParticipants int             `json:"currentParticipants"`
	ChannelUsername     string          `json:"channelUsername,omitempty"`
	ChannelTitle        string          `json:"channelTitle,omitempty"`
	TokenAddress        string          `json:"tokenAddress,omitempty"`
	TokenAmount         decimal.Decimal `json:"tokenAmount"`
}

func toTaskJSON(t *domain.Task) taskJSON {
	return taskJSON{
		ID:                  t.ID,
		Type:                t.Type,
		Title:               t.Title,
		Description:         t.Description,
		Reward:              t.Reward,
		MaxParticipants:     t.MaxParticipants,
		CurrentParticipants: t.CurrentParticipants,
		ChannelUsername:     t.ChannelUsername,
		ChannelTitle:        t.ChannelTitle,
		TokenAddress:        t.TokenAddress,
		TokenAmount:         t.TokenAmount,
	}
}

// telegramID tolerates both numeric and string-encoded IDs: the Mini App
// sends whatever Telegram's WebApp object happened to hand it.
type telegramID int64

func (t *telegramID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram id %q", s)
	}
	*t = telegramID(v)
	return nil
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	var taskType *domain.TaskType
	if raw := r.URL.Query().Get("type"); raw != "" {
		tt := domain.TaskType(raw)
		if !tt.Valid() {
			writeJSON(w, http.StatusBadRequest,
				errorResponse{Success: false, Error: "InvalidType", Message: "type must be CHANNEL or TOKEN"})
			return
		}
		taskType = &tt
	}

	tasks, err := s.catalog.List(r.Context(), taskType)
	if err != nil {
		respondError(w, err)
		return
	}

	out := make([]taskJSON, 0, len(tasks))
	for i := range tasks {
		out = append(out, toTaskJSON(&tasks[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": out})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, domain.ErrTaskNotFound)
		return
	}

	task, err := s.catalog.Get(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"task": toTaskJSON(task)})
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, domain.ErrTaskNotFound)
		return
	}

	var body struct {
		TelegramID telegramID `json:"telegramId"`
	}
	if err := readJSON(r, &body); err != nil || body.TelegramID == 0 {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{Success: false, Error: "BadRequest", Message: "telegramId is required"})
		return
	}

	result, err := s.claims.Claim(r.Context(), int64(body.TelegramID), taskID)
	if err != nil {
		_, code, _ := wireError(err)
		claimsTotal.WithLabelValues(code).Inc()
		respondError(w, err)
		return
	}
	claimsTotal.WithLabelValues("Accepted").Inc()

	reward, _ := result.Claim.Reward.Float64()
	s.tgLogger.LogClaim(int64(body.TelegramID), taskID, result.TaskTitle, reward)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"reward":  result.Claim.Reward,
		"balance": result.NewBalance,
	})
}
