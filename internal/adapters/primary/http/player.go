package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
	"github.com/fredcamaral/slidekit/internal/domain/services"
)

// Player navigation actions
const (
	ActionOpen     = "open"
	ActionNext     = "next"
	ActionPrevious = "previous"
	ActionGoTo     = "goto"
	ActionClose    = "close"
)

// NavigateRequest is the body of POST /api/player/navigate.
// Width and Height are the viewport for open; Slide is the target for goto.
type NavigateRequest struct {
	Action string  `json:"action"`
	Slide  int     `json:"slide,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// PlayerHandler exposes the full-screen player over HTTP
type PlayerHandler struct {
	player *services.PresentationPlayer
	logger *slog.Logger
}

// NewPlayerHandler creates a player handler; a nil player answers 503
func NewPlayerHandler(player *services.PresentationPlayer, logger *slog.Logger) *PlayerHandler {
	return &PlayerHandler{player: player, logger: logger}
}

// RegisterRoutes registers player routes
func (h *PlayerHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/player/state", h.HandleState).Methods(http.MethodGet)
	router.HandleFunc("/api/player/navigate", h.HandleNavigation).Methods(http.MethodPost)
}

// HandleState returns the current player state
func (h *PlayerHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	if h.player == nil {
		http.Error(w, "Player not available", http.StatusServiceUnavailable)
		return
	}
	h.writeState(w, h.player.State())
}

// HandleNavigation applies one navigation action and returns the new state
func (h *PlayerHandler) HandleNavigation(w http.ResponseWriter, r *http.Request) {
	if h.player == nil {
		http.Error(w, "Player not available", http.StatusServiceUnavailable)
		return
	}

	var req NavigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var err error
	switch req.Action {
	case ActionOpen:
		viewport := entities.Size{Width: req.Width, Height: req.Height}
		if viewport.Width <= 0 || viewport.Height <= 0 {
			viewport = entities.Size{Width: 1920, Height: 1080}
		}
		err = h.player.Open(viewport, req.Slide)
	case ActionNext:
		err = h.player.Next()
	case ActionPrevious:
		err = h.player.Previous()
	case ActionGoTo:
		err = h.player.GoTo(req.Slide)
	case ActionClose:
		h.player.Close()
	default:
		http.Error(w, "Invalid navigation action", http.StatusBadRequest)
		return
	}

	if errors.Is(err, services.ErrPlayerClosed) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		h.logger.Warn("player navigation failed", "action", req.Action, "error", err)
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	h.writeState(w, h.player.State())
}

func (h *PlayerHandler) writeState(w http.ResponseWriter, state entities.PlayerState) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(state); err != nil {
		http.Error(w, "Failed to encode state", http.StatusInternalServerError)
	}
}
