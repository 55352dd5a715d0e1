package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
	"github.com/fredcamaral/slidekit/internal/domain/ports"
)

// maxSaveBody bounds PUT /slides/save bodies
const maxSaveBody = 5 << 20

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string    `json:"error"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// handleSaveSlide stores one slide if its base version is current
func (s *Server) handleSaveSlide(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSaveBody)

	var req entities.SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeFailure(w, http.StatusBadRequest, entities.SaveFailure{Error: "invalid request body"})
		return
	}
	if err := req.Validate(); err != nil {
		s.writeFailure(w, http.StatusBadRequest, entities.SaveFailure{Error: err.Error()})
		return
	}

	clean, err := s.sanitizeSlide(req.HTMLContent)
	if errors.Is(err, errContentDropped) {
		s.logger.Warn("save rejected by sanitizer",
			"presentation", req.PresentationID,
			"index", req.SlideIndex,
			"error", err)
		s.writeFailure(w, http.StatusBadRequest, entities.SaveFailure{Error: err.Error()})
		return
	}
	if err != nil {
		s.writeFailure(w, http.StatusBadRequest, entities.SaveFailure{Error: "html content is not a valid slide document"})
		return
	}
	req.HTMLContent = clean

	result, err := s.repo.SaveSlide(r.Context(), req)
	if err != nil {
		s.writeSaveError(w, req, err)
		return
	}

	s.logger.Info("slide saved",
		"presentation", req.PresentationID,
		"index", req.SlideIndex,
		"version", result.Version,
		"edited_by", req.Metadata.EditedBy)

	s.connMgr.Broadcast(ports.UpdateEvent{
		Type:      ports.EventTypeSlideSaved,
		Timestamp: result.SavedAt,
		Data: map[string]interface{}{
			"presentationId": req.PresentationID,
			"slideIndex":     req.SlideIndex,
			"slideId":        result.SlideID,
			"version":        result.Version,
		},
	})

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) writeSaveError(w http.ResponseWriter, req entities.SaveRequest, err error) {
	var saveErr *entities.SaveError
	switch {
	case errors.As(err, &saveErr) && saveErr.Conflict:
		s.writeFailure(w, http.StatusConflict, entities.SaveFailure{
			Conflict:       true,
			Error:          saveErr.Message,
			CurrentVersion: saveErr.CurrentVersion,
		})
	case errors.As(err, &saveErr) && saveErr.StatusCode == http.StatusBadRequest:
		s.writeFailure(w, http.StatusBadRequest, entities.SaveFailure{Error: saveErr.Message})
	case errors.Is(err, ports.ErrPresentationNotFound), errors.Is(err, ports.ErrSlideNotFound):
		s.writeFailure(w, http.StatusNotFound, entities.SaveFailure{Error: err.Error()})
	default:
		s.logger.Error("save failed",
			"presentation", req.PresentationID,
			"index", req.SlideIndex,
			"error", err)
		s.writeFailure(w, http.StatusInternalServerError, entities.SaveFailure{Error: "internal server error"})
	}
}

// handleGetSlide returns one stored slide
func (s *Server) handleGetSlide(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		s.handleError(w, err, http.StatusBadRequest)
		return
	}

	slide, err := s.repo.GetSlide(r.Context(), vars["presentationId"], index)
	if err != nil {
		s.handleLookupError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, slide)
}

// handleGetPresentation returns a whole deck
func (s *Server) handleGetPresentation(w http.ResponseWriter, r *http.Request) {
	p, err := s.repo.GetPresentation(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.handleLookupError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

// handlePresent serves the full-screen player page for a deck
func (s *Server) handlePresent(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		http.Error(w, "Player page not available", http.StatusServiceUnavailable)
		return
	}

	p, err := s.repo.GetPresentation(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.handleLookupError(w, err)
		return
	}

	page, err := s.templates.RenderPlayer(r.Context(), p)
	if err != nil {
		s.handleError(w, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(page); err != nil {
		s.logger.Error("failed to write player page", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"clients": s.connMgr.Count(),
	})
}

func (s *Server) handleLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, ports.ErrPresentationNotFound) || errors.Is(err, ports.ErrSlideNotFound) {
		s.handleError(w, err, http.StatusNotFound)
		return
	}
	s.handleError(w, err, http.StatusInternalServerError)
}

// handleError handles error responses with sanitized messages
func (s *Server) handleError(w http.ResponseWriter, err error, status int) {
	var message string
	switch status {
	case http.StatusBadRequest:
		message = "Invalid request"
	case http.StatusNotFound:
		message = "Resource not found"
	case http.StatusMethodNotAllowed:
		message = "Method not allowed"
	case http.StatusTooManyRequests:
		message = "Too many requests"
	case http.StatusInternalServerError:
		message = "Internal server error"
	default:
		message = "An error occurred"
	}

	// the real error stays server-side
	if status >= http.StatusInternalServerError {
		s.logger.Error("HTTP error", "status", status, "error", err)
	} else {
		s.logger.Debug("HTTP error", "status", status, "error", err)
	}

	s.writeJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Time:    s.clock.Now(),
	})
}

func (s *Server) writeFailure(w http.ResponseWriter, status int, failure entities.SaveFailure) {
	failure.Success = false
	s.writeJSON(w, status, failure)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", "error", err)
	}
}
