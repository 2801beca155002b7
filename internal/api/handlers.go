package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/vaidashi/order-status-sync/internal/auth"
	"github.com/vaidashi/order-status-sync/internal/models"
	"github.com/vaidashi/order-status-sync/internal/service"
	"github.com/vaidashi/order-status-sync/internal/session"
	apperrors "github.com/vaidashi/order-status-sync/pkg/errors"
)

// Version is reported by the health check
const Version = "0.1.0"

type ApiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Health represents the health check response
type Health struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
	Sessions  int    `json:"sessions"`
	Publisher string `json:"publisher,omitempty"`
}

// TrackingView is the public tracking record with its progress
type TrackingView struct {
	TrackingID string `json:"trackingId"`
	*models.Tracking
	Progress int `json:"progress"`
}

// healthCheckHandler handles the health check endpoint
func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	health := Health{
		Status:    "ok",
		Version:   Version,
		Timestamp: time.Now().Format(time.RFC3339),
		Sessions:  s.sessions.Count(),
	}
	if s.publisher != nil {
		health.Publisher = s.publisher.BreakerState().String()
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    health,
	})
}

// getTrackingHandler returns the customer-facing tracking record
func (s *Server) getTrackingHandler(w http.ResponseWriter, r *http.Request) {
	trackingID := mux.Vars(r)["trackingId"]

	tracking, err := s.tracking.Get(r.Context(), trackingID)
	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data: TrackingView{
			TrackingID: tracking.TrackingID,
			Tracking:   tracking,
			Progress:   service.Progress(tracking.Status),
		},
	})
}

// signInHandler starts the caller's order feed and returns the first view
func (s *Server) signInHandler(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	sess, err := s.sessions.SignIn(r.Context(), id.Subject)
	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusCreated, ApiResponse{
		Success: true,
		Data:    newOrdersView(sess.View()),
	})
}

// signOutHandler stops the caller's order feed
func (s *Server) signOutHandler(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	if !s.sessions.SignOut(id.Subject) {
		s.respondWithError(w, http.StatusNotFound, "not signed in")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// pingHandler reads one order to check the store is reachable
func (s *Server) pingHandler(w http.ResponseWriter, r *http.Request) {
	n, err := s.orders.Ping(r.Context())
	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    map[string]int{"documents": n},
	})
}

// noticeHandler returns the confirmation message currently on display
func (s *Server) noticeHandler(w http.ResponseWriter, r *http.Request) {
	msg, ok := s.notices.Current()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    msg,
	})
}

// currentSession returns the caller's session or writes a 409
func (s *Server) currentSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id, _ := auth.FromContext(r.Context())

	sess, ok := s.sessions.Get(id.Subject)
	if !ok {
		s.respondWithError(w, http.StatusConflict, "no active session, sign in first")
		return nil, false
	}
	return sess, true
}

// decodeJSON reads the request body into v or writes a 400
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}

// respondWithAppError maps err onto its HTTP status
func (s *Server) respondWithAppError(w http.ResponseWriter, err error) {
	code := apperrors.StatusCode(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "error", err, "kind", apperrors.KindOf(err))
	}

	s.respondWithError(w, code, err.Error())
}

// respondWithError sends a JSON response with an error message
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, ApiResponse{
		Success: false,
		Error:   message,
	})
}

// respondWithJSON sends a JSON response
func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)

	if err != nil {
		s.logger.Error("Failed to marshal response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
