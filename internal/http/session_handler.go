package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/mentor-scheduler/internal/application"
	"github.com/example/mentor-scheduler/internal/booking"
)

type bookingService interface {
	RequestBooking(ctx context.Context, req application.BookingRequest) (application.Session, error)
	TransitionSession(ctx context.Context, sessionID string, params application.TransitionParams) (application.Session, error)
	AddParticipant(ctx context.Context, sessionID, userID string) (application.Session, error)
	RemoveParticipant(ctx context.Context, sessionID, userID string) (application.Session, error)
	ListSessions(ctx context.Context, mentorID string, from, to time.Time) ([]application.Session, error)
}

// SessionHandler serves booking admission, state transitions and participant
// management for mentoring sessions.
type SessionHandler struct {
	service   bookingService
	responder responder
}

func NewSessionHandler(service bookingService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{service: service, responder: newResponder(logger)}
}

// Create admits a new booking or rejects it with a conflict.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	session, err := h.service.RequestBooking(r.Context(), req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, sessionResponse{Session: toSessionDTO(session)})
}

// Transition moves a session through its lifecycle.
func (h *SessionHandler) Transition(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	session, err := h.service.TransitionSession(r.Context(), sessionID, application.TransitionParams{
		Target:        booking.Status(strings.TrimSpace(req.Target)),
		Notes:         req.Notes,
		Reason:        req.Reason,
		NextSessionID: req.NextSessionID,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{Session: toSessionDTO(session)})
}

// AddParticipant joins a user to a group session.
func (h *SessionHandler) AddParticipant(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	var req participantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUserID)
		return
	}

	session, err := h.service.AddParticipant(r.Context(), sessionID, strings.TrimSpace(req.UserID))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{Session: toSessionDTO(session)})
}

// RemoveParticipant removes a user from a group session.
func (h *SessionHandler) RemoveParticipant(w http.ResponseWriter, r *http.Request, userID string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}
	if strings.TrimSpace(userID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUserID)
		return
	}

	session, err := h.service.RemoveParticipant(r.Context(), sessionID, strings.TrimSpace(userID))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{Session: toSessionDTO(session)})
}

// List returns a mentor's sessions within a time range, history included.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	mentorID := strings.TrimSpace(query.Get("mentor_id"))
	if mentorID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMentorID)
		return
	}

	from := parseTimestamp(query.Get("from"))
	to := parseTimestamp(query.Get("to"))
	if to.IsZero() {
		to = time.Now().UTC().AddDate(0, 1, 0)
	}

	sessions, err := h.service.ListSessions(r.Context(), mentorID, from, to)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSessionsResponse{Sessions: toSessionDTOs(sessions)})
}

type bookingRequest struct {
	MentorID        string  `json:"mentor_id"`
	MenteeID        *string `json:"mentee_id"`
	Start           string  `json:"start"`
	End             string  `json:"end"`
	MaxParticipants int     `json:"max_participants"`
}

func (r bookingRequest) toInput() application.BookingRequest {
	maxParticipants := r.MaxParticipants
	if maxParticipants == 0 {
		maxParticipants = 1
	}
	return application.BookingRequest{
		MentorID:        strings.TrimSpace(r.MentorID),
		MenteeID:        r.MenteeID,
		Start:           parseTimestamp(r.Start),
		End:             parseTimestamp(r.End),
		MaxParticipants: maxParticipants,
	}
}

type transitionRequest struct {
	Target        string `json:"target"`
	Notes         string `json:"notes"`
	Reason        string `json:"reason"`
	NextSessionID string `json:"next_session_id"`
}

type participantRequest struct {
	UserID string `json:"user_id"`
}

type sessionResponse struct {
	Session sessionDTO `json:"session"`
}

type listSessionsResponse struct {
	Sessions []sessionDTO `json:"sessions"`
}

type sessionDTO struct {
	ID                  string  `json:"id"`
	MentorID            string  `json:"mentor_id"`
	MenteeID            *string `json:"mentee_id,omitempty"`
	Start               string  `json:"start"`
	End                 string  `json:"end"`
	Status              string  `json:"status"`
	Notes               *string `json:"notes,omitempty"`
	CancellationReason  *string `json:"cancellation_reason,omitempty"`
	NextSessionID       *string `json:"next_session_id,omitempty"`
	MaxParticipants     int     `json:"max_participants"`
	CurrentParticipants int     `json:"current_participants"`
	CreatedAt           string  `json:"created_at"`
	UpdatedAt           string  `json:"updated_at"`
}

func toSessionDTO(session application.Session) sessionDTO {
	return sessionDTO{
		ID:                  session.ID,
		MentorID:            session.MentorID,
		MenteeID:            session.MenteeID,
		Start:               formatTimestamp(session.Start),
		End:                 formatTimestamp(session.End),
		Status:              string(session.Status),
		Notes:               session.Notes,
		CancellationReason:  session.CancellationReason,
		NextSessionID:       session.NextSessionID,
		MaxParticipants:     session.MaxParticipants,
		CurrentParticipants: session.CurrentParticipants,
		CreatedAt:           formatTimestamp(session.CreatedAt),
		UpdatedAt:           formatTimestamp(session.UpdatedAt),
	}
}

func toSessionDTOs(sessions []application.Session) []sessionDTO {
	if len(sessions) == 0 {
		return nil
	}
	out := make([]sessionDTO, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, toSessionDTO(session))
	}
	return out
}
