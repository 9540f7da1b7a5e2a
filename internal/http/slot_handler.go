package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/mentor-scheduler/internal/application"
)

type slotService interface {
	GetAvailableSlots(ctx context.Context, mentorID string, date time.Time, granularity time.Duration) ([]application.Slot, error)
}

// SlotHandler serves the bookable calendar view of a mentor's day.
type SlotHandler struct {
	service   slotService
	responder responder
}

func NewSlotHandler(service slotService, logger *slog.Logger) *SlotHandler {
	return &SlotHandler{service: service, responder: newResponder(logger)}
}

// List returns the mentor's slots for the requested date. The date query
// parameter is required; granularity is optional and falls back to the
// service default.
func (h *SlotHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	mentorID, ok := MentorIDFromContext(r.Context())
	if !ok || strings.TrimSpace(mentorID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMentorID)
		return
	}

	query := r.URL.Query()
	date, err := time.Parse("2006-01-02", strings.TrimSpace(query.Get("date")))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	var granularity time.Duration
	if raw := strings.TrimSpace(query.Get("granularity")); raw != "" {
		granularity, err = time.ParseDuration(raw)
		if err != nil || granularity <= 0 {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidGranularity)
			return
		}
	}

	slots, err := h.service.GetAvailableSlots(r.Context(), mentorID, date, granularity)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSlotsResponse{
		MentorID: mentorID,
		Date:     date.Format("2006-01-02"),
		Slots:    toSlotDTOs(slots),
	})
}

type listSlotsResponse struct {
	MentorID string    `json:"mentor_id"`
	Date     string    `json:"date"`
	Slots    []slotDTO `json:"slots"`
}

type slotDTO struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

func toSlotDTOs(slots []application.Slot) []slotDTO {
	out := make([]slotDTO, 0, len(slots))
	for _, slot := range slots {
		out = append(out, slotDTO{
			Start:     formatTimestamp(slot.Start),
			End:       formatTimestamp(slot.End),
			Available: slot.Available,
			Reason:    slot.Reason,
		})
	}
	return out
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTimestamp(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts
	}
	return time.Time{}
}
