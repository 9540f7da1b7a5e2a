package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/mentor-scheduler/internal/application"
)

type availabilityService interface {
	CreateRule(ctx context.Context, input application.AvailabilityRuleInput) (application.AvailabilityRule, error)
	UpdateRule(ctx context.Context, ruleID string, input application.AvailabilityRuleInput) (application.AvailabilityRule, error)
	DeleteRule(ctx context.Context, ruleID string) error
	ListRules(ctx context.Context, mentorID string) ([]application.AvailabilityRule, error)
	CreateBlockedTime(ctx context.Context, input application.BlockedTimeInput) (application.BlockedTime, error)
	UpdateBlockedTime(ctx context.Context, blockedID string, input application.BlockedTimeInput) (application.BlockedTime, error)
	DeleteBlockedTime(ctx context.Context, blockedID string) error
	ListBlockedTimes(ctx context.Context, mentorID string, from, to time.Time) ([]application.BlockedTime, error)
}

// AvailabilityHandler manages availability rule templates and blocked times.
type AvailabilityHandler struct {
	service   availabilityService
	responder responder
}

func NewAvailabilityHandler(service availabilityService, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{service: service, responder: newResponder(logger)}
}

// CreateRule adds an availability rule to the mentor resolved from the path.
func (h *AvailabilityHandler) CreateRule(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	mentorID, ok := MentorIDFromContext(r.Context())
	if !ok || strings.TrimSpace(mentorID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMentorID)
		return
	}

	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	rule, err := h.service.CreateRule(r.Context(), req.toInput(mentorID))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, ruleResponse{Rule: toRuleDTO(rule)})
}

// UpdateRule modifies an existing availability rule.
func (h *AvailabilityHandler) UpdateRule(w http.ResponseWriter, r *http.Request, ruleID string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if strings.TrimSpace(ruleID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRuleID)
		return
	}

	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	rule, err := h.service.UpdateRule(r.Context(), ruleID, req.toInput(req.MentorID))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, ruleResponse{Rule: toRuleDTO(rule)})
}

// DeleteRule removes an availability rule.
func (h *AvailabilityHandler) DeleteRule(w http.ResponseWriter, r *http.Request, ruleID string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if strings.TrimSpace(ruleID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRuleID)
		return
	}

	if err := h.service.DeleteRule(r.Context(), ruleID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// ListRules returns the mentor's active availability rules.
func (h *AvailabilityHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	mentorID, ok := MentorIDFromContext(r.Context())
	if !ok || strings.TrimSpace(mentorID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMentorID)
		return
	}

	rules, err := h.service.ListRules(r.Context(), mentorID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listRulesResponse{Rules: toRuleDTOs(rules)})
}

// CreateBlockedTime adds an exclusion to the mentor resolved from the path.
func (h *AvailabilityHandler) CreateBlockedTime(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	mentorID, ok := MentorIDFromContext(r.Context())
	if !ok || strings.TrimSpace(mentorID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMentorID)
		return
	}

	var req blockedTimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	blocked, err := h.service.CreateBlockedTime(r.Context(), req.toInput(mentorID))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, blockedTimeResponse{BlockedTime: toBlockedTimeDTO(blocked)})
}

// UpdateBlockedTime modifies an existing exclusion.
func (h *AvailabilityHandler) UpdateBlockedTime(w http.ResponseWriter, r *http.Request, blockedID string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if strings.TrimSpace(blockedID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBlockedID)
		return
	}

	var req blockedTimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	blocked, err := h.service.UpdateBlockedTime(r.Context(), blockedID, req.toInput(req.MentorID))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, blockedTimeResponse{BlockedTime: toBlockedTimeDTO(blocked)})
}

// DeleteBlockedTime removes an exclusion.
func (h *AvailabilityHandler) DeleteBlockedTime(w http.ResponseWriter, r *http.Request, blockedID string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if strings.TrimSpace(blockedID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBlockedID)
		return
	}

	if err := h.service.DeleteBlockedTime(r.Context(), blockedID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// ListBlockedTimes returns the mentor's exclusions within the range.
func (h *AvailabilityHandler) ListBlockedTimes(w http.ResponseWriter, r *http.Request) {
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
	from := parseTimestamp(query.Get("from"))
	to := parseTimestamp(query.Get("to"))
	if to.IsZero() {
		to = time.Now().UTC().AddDate(0, 1, 0)
	}

	blocked, err := h.service.ListBlockedTimes(r.Context(), mentorID, from, to)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBlockedTimesResponse{BlockedTimes: toBlockedTimeDTOs(blocked)})
}

type ruleRequest struct {
	MentorID         string `json:"mentor_id"`
	DayOfWeek        *int   `json:"day_of_week"`
	SpecificDate     string `json:"specific_date"`
	StartTime        string `json:"start_time"`
	EndTime          string `json:"end_time"`
	RecurringEndDate string `json:"recurring_end_date"`
}

func (r ruleRequest) toInput(mentorID string) application.AvailabilityRuleInput {
	input := application.AvailabilityRuleInput{
		MentorID:   strings.TrimSpace(mentorID),
		StartClock: strings.TrimSpace(r.StartTime),
		EndClock:   strings.TrimSpace(r.EndTime),
	}
	if r.DayOfWeek != nil {
		day := time.Weekday(*r.DayOfWeek)
		input.DayOfWeek = &day
	}
	if date := parseDate(r.SpecificDate); date != nil {
		input.SpecificDate = date
	}
	if date := parseDate(r.RecurringEndDate); date != nil {
		input.RecurringEndDate = date
	}
	return input
}

func parseDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	date, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil
	}
	return &date
}

type ruleResponse struct {
	Rule ruleDTO `json:"rule"`
}

type listRulesResponse struct {
	Rules []ruleDTO `json:"rules"`
}

type ruleDTO struct {
	ID               string `json:"id"`
	MentorID         string `json:"mentor_id"`
	DayOfWeek        *int   `json:"day_of_week,omitempty"`
	SpecificDate     string `json:"specific_date,omitempty"`
	StartTime        string `json:"start_time"`
	EndTime          string `json:"end_time"`
	RecurringEndDate string `json:"recurring_end_date,omitempty"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

func toRuleDTO(rule application.AvailabilityRule) ruleDTO {
	dto := ruleDTO{
		ID:        rule.ID,
		MentorID:  rule.MentorID,
		StartTime: rule.StartClock,
		EndTime:   rule.EndClock,
		CreatedAt: formatTimestamp(rule.CreatedAt),
		UpdatedAt: formatTimestamp(rule.UpdatedAt),
	}
	if rule.DayOfWeek != nil {
		day := int(*rule.DayOfWeek)
		dto.DayOfWeek = &day
	}
	if rule.SpecificDate != nil {
		dto.SpecificDate = rule.SpecificDate.UTC().Format("2006-01-02")
	}
	if rule.RecurringEndDate != nil {
		dto.RecurringEndDate = rule.RecurringEndDate.UTC().Format("2006-01-02")
	}
	return dto
}

func toRuleDTOs(rules []application.AvailabilityRule) []ruleDTO {
	if len(rules) == 0 {
		return nil
	}
	out := make([]ruleDTO, 0, len(rules))
	for _, rule := range rules {
		out = append(out, toRuleDTO(rule))
	}
	return out
}

type blockedTimeRequest struct {
	MentorID string `json:"mentor_id"`
	Start    string `json:"start"`
	End      string `json:"end"`
	IsAllDay bool   `json:"is_all_day"`
	Reason   string `json:"reason"`
}

func (r blockedTimeRequest) toInput(mentorID string) application.BlockedTimeInput {
	return application.BlockedTimeInput{
		MentorID: strings.TrimSpace(mentorID),
		Start:    parseTimestamp(r.Start),
		End:      parseTimestamp(r.End),
		IsAllDay: r.IsAllDay,
		Reason:   r.Reason,
	}
}

type blockedTimeResponse struct {
	BlockedTime blockedTimeDTO `json:"blocked_time"`
}

type listBlockedTimesResponse struct {
	BlockedTimes []blockedTimeDTO `json:"blocked_times"`
}

type blockedTimeDTO struct {
	ID        string  `json:"id"`
	MentorID  string  `json:"mentor_id"`
	Start     string  `json:"start"`
	End       string  `json:"end"`
	IsAllDay  bool    `json:"is_all_day"`
	Reason    *string `json:"reason,omitempty"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

func toBlockedTimeDTO(blocked application.BlockedTime) blockedTimeDTO {
	return blockedTimeDTO{
		ID:        blocked.ID,
		MentorID:  blocked.MentorID,
		Start:     formatTimestamp(blocked.Start),
		End:       formatTimestamp(blocked.End),
		IsAllDay:  blocked.IsAllDay,
		Reason:    blocked.Reason,
		CreatedAt: formatTimestamp(blocked.CreatedAt),
		UpdatedAt: formatTimestamp(blocked.UpdatedAt),
	}
}

func toBlockedTimeDTOs(blocked []application.BlockedTime) []blockedTimeDTO {
	if len(blocked) == 0 {
		return nil
	}
	out := make([]blockedTimeDTO, 0, len(blocked))
	for _, record := range blocked {
		out = append(out, toBlockedTimeDTO(record))
	}
	return out
}
