package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bekzatkz/dastarhan/internal/adapter/logger"
	"github.com/bekzatkz/dastarhan/internal/domain"
	"github.com/bekzatkz/dastarhan/internal/interfaces"
)

// ReportingHandler serves the read side: order tracking and analytics
// summaries.
type ReportingHandler struct {
	service interfaces.ReportingService
	logger  logger.Logger
}

func NewReportingHandler(service interfaces.ReportingService, logger logger.Logger) *ReportingHandler {
	return &ReportingHandler{
		service: service,
		logger:  logger,
	}
}

// HandleTracking routes GET /tracking/{number}/{status|history}.
func (h *ReportingHandler) HandleTracking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, "Method not allowed", "method_not_allowed", http.StatusMethodNotAllowed)
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[0] != "tracking" {
		respondError(w, "Not found", "not_found", http.StatusNotFound)
		return
	}
	orderNumber := parts[1]

	switch parts[2] {
	case "status":
		h.orderStatus(w, r, orderNumber)
	case "history":
		h.orderHistory(w, r, orderNumber)
	default:
		respondError(w, "Not found", "not_found", http.StatusNotFound)
	}
}

func (h *ReportingHandler) orderStatus(w http.ResponseWriter, r *http.Request, orderNumber string) {
	result, err := h.service.GetOrderStatus(r.Context(), orderNumber)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type statusLogResponse struct {
	Status    string    `json:"status"`
	ChangedBy string    `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
}

func (h *ReportingHandler) orderHistory(w http.ResponseWriter, r *http.Request, orderNumber string) {
	logs, err := h.service.GetOrderHistory(r.Context(), orderNumber)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	out := make([]statusLogResponse, len(logs))
	for i, l := range logs {
		out[i] = statusLogResponse{
			Status:    string(l.Status),
			ChangedBy: l.ChangedBy,
			ChangedAt: l.ChangedAt,
		}
	}
	respondJSON(w, http.StatusOK, out)
}

// GetAnalytics serves GET /restaurants/{id}/analytics?period=daily&date=2026-09-01.
func (h *ReportingHandler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, "Method not allowed", "method_not_allowed", http.StatusMethodNotAllowed)
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[0] != "restaurants" || parts[2] != "analytics" {
		respondError(w, "Not found", "not_found", http.StatusNotFound)
		return
	}

	restaurantID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		respondError(w, "Invalid restaurant id", "validation_failed", http.StatusBadRequest)
		return
	}

	period := domain.Period(r.URL.Query().Get("period"))
	if period == "" {
		period = domain.PeriodDaily
	}
	if !period.Valid() {
		respondError(w, "Invalid period", "validation_failed", http.StatusBadRequest)
		return
	}

	day := time.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		day, err = time.Parse("2006-01-02", raw)
		if err != nil {
			respondError(w, "Invalid date, expected YYYY-MM-DD", "validation_failed", http.StatusBadRequest)
			return
		}
	}

	summary, err := h.service.GetAnalytics(r.Context(), restaurantID, period, day)
	if err != nil {
		h.logger.Error("analytics_failed", "Failed to build analytics summary", "", map[string]interface{}{
			"restaurant_id": restaurantID,
			"period":        string(period),
		}, err)
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}
