package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bekzatkz/dastarhan/internal/adapter/logger"
	"github.com/bekzatkz/dastarhan/internal/domain"
	"github.com/bekzatkz/dastarhan/internal/interfaces"
)

// actionTargets maps operator verbs 1:1 onto lifecycle transitions.
var actionTargets = map[string]domain.Status{
	"accept":           domain.StatusAccepted,
	"reject":           domain.StatusRejected,
	"start_preparing":  domain.StatusPreparing,
	"mark_ready":       domain.StatusReady,
	"out_for_delivery": domain.StatusOutForDelivery,
	"mark_delivered":   domain.StatusDelivered,
}

// OperatorHandler is the operator API: accept/reject/…/cancel commands
// against an existing order.
type OperatorHandler struct {
	orchestrator interfaces.OrderOrchestrator
	logger       logger.Logger
}

func NewOperatorHandler(orchestrator interfaces.OrderOrchestrator, logger logger.Logger) *OperatorHandler {
	return &OperatorHandler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

type TransitionRequest struct {
	Action string `json:"action"`
	Actor  string `json:"actor"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
	Actor  string `json:"actor"`
}

type RatingRequest struct {
	Rating int `json:"rating"`
}

// HandleOrders routes POST /orders/{number}/{status|cancel|rating}.
func (h *OperatorHandler) HandleOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, "Method not allowed", "method_not_allowed", http.StatusMethodNotAllowed)
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[0] != "orders" {
		respondError(w, "Not found", "not_found", http.StatusNotFound)
		return
	}
	orderNumber := parts[1]

	switch parts[2] {
	case "status":
		h.transition(w, r, orderNumber)
	case "cancel":
		h.cancel(w, r, orderNumber)
	case "rating":
		h.rate(w, r, orderNumber)
	default:
		respondError(w, "Not found", "not_found", http.StatusNotFound)
	}
}

func (h *OperatorHandler) transition(w http.ResponseWriter, r *http.Request, orderNumber string) {
	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", "bad_request", http.StatusBadRequest)
		return
	}

	target, ok := actionTargets[req.Action]
	if !ok {
		respondError(w, "Unknown action", "validation_failed", http.StatusBadRequest)
		return
	}

	order, err := h.orchestrator.Transition(r.Context(), orderNumber, target, req.Actor)
	if err != nil {
		h.logger.Error("transition_failed", "Order transition failed", orderNumber, map[string]interface{}{
			"action": req.Action,
		}, err)
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *OperatorHandler) cancel(w http.ResponseWriter, r *http.Request, orderNumber string) {
	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", "bad_request", http.StatusBadRequest)
		return
	}

	order, err := h.orchestrator.CancelOrder(r.Context(), orderNumber, req.Reason, req.Actor)
	if err != nil {
		h.logger.Error("cancel_failed", "Order cancellation failed", orderNumber, nil, err)
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *OperatorHandler) rate(w http.ResponseWriter, r *http.Request, orderNumber string) {
	var req RatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", "bad_request", http.StatusBadRequest)
		return
	}

	order, err := h.orchestrator.RecordRating(r.Context(), orderNumber, req.Rating)
	if err != nil {
		h.logger.Error("rating_failed", "Rating submission failed", orderNumber, nil, err)
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toOrderResponse(order))
}
