package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bekzatkz/dastarhan/internal/adapter/logger"
	"github.com/bekzatkz/dastarhan/internal/domain"
	"github.com/bekzatkz/dastarhan/internal/interfaces"
)

// OrderHandler is the intake API: it accepts createOrder commands.
type OrderHandler struct {
	orchestrator interfaces.OrderOrchestrator
	logger       logger.Logger
}

func NewOrderHandler(orchestrator interfaces.OrderOrchestrator, logger logger.Logger) *OrderHandler {
	return &OrderHandler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

type CreateOrderRequest struct {
	CustomerID      int64              `json:"customer_id"`
	RestaurantID    int64              `json:"restaurant_id"`
	OrderType       string             `json:"order_type"`
	DeliveryAddress *string            `json:"delivery_address,omitempty"`
	PaymentMethod   string             `json:"payment_method"`
	Discount        float64            `json:"discount"`
	Items           []OrderItemRequest `json:"items"`
}

type OrderItemRequest struct {
	MenuItemID int64          `json:"menu_item_id"`
	Quantity   int            `json:"quantity"`
	AddOns     []domain.AddOn `json:"add_ons,omitempty"`
}

type OrderResponse struct {
	OrderNumber string               `json:"order_number"`
	Status      string               `json:"status"`
	Pricing     domain.Pricing       `json:"pricing"`
	Payment     domain.Payment       `json:"payment"`
	Timing      domain.Timing        `json:"timing"`
	Items       []domain.LineItem    `json:"items"`
	Cancel      *domain.Cancellation `json:"cancellation,omitempty"`
	Rating      *int                 `json:"rating,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, "Method not allowed", "method_not_allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", "bad_request", http.StatusBadRequest)
		return
	}

	cmd := interfaces.CreateOrderCommand{
		CustomerID:      req.CustomerID,
		RestaurantID:    req.RestaurantID,
		OrderType:       req.OrderType,
		DeliveryAddress: req.DeliveryAddress,
		PaymentMethod:   req.PaymentMethod,
		Discount:        req.Discount,
		Items:           convertItems(req.Items),
	}

	order, err := h.orchestrator.CreateOrder(r.Context(), cmd)
	if err != nil {
		h.logger.Error("order_creation_failed", "Failed to create order", "", nil, err)
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, toOrderResponse(order))
}

func convertItems(in []OrderItemRequest) []interfaces.CreateOrderItemCommand {
	out := make([]interfaces.CreateOrderItemCommand, len(in))
	for i, item := range in {
		out[i] = interfaces.CreateOrderItemCommand{
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
			AddOns:     item.AddOns,
		}
	}
	return out
}

func toOrderResponse(order *domain.Order) OrderResponse {
	return OrderResponse{
		OrderNumber: order.Number,
		Status:      string(order.Status),
		Pricing:     order.Pricing,
		Payment:     order.Payment,
		Timing:      order.Timing,
		Items:       order.Items,
		Cancel:      order.Cancellation,
		Rating:      order.Rating,
	}
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, message, code string, status int) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// respondServiceError maps the error taxonomy to HTTP statuses.
func respondServiceError(w http.ResponseWriter, err error) {
	var (
		transitionErr  *domain.InvalidTransitionError
		unavailableErr *domain.ItemUnavailableError
		conflictErr    *domain.ConcurrencyConflictError
	)

	switch {
	case errors.As(err, &transitionErr):
		respondError(w, transitionErr.Error(), "invalid_transition", http.StatusConflict)
	case errors.As(err, &unavailableErr):
		respondError(w, unavailableErr.Error(), "item_unavailable", http.StatusConflict)
	case errors.As(err, &conflictErr):
		respondError(w, conflictErr.Error(), "concurrency_conflict", http.StatusConflict)
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrMenuItemNotFound):
		respondError(w, err.Error(), "not_found", http.StatusNotFound)
	case errors.Is(err, domain.ErrEmptyOrder),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidDiscount),
		errors.Is(err, domain.ErrInvalidRating),
		errors.Is(err, domain.ErrOrderNotRated):
		respondError(w, err.Error(), "validation_failed", http.StatusBadRequest)
	default:
		respondError(w, "Internal server error", "internal", http.StatusInternalServerError)
	}
}
