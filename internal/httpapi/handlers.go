package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/himspired1/himspired-sub000/internal/catalog"
	"github.com/himspired1/himspired-sub000/internal/domain"
	"github.com/himspired1/himspired-sub000/internal/inventory"
	"github.com/himspired1/himspired-sub000/internal/orders"
)

type InventoryHandler struct {
	inventory *inventory.Service
	orders    *orders.Service
}

func NewInventoryHandler(inv *inventory.Service, ord *orders.Service) *InventoryHandler {
	return &InventoryHandler{
		inventory: inv,
		orders:    ord,
	}
}

type ReserveRequestDTO struct {
	SessionID string `json:"sessionId"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
	IsUpdate  bool   `json:"isUpdate,omitempty"`
}

type ReserveResponseDTO struct {
	Success        bool   `json:"success"`
	ReservationID  string `json:"reservationId,omitempty"`
	ReservedUntil  string `json:"reservedUntil,omitempty"`
	AvailableStock int    `json:"availableStock"`
	Error          string `json:"error,omitempty"`
}

type StockResponseDTO struct {
	Stock            int    `json:"stock"`
	AvailableStock   int    `json:"availableStock"`
	ReservedQuantity int    `json:"reservedQuantity"`
	StockMessage     string `json:"stockMessage"`
}

type CleanupRequestDTO struct {
	SessionID string `json:"sessionId,omitempty"`
	ClearAll  bool   `json:"clearAll,omitempty"`
}

type CreateOrderRequestDTO struct {
	SessionID string             `json:"sessionId"`
	Items     []domain.OrderItem `json:"items"`
}

type TransitionRequestDTO struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func (h *InventoryHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product id is required")
		return
	}
	sessionID := r.URL.Query().Get("sessionId")

	snap, err := h.inventory.Availability(r.Context(), productID, sessionID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, snap)
}

func (h *InventoryHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product id is required")
		return
	}
	sessionID := r.URL.Query().Get("sessionId")

	snap, err := h.inventory.Availability(r.Context(), productID, sessionID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, StockResponseDTO{
		Stock:            snap.Stock,
		AvailableStock:   snap.AvailableStock,
		ReservedQuantity: snap.ReservedByCaller,
		StockMessage:     snap.Message,
	})
}

// Reserve handles add-to-cart holds with the short horizon.
func (h *InventoryHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	h.reserve(w, r, inventory.CartHorizon)
}

// CheckoutReserve extends the hold to the long checkout horizon.
func (h *InventoryHandler) CheckoutReserve(w http.ResponseWriter, r *http.Request) {
	h.reserve(w, r, inventory.CheckoutHorizon)
}

func (h *InventoryHandler) reserve(w http.ResponseWriter, r *http.Request, horizon time.Duration) {
	productID := chi.URLParam(r, "productID")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product id is required")
		return
	}

	var req ReserveRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.SessionID == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "sessionId is required")
		return
	}
	if req.Quantity <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be a positive integer")
		return
	}

	result, err := h.inventory.Reserve(r.Context(), inventory.ReserveRequest{
		ProductID: productID,
		HolderID:  req.SessionID,
		Quantity:  req.Quantity,
		Size:      req.Size,
		IsUpdate:  req.IsUpdate,
		Horizon:   horizon,
	})
	if err != nil {
		var insufficient *inventory.InsufficientStockError
		if errors.As(err, &insufficient) {
			// Business-rule rejection, not a transport failure: 200 so the
			// storefront can render it inline next to the size picker.
			respondJSON(w, http.StatusOK, ReserveResponseDTO{
				Success:        false,
				Error:          insufficient.Error(),
				AvailableStock: insufficient.Available,
			})
			return
		}
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, ReserveResponseDTO{
		Success:        true,
		ReservationID:  result.ReservationID,
		ReservedUntil:  result.ReservedUntil.Format(time.RFC3339),
		AvailableStock: result.AvailableStock,
	})
}

// ForceCleanup is the admin release endpoint; bearer auth is enforced by
// middleware on the route.
func (h *InventoryHandler) ForceCleanup(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product id is required")
		return
	}

	var req CleanupRequestDTO
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}
	}

	result, err := h.inventory.Cleanup(r.Context(), inventory.CleanupRequest{
		ProductID: productID,
		HolderID:  req.SessionID,
		ClearAll:  req.ClearAll,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (h *InventoryHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.SessionID == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "sessionId is required")
		return
	}
	if len(req.Items) == 0 {
		respondError(w, http.StatusBadRequest, "invalid_items", "order must contain at least one item")
		return
	}

	order := &domain.Order{
		SessionID: req.SessionID,
		Status:    domain.OrderStatusPaymentPending,
		Items:     req.Items,
	}
	if err := h.orders.Create(r.Context(), order); err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, order)
}

// TransitionOrder applies an admin status change. Moving into
// payment_confirmed commits the sale.
func (h *InventoryHandler) TransitionOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var req TransitionRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	order, err := h.orders.Transition(r.Context(), orderID, domain.OrderStatus(req.Status))
	if err != nil {
		if errors.Is(err, orders.ErrInvalidTransition) {
			respondError(w, http.StatusConflict, "invalid_transition", err.Error())
			return
		}
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, inventory.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, catalog.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "not_found", "product not found")
	case errors.Is(err, orders.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "not_found", "order not found")
	case errors.Is(err, inventory.ErrConflict):
		respondError(w, http.StatusServiceUnavailable, "conflict_retry", "another shopper updated this product, please retry")
	default:
		log.Printf("upstream error: %v", err)
		respondError(w, http.StatusServiceUnavailable, "upstream_unavailable", "store temporarily unavailable, please retry")
	}
}
