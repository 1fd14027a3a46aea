package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/shoplite/shoplite-api/internal/domain"
	"github.com/shoplite/shoplite-api/internal/http/response"
)

// CreateOrder handles POST /api/orders.
func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	if claims == nil {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req domain.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	order, notif, err := h.Orders.Create(r.Context(), claims.Sub, &req)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.Envelope{
		Success:       true,
		Message:       "Order placed successfully",
		Data:          order,
		Notifications: notif,
	})
}

// ListMyOrders handles GET /api/orders.
func (h *Handlers) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	if claims == nil {
		response.Unauthorized(w, "Authentication required")
		return
	}

	orders, err := h.Orders.ListMine(r.Context(), claims.Sub)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	count := len(orders)
	response.JSON(w, http.StatusOK, response.Envelope{
		Success: true,
		Data:    orders,
		Count:   &count,
	})
}

// GetOrder handles GET /api/orders/{id}.
func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	if claims == nil {
		response.Unauthorized(w, "Authentication required")
		return
	}

	id, ok := urlParamInt64(r, "id")
	if !ok {
		response.BadRequest(w, "Invalid order id")
		return
	}

	order, err := h.Orders.Get(r.Context(), id, claims.Sub, isAdmin(claims))
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.OK(w, http.StatusOK, order)
}

// CancelOrder handles PUT /api/orders/{id}/cancel.
func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	if claims == nil {
		response.Unauthorized(w, "Authentication required")
		return
	}

	id, ok := urlParamInt64(r, "id")
	if !ok {
		response.BadRequest(w, "Invalid order id")
		return
	}

	order, err := h.Orders.Cancel(r.Context(), id, claims.Sub)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.Envelope{
		Success: true,
		Message: "Order cancelled successfully",
		Data:    order,
	})
}
