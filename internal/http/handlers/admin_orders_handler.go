package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shoplite/shoplite-api/internal/http/response"
)

// ListAllOrders handles GET /api/admin/orders with page, limit and status
// query parameters.
func (h *Handlers) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 10)
	status := r.URL.Query().Get("status")

	orders, pagination, err := h.Orders.ListAll(r.Context(), page, limit, status)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	count := len(orders)
	response.JSON(w, http.StatusOK, response.Envelope{
		Success:    true,
		Data:       orders,
		Count:      &count,
		Pagination: pagination,
	})
}

// UpdateOrderStatus handles PUT /api/admin/orders/{id}/status.
func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt64(r, "id")
	if !ok {
		response.BadRequest(w, "Invalid order id")
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	order, err := h.Orders.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.Envelope{
		Success: true,
		Message: fmt.Sprintf("Order status updated to %s", order.Status),
		Data:    order,
	})
}
