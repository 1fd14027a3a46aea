package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/shoplite/shoplite-api/internal/domain"
	"github.com/shoplite/shoplite-api/internal/http/response"
)

// ListProducts handles GET /api/products.
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 20)
	if page < 1 {
		page = 1
	}

	products, err := h.Products.List(r.Context(), limit, (page-1)*limit)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	count := len(products)
	response.JSON(w, http.StatusOK, response.Envelope{
		Success: true,
		Data:    products,
		Count:   &count,
	})
}

// GetProduct handles GET /api/products/{id}.
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt64(r, "id")
	if !ok {
		response.BadRequest(w, "Invalid product id")
		return
	}

	product, err := h.Products.Get(r.Context(), id)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.OK(w, http.StatusOK, product)
}

// CreateProduct handles POST /api/admin/products.
func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	product, err := h.Products.Create(r.Context(), &req)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.OK(w, http.StatusCreated, product)
}

// UpdateProduct handles PUT /api/admin/products/{id}.
func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt64(r, "id")
	if !ok {
		response.BadRequest(w, "Invalid product id")
		return
	}

	var req domain.UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	product, err := h.Products.Update(r.Context(), id, &req)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.OK(w, http.StatusOK, product)
}

// UpdateProductInventory handles PUT /api/admin/products/{id}/inventory.
func (h *Handlers) UpdateProductInventory(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt64(r, "id")
	if !ok {
		response.BadRequest(w, "Invalid product id")
		return
	}

	var req domain.UpdateInventoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	product, err := h.Products.SetInventory(r.Context(), id, req.Inventory)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.OK(w, http.StatusOK, product)
}

// DeleteProduct handles DELETE /api/admin/products/{id}.
func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt64(r, "id")
	if !ok {
		response.BadRequest(w, "Invalid product id")
		return
	}

	if err := h.Products.Delete(r.Context(), id); err != nil {
		response.FromError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.Envelope{
		Success: true,
		Message: "Product deleted successfully",
	})
}
