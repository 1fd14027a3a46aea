package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/shoplite/shoplite-api/internal/domain"
)

func TestProducts_AdminCreateAndPublicGet(t *testing.T) {
	env := setupTestServer(t)
	_, adminToken := env.newUser(t, "admin@example.com", domain.RoleAdmin)

	created := doJSON(t, "POST", env.server.URL+"/api/admin/products", adminToken,
		domain.CreateProductRequest{Name: "Keyboard", Price: 4999, Inventory: 10},
		http.StatusCreated)

	var p domain.Product
	decodeData(t, created, &p)
	if p.ID == 0 || p.Price != 4999 || p.Inventory != 10 {
		t.Fatalf("unexpected product: %+v", p)
	}

	// Catalog reads are public.
	got := doJSON(t, "GET", env.server.URL+fmt.Sprintf("/api/products/%d", p.ID),
		"", nil, http.StatusOK)
	var fetched domain.Product
	decodeData(t, got, &fetched)
	if fetched.Name != "Keyboard" {
		t.Fatalf("unexpected product name: %q", fetched.Name)
	}

	list := doJSON(t, "GET", env.server.URL+"/api/products", "", nil, http.StatusOK)
	if list.Count == nil || *list.Count != 1 {
		t.Fatalf("expected count 1, got %v", list.Count)
	}
}

func TestProducts_Create_Validation(t *testing.T) {
	env := setupTestServer(t)
	_, adminToken := env.newUser(t, "admin@example.com", domain.RoleAdmin)

	tests := []struct {
		name string
		req  domain.CreateProductRequest
	}{
		{"empty name", domain.CreateProductRequest{Price: 100, Inventory: 1}},
		{"zero price", domain.CreateProductRequest{Name: "X", Inventory: 1}},
		{"negative inventory", domain.CreateProductRequest{Name: "X", Price: 100, Inventory: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doJSON(t, "POST", env.server.URL+"/api/admin/products", adminToken,
				tt.req, http.StatusBadRequest)
		})
	}
}

func TestProducts_UpdateAndInventory(t *testing.T) {
	env := setupTestServer(t)
	_, adminToken := env.newUser(t, "admin@example.com", domain.RoleAdmin)
	env.orders.addProduct(1, "Keyboard", 4999, 10)

	resp := doJSON(t, "PUT", env.server.URL+"/api/admin/products/1", adminToken,
		domain.UpdateProductRequest{Name: "Mechanical Keyboard", Price: 7999}, http.StatusOK)
	var p domain.Product
	decodeData(t, resp, &p)
	if p.Name != "Mechanical Keyboard" || p.Price != 7999 {
		t.Fatalf("unexpected product after update: %+v", p)
	}
	if p.Inventory != 10 {
		t.Fatalf("expected inventory untouched by update, got %d", p.Inventory)
	}

	resp = doJSON(t, "PUT", env.server.URL+"/api/admin/products/1/inventory", adminToken,
		domain.UpdateInventoryRequest{Inventory: 25}, http.StatusOK)
	decodeData(t, resp, &p)
	if p.Inventory != 25 {
		t.Fatalf("expected inventory 25, got %d", p.Inventory)
	}

	doJSON(t, "PUT", env.server.URL+"/api/admin/products/1/inventory", adminToken,
		domain.UpdateInventoryRequest{Inventory: -5}, http.StatusBadRequest)
}

func TestProducts_DeleteAndNotFound(t *testing.T) {
	env := setupTestServer(t)
	_, adminToken := env.newUser(t, "admin@example.com", domain.RoleAdmin)
	env.orders.addProduct(1, "Keyboard", 4999, 10)

	doJSON(t, "DELETE", env.server.URL+"/api/admin/products/1", adminToken, nil, http.StatusOK)
	doJSON(t, "GET", env.server.URL+"/api/products/1", "", nil, http.StatusNotFound)
	doJSON(t, "DELETE", env.server.URL+"/api/admin/products/1", adminToken, nil, http.StatusNotFound)
	doJSON(t, "PUT", env.server.URL+"/api/admin/products/99", adminToken,
		domain.UpdateProductRequest{Name: "X", Price: 1}, http.StatusNotFound)
}

func TestProducts_AdminRoutesRequireAdmin(t *testing.T) {
	env := setupTestServer(t)
	_, customerToken := env.newUser(t, "buyer@example.com", domain.RoleCustomer)

	doJSON(t, "POST", env.server.URL+"/api/admin/products", customerToken,
		domain.CreateProductRequest{Name: "X", Price: 1, Inventory: 1}, http.StatusForbidden)
	doJSON(t, "DELETE", env.server.URL+"/api/admin/products/1", "", nil, http.StatusUnauthorized)
}
