package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/google/go-querystring/query"
	"github.com/shoplite/shoplite-api/internal/domain"
)

type listQuery struct {
	Page   int    `url:"page,omitempty"`
	Limit  int    `url:"limit,omitempty"`
	Status string `url:"status,omitempty"`
}

func adminListURL(base string, q listQuery) string {
	v, _ := query.Values(q)
	return base + "/api/admin/orders?" + v.Encode()
}

func seedOrders(t *testing.T, env *testEnv, token string, n int) []domain.Order {
	t.Helper()
	env.orders.addProduct(1, "Keyboard", 4999, 1000)

	orders := make([]domain.Order, 0, n)
	for i := 0; i < n; i++ {
		resp := doJSON(t, "POST", env.server.URL+"/api/orders", token,
			orderBody(domain.CreateOrderItem{ProductID: 1, Quantity: 1}), http.StatusCreated)
		var o domain.Order
		decodeData(t, resp, &o)
		orders = append(orders, o)
	}
	return orders
}

func TestAdminOrders_List_Pagination(t *testing.T) {
	env := setupTestServer(t)
	_, customerToken := env.newUser(t, "buyer@example.com", domain.RoleCustomer)
	_, adminToken := env.newUser(t, "admin@example.com", domain.RoleAdmin)
	seedOrders(t, env, customerToken, 7)

	resp := doJSON(t, "GET", adminListURL(env.server.URL, listQuery{Page: 2, Limit: 3}),
		adminToken, nil, http.StatusOK)

	var got []domain.Order
	decodeData(t, resp, &got)
	if len(got) != 3 {
		t.Fatalf("expected 3 orders on page 2, got %d", len(got))
	}
	p := resp.Pagination
	if p == nil || p.Page != 2 || p.Limit != 3 || p.Total != 7 || p.Pages != 3 {
		t.Fatalf("unexpected pagination: %+v", p)
	}
}

func TestAdminOrders_List_StatusFilter(t *testing.T) {
	env := setupTestServer(t)
	_, customerToken := env.newUser(t, "buyer@example.com", domain.RoleCustomer)
	_, adminToken := env.newUser(t, "admin@example.com", domain.RoleAdmin)
	orders := seedOrders(t, env, customerToken, 3)

	doJSON(t, "PUT", env.server.URL+fmt.Sprintf("/api/admin/orders/%d/status", orders[0].ID),
		adminToken, map[string]string{"status": "shipped"}, http.StatusOK)

	resp := doJSON(t, "GET", adminListURL(env.server.URL, listQuery{Status: "shipped"}),
		adminToken, nil, http.StatusOK)

	var got []domain.Order
	decodeData(t, resp, &got)
	if len(got) != 1 || got[0].ID != orders[0].ID {
		t.Fatalf("expected only the shipped order, got %+v", got)
	}
	if resp.Pagination == nil || resp.Pagination.Total != 1 {
		t.Fatalf("expected total 1, got %+v", resp.Pagination)
	}
}

func TestAdminOrders_List_InvalidStatus_BadRequest(t *testing.T) {
	env := setupTestServer(t)
	_, adminToken := env.newUser(t, "admin@example.com", domain.RoleAdmin)

	doJSON(t, "GET", adminListURL(env.server.URL, listQuery{Status: "teleported"}),
		adminToken, nil, http.StatusBadRequest)
}

func TestAdminOrders_UpdateStatus_Message(t *testing.T) {
	env := setupTestServer(t)
	_, customerToken := env.newUser(t, "buyer@example.com", domain.RoleCustomer)
	_, adminToken := env.newUser(t, "admin@example.com", domain.RoleAdmin)
	orders := seedOrders(t, env, customerToken, 1)

	resp := doJSON(t, "PUT", env.server.URL+fmt.Sprintf("/api/admin/orders/%d/status", orders[0].ID),
		adminToken, map[string]string{"status": "processing"}, http.StatusOK)

	if resp.Message != "Order status updated to processing" {
		t.Fatalf("unexpected message: %q", resp.Message)
	}
	var got domain.Order
	decodeData(t, resp, &got)
	if got.Status != domain.OrderProcessing {
		t.Fatalf("expected processing, got %s", got.Status)
	}
}

func TestAdminOrders_CancelFromProcessing_RestoresInventoryOnce(t *testing.T) {
	env := setupTestServer(t)
	_, customerToken := env.newUser(t, "buyer@example.com", domain.RoleCustomer)
	_, adminToken := env.newUser(t, "admin@example.com", domain.RoleAdmin)
	orders := seedOrders(t, env, customerToken, 1)
	url := env.server.URL + fmt.Sprintf("/api/admin/orders/%d/status", orders[0].ID)

	doJSON(t, "PUT", url, adminToken, map[string]string{"status": "processing"}, http.StatusOK)
	if env.orders.inventory(1) != 999 {
		t.Fatalf("expected inventory 999, got %d", env.orders.inventory(1))
	}

	doJSON(t, "PUT", url, adminToken, map[string]string{"status": "cancelled"}, http.StatusOK)
	if env.orders.inventory(1) != 1000 {
		t.Fatalf("expected inventory restored to 1000, got %d", env.orders.inventory(1))
	}

	// Cancelling an already-cancelled order must not restore again.
	doJSON(t, "PUT", url, adminToken, map[string]string{"status": "cancelled"}, http.StatusOK)
	if env.orders.inventory(1) != 1000 {
		t.Fatalf("expected no double restore, got %d", env.orders.inventory(1))
	}
}

func TestAdminOrders_UpdateStatus_Errors(t *testing.T) {
	env := setupTestServer(t)
	_, customerToken := env.newUser(t, "buyer@example.com", domain.RoleCustomer)
	_, adminToken := env.newUser(t, "admin@example.com", domain.RoleAdmin)
	orders := seedOrders(t, env, customerToken, 1)

	doJSON(t, "PUT", env.server.URL+fmt.Sprintf("/api/admin/orders/%d/status", orders[0].ID),
		adminToken, map[string]string{"status": "lost-in-transit"}, http.StatusBadRequest)
	doJSON(t, "PUT", env.server.URL+"/api/admin/orders/9999/status",
		adminToken, map[string]string{"status": "shipped"}, http.StatusNotFound)
}

func TestAdminOrders_RequireAdminRole(t *testing.T) {
	env := setupTestServer(t)
	_, customerToken := env.newUser(t, "buyer@example.com", domain.RoleCustomer)

	doJSON(t, "GET", env.server.URL+"/api/admin/orders", customerToken, nil, http.StatusForbidden)
	doJSON(t, "GET", env.server.URL+"/api/admin/orders", "", nil, http.StatusUnauthorized)
	doJSON(t, "PUT", env.server.URL+"/api/admin/orders/1/status", customerToken,
		map[string]string{"status": "shipped"}, http.StatusForbidden)
}
