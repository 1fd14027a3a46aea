package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shoplite/shoplite-api/internal/domain"
)

// Routes assembles the API router. otpLimiter guards the OTP endpoint; pass
// nil to disable rate limiting (tests).
func (h *Handlers) Routes(otpLimiter func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			if otpLimiter != nil {
				r.With(otpLimiter).Post("/send-otp", h.SendOTP)
			} else {
				r.Post("/send-otp", h.SendOTP)
			}
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.With(h.RequireJWT("")).Get("/me", h.Me)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Get("/{id}", h.GetProduct)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(h.RequireJWT(""))
			r.Post("/", h.CreateOrder)
			r.Get("/", h.ListMyOrders)
			r.Get("/{id}", h.GetOrder)
			r.Put("/{id}/cancel", h.CancelOrder)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.RequireJWT(domain.RoleAdmin))
			r.Get("/orders", h.ListAllOrders)
			r.Put("/orders/{id}/status", h.UpdateOrderStatus)

			r.Post("/products", h.CreateProduct)
			r.Put("/products/{id}", h.UpdateProduct)
			r.Put("/products/{id}/inventory", h.UpdateProductInventory)
			r.Delete("/products/{id}", h.DeleteProduct)
		})
	})

	return r
}
