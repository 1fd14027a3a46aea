package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shoplite/shoplite-api/internal/domain"
	"github.com/shoplite/shoplite-api/internal/http/response"
	"github.com/shoplite/shoplite-api/internal/service"
	"github.com/shoplite/shoplite-api/pkg/auth"
	"github.com/shoplite/shoplite-api/pkg/config"
	"github.com/shoplite/shoplite-api/pkg/logger"
)

type contextKey string

const claimsKey contextKey = "claims"

type Handlers struct {
	Auth     *service.AuthService
	Orders   *service.OrderService
	Products *service.ProductService
	Cfg      *config.Config
}

func New(authSvc *service.AuthService, orderSvc *service.OrderService, productSvc *service.ProductService, cfg *config.Config) *Handlers {
	return &Handlers{Auth: authSvc, Orders: orderSvc, Products: productSvc, Cfg: cfg}
}

// RequireJWT authenticates the bearer token and, when role is non-empty,
// additionally requires that role.
func (h *Handlers) RequireJWT(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				response.Unauthorized(w, "Authentication required")
				return
			}

			claims, err := auth.Parse(strings.TrimPrefix(header, "Bearer "), h.Cfg.Auth.JWTSecret)
			if err != nil {
				response.Unauthorized(w, "Invalid or expired token")
				return
			}

			if role != "" && claims.Role != role {
				response.Forbidden(w, "Insufficient permissions")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			ctx = context.WithValue(ctx, logger.UserIDKey, claims.Sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func claimsFrom(r *http.Request) *auth.Claims {
	claims, _ := r.Context().Value(claimsKey).(*auth.Claims)
	return claims
}

func urlParamInt64(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func isAdmin(claims *auth.Claims) bool {
	return claims != nil && claims.Role == domain.RoleAdmin
}
