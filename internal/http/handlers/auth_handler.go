package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/shoplite/shoplite-api/internal/domain"
	"github.com/shoplite/shoplite-api/internal/http/response"
)

// SendOTP handles POST /api/auth/send-otp.
func (h *Handlers) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.Auth.SendOTP(r.Context(), req.Email); err != nil {
		response.FromError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.Envelope{
		Success: true,
		Message: "OTP sent to your email",
	})
}

// Register handles POST /api/auth/register.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	resp, err := h.Auth.Register(r.Context(), &req)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.OK(w, http.StatusCreated, resp)
}

// Login handles POST /api/auth/login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	resp, err := h.Auth.Login(r.Context(), &req)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.OK(w, http.StatusOK, resp)
}

// Me handles GET /api/auth/me.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	if claims == nil {
		response.Unauthorized(w, "Authentication required")
		return
	}

	user, err := h.Auth.GetMe(r.Context(), claims.Sub)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.OK(w, http.StatusOK, user)
}
