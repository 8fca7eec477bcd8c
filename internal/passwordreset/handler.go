package passwordreset

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/bissquit/fleet-garden/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Handler exposes the password reset endpoints.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// NewHandler creates a password reset handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the public reset endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/forgot-password", h.Forgot)
	r.Post("/auth/reset-password", h.Reset)
}

// ForgotRequest is the request body for initiating a reset.
type ForgotRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetRequest is the request body for redeeming a token.
type ResetRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// Forgot handles POST /auth/forgot-password. The response is identical
// whether or not the email belongs to an account.
func (h *Handler) Forgot(w http.ResponseWriter, r *http.Request) {
	var req ForgotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	if err := h.service.Request(r.Context(), req.Email); err != nil {
		httputil.HandleError(r.Context(), w, err, nil)
		return
	}

	httputil.Success(w, http.StatusOK, map[string]string{
		"message": "If an account with that email exists, a password reset link has been sent.",
	})
}

// Reset handles POST /auth/reset-password.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	if err := h.service.Redeem(r.Context(), req.Token, req.NewPassword); err != nil {
		h.handleServiceError(r.Context(), w, err)
		return
	}

	httputil.Success(w, http.StatusOK, map[string]string{
		"message": "Password has been reset successfully.",
	})
}

func (h *Handler) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	httputil.HandleError(ctx, w, err, []httputil.ErrorMapping{
		{Error: ErrTokenInvalid, Status: http.StatusBadRequest},
		{Error: ErrTokenUsed, Status: http.StatusBadRequest},
		{Error: ErrTokenExpired, Status: http.StatusBadRequest},
	})
}
