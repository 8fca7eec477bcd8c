package admin

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/bissquit/fleet-garden/internal/domain"
	"github.com/bissquit/fleet-garden/internal/identity"
	"github.com/bissquit/fleet-garden/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Handler handles HTTP requests for user administration.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new admin handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers user administration routes (admin only).
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/owners", h.ListOwners)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Patch("/{id}/enabled", h.SetEnabled)
	})
}

// CreateUserRequest represents the request body for creating a user.
type CreateUserRequest struct {
	FirstName string `json:"first_name" validate:"required,min=1,max=255"`
	LastName  string `json:"last_name" validate:"required,min=1,max=255"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	Role      string `json:"role" validate:"required"`
	Enabled   *bool  `json:"enabled"`
}

// UpdateUserRequest represents the request body for updating a user.
type UpdateUserRequest struct {
	FirstName string `json:"first_name" validate:"required,min=1,max=255"`
	LastName  string `json:"last_name" validate:"required,min=1,max=255"`
	Email     string `json:"email" validate:"required,email"`
	Role      string `json:"role" validate:"required"`
	Enabled   *bool  `json:"enabled"`
}

// SetEnabledRequest represents the request body for toggling an account.
type SetEnabledRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// List handles GET /users with optional role and enabled filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var filter Filter

	if roleParam := r.URL.Query().Get("role"); roleParam != "" {
		role, err := domain.ParseRole(roleParam)
		if err != nil {
			h.handleServiceError(r, w, err)
			return
		}
		filter.Role = &role
	}
	if enabledParam := r.URL.Query().Get("enabled"); enabledParam != "" {
		enabled, err := strconv.ParseBool(enabledParam)
		if err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid enabled filter")
			return
		}
		filter.Enabled = &enabled
	}

	users, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}
	if users == nil {
		users = []domain.User{}
	}

	httputil.Success(w, http.StatusOK, users)
}

// ListOwners handles GET /users/owners.
func (h *Handler) ListOwners(w http.ResponseWriter, r *http.Request) {
	owners, err := h.service.ListOwners(r.Context())
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}
	if owners == nil {
		owners = []domain.User{}
	}

	httputil.Success(w, http.StatusOK, owners)
}

// Get handles GET /users/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.Success(w, http.StatusOK, user)
}

// Create handles POST /users.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	user, err := h.service.Create(r.Context(), CreateInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Role:      req.Role,
		Enabled:   req.Enabled,
	})
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.Success(w, http.StatusCreated, user)
}

// Update handles PUT /users/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	user, err := h.service.Update(r.Context(), id, UpdateInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Role:      req.Role,
		Enabled:   req.Enabled,
	})
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.Success(w, http.StatusOK, user)
}

// Delete handles DELETE /users/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.JSON(w, http.StatusNoContent, nil)
}

// SetEnabled handles PATCH /users/{id}/enabled.
func (h *Handler) SetEnabled(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req SetEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	caller := httputil.GetPrincipal(r.Context())
	if err := h.service.SetEnabled(r.Context(), caller, id, *req.Enabled); err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.Success(w, http.StatusOK, map[string]bool{"enabled": *req.Enabled})
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *Handler) handleServiceError(r *http.Request, w http.ResponseWriter, err error) {
	httputil.HandleError(r.Context(), w, err, []httputil.ErrorMapping{
		{Error: identity.ErrUserNotFound, Status: http.StatusNotFound},
		{Error: identity.ErrEmailTaken, Status: http.StatusConflict},
		{Error: domain.ErrEmptyRole, Status: http.StatusBadRequest},
		{Error: domain.ErrRoleNotFound, Status: http.StatusBadRequest},
		{Error: ErrSelfDisable, Status: http.StatusBadRequest},
	})
}
