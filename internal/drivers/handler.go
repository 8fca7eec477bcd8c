package drivers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/bissquit/fleet-garden/internal/access"
	"github.com/bissquit/fleet-garden/internal/domain"
	"github.com/bissquit/fleet-garden/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Handler handles HTTP requests for driver profiles.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new drivers handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterAdminRoutes registers driver management routes (admin only).
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Route("/drivers", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// RegisterDriverRoutes registers the self-service route for drivers.
func (h *Handler) RegisterDriverRoutes(r chi.Router) {
	r.Get("/drivers/me", h.Me)
}

// CreateDriverRequest represents the request body for creating a driver.
type CreateDriverRequest struct {
	FirstName     string     `json:"first_name" validate:"required,min=1,max=255"`
	LastName      string     `json:"last_name" validate:"required,min=1,max=255"`
	Email         string     `json:"email" validate:"required,email"`
	Phone         string     `json:"phone" validate:"max=32"`
	LicenseNumber string     `json:"license_number" validate:"required,min=1,max=64"`
	LicenseExpiry *time.Time `json:"license_expiry"`
	Status        string     `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE ON_LEAVE SUSPENDED"`
}

// ToDomain converts the request to a domain model.
func (r *CreateDriverRequest) ToDomain() *domain.Driver {
	return &domain.Driver{
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		Email:         r.Email,
		Phone:         r.Phone,
		LicenseNumber: r.LicenseNumber,
		LicenseExpiry: r.LicenseExpiry,
		Status:        domain.DriverStatus(r.Status),
	}
}

// UpdateDriverRequest represents the request body for updating a driver.
type UpdateDriverRequest struct {
	FirstName     string     `json:"first_name" validate:"required,min=1,max=255"`
	LastName      string     `json:"last_name" validate:"required,min=1,max=255"`
	Email         string     `json:"email" validate:"required,email"`
	Phone         string     `json:"phone" validate:"max=32"`
	LicenseNumber string     `json:"license_number" validate:"required,min=1,max=64"`
	LicenseExpiry *time.Time `json:"license_expiry"`
	EcoScore      float64    `json:"eco_score" validate:"min=0,max=100"`
	Status        string     `json:"status" validate:"required,oneof=ACTIVE INACTIVE ON_LEAVE SUSPENDED"`
}

// Create handles POST /drivers.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateDriverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	driver := req.ToDomain()
	if err := h.service.Create(r.Context(), driver); err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.Success(w, http.StatusCreated, driver)
}

// Get handles GET /drivers/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid driver id")
		return
	}

	driver, err := h.service.Get(r.Context(), httputil.GetPrincipal(r.Context()), id)
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.Success(w, http.StatusOK, driver)
}

// Me handles GET /drivers/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	driver, err := h.service.Me(r.Context(), httputil.GetPrincipal(r.Context()))
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.Success(w, http.StatusOK, driver)
}

// List handles GET /drivers with an optional status filter.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var filter Filter
	if statusParam := r.URL.Query().Get("status"); statusParam != "" {
		status := domain.DriverStatus(statusParam)
		filter.Status = &status
	}

	result, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}
	if result == nil {
		result = []domain.Driver{}
	}

	httputil.Success(w, http.StatusOK, result)
}

// Update handles PUT /drivers/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid driver id")
		return
	}

	var req UpdateDriverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	driver := &domain.Driver{
		ID:            id,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         req.Email,
		Phone:         req.Phone,
		LicenseNumber: req.LicenseNumber,
		LicenseExpiry: req.LicenseExpiry,
		EcoScore:      req.EcoScore,
		Status:        domain.DriverStatus(req.Status),
	}
	if err := h.service.Update(r.Context(), driver); err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.Success(w, http.StatusOK, driver)
}

// Delete handles DELETE /drivers/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid driver id")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.JSON(w, http.StatusNoContent, nil)
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *Handler) handleServiceError(r *http.Request, w http.ResponseWriter, err error) {
	httputil.HandleError(r.Context(), w, err, []httputil.ErrorMapping{
		{Error: ErrDriverNotFound, Status: http.StatusNotFound},
		{Error: ErrLicenseTaken, Status: http.StatusConflict},
		{Error: ErrEmailTaken, Status: http.StatusConflict},
		{Error: ErrInvalidStatus, Status: http.StatusBadRequest},
		{Error: access.ErrForbidden, Status: http.StatusForbidden},
	})
}
