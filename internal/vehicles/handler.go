package vehicles

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/bissquit/fleet-garden/internal/access"
	"github.com/bissquit/fleet-garden/internal/domain"
	"github.com/bissquit/fleet-garden/internal/drivers"
	"github.com/bissquit/fleet-garden/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Handler handles HTTP requests for vehicles.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new vehicles handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers vehicle routes for authenticated users. The
// service scopes results and checks ownership per request, so a single
// route group serves all roles.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/vehicles", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/my", h.MyVehicles)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/driver/{driverID}", h.AssignDriver)
		r.Delete("/{id}/driver", h.RemoveDriver)
	})
}

// VehicleRequest represents the request body for creating or updating a vehicle.
type VehicleRequest struct {
	RegistrationNumber  string     `json:"registration_number" validate:"required,min=1,max=32"`
	Brand               string     `json:"brand" validate:"required,min=1,max=255"`
	Model               string     `json:"model" validate:"required,min=1,max=255"`
	Year                int        `json:"year" validate:"required,min=1900,max=2100"`
	Color               string     `json:"color" validate:"max=64"`
	VIN                 *string    `json:"vin" validate:"omitempty,len=17"`
	FuelType            string     `json:"fuel_type" validate:"required,oneof=PETROL DIESEL ELECTRIC HYBRID LPG"`
	Transmission        string     `json:"transmission" validate:"required,oneof=MANUAL AUTOMATIC"`
	Status              string     `json:"status" validate:"omitempty,oneof=ACTIVE MAINTENANCE OUT_OF_SERVICE RETIRED"`
	Mileage             float64    `json:"mileage" validate:"min=0"`
	LastMaintenanceDate *time.Time `json:"last_maintenance_date"`
	NextMaintenanceDate *time.Time `json:"next_maintenance_date"`
	OwnerID             int64      `json:"owner_id"`
}

// ToDomain converts the request to a domain model.
func (r *VehicleRequest) ToDomain() *domain.Vehicle {
	return &domain.Vehicle{
		RegistrationNumber:  r.RegistrationNumber,
		Brand:               r.Brand,
		Model:               r.Model,
		Year:                r.Year,
		Color:               r.Color,
		VIN:                 r.VIN,
		FuelType:            domain.FuelType(r.FuelType),
		Transmission:        domain.TransmissionType(r.Transmission),
		Status:              domain.VehicleStatus(r.Status),
		Mileage:             r.Mileage,
		LastMaintenanceDate: r.LastMaintenanceDate,
		NextMaintenanceDate: r.NextMaintenanceDate,
		OwnerID:             r.OwnerID,
	}
}

// Create handles POST /vehicles.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req VehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	vehicle := req.ToDomain()
	if err := h.service.Create(r.Context(), httputil.GetPrincipal(r.Context()), vehicle); err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.Success(w, http.StatusCreated, vehicle)
}

// Get handles GET /vehicles/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid vehicle id")
		return
	}

	vehicle, err := h.service.Get(r.Context(), httputil.GetPrincipal(r.Context()), id)
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.Success(w, http.StatusOK, vehicle)
}

// List handles GET /vehicles with an optional status filter. Results are
// scoped to what the caller may see.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var filter Filter
	if statusParam := r.URL.Query().Get("status"); statusParam != "" {
		status := domain.VehicleStatus(statusParam)
		filter.Status = &status
	}

	result, err := h.service.List(r.Context(), httputil.GetPrincipal(r.Context()), filter)
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}
	if result == nil {
		result = []domain.Vehicle{}
	}

	httputil.Success(w, http.StatusOK, result)
}

// MyVehicles handles GET /vehicles/my, an alias for the scoped list.
func (h *Handler) MyVehicles(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.List(r.Context(), httputil.GetPrincipal(r.Context()), Filter{})
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}
	if result == nil {
		result = []domain.Vehicle{}
	}

	httputil.Success(w, http.StatusOK, result)
}

// Update handles PUT /vehicles/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid vehicle id")
		return
	}

	var req VehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	vehicle := req.ToDomain()
	vehicle.ID = id
	if err := h.service.Update(r.Context(), httputil.GetPrincipal(r.Context()), vehicle); err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.Success(w, http.StatusOK, vehicle)
}

// Delete handles DELETE /vehicles/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid vehicle id")
		return
	}

	if err := h.service.Delete(r.Context(), httputil.GetPrincipal(r.Context()), id); err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.JSON(w, http.StatusNoContent, nil)
}

// AssignDriver handles POST /vehicles/{id}/driver/{driverID}.
func (h *Handler) AssignDriver(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := parseID(r, "id")
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid vehicle id")
		return
	}
	driverID, err := parseID(r, "driverID")
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid driver id")
		return
	}

	vehicle, err := h.service.AssignDriver(r.Context(), httputil.GetPrincipal(r.Context()), vehicleID, driverID)
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.Success(w, http.StatusOK, vehicle)
}

// RemoveDriver handles DELETE /vehicles/{id}/driver.
func (h *Handler) RemoveDriver(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := parseID(r, "id")
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid vehicle id")
		return
	}

	vehicle, err := h.service.RemoveDriver(r.Context(), httputil.GetPrincipal(r.Context()), vehicleID)
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.Success(w, http.StatusOK, vehicle)
}

func parseID(r *http.Request, param string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, param), 10, 64)
}

func (h *Handler) handleServiceError(r *http.Request, w http.ResponseWriter, err error) {
	httputil.HandleError(r.Context(), w, err, []httputil.ErrorMapping{
		{Error: ErrVehicleNotFound, Status: http.StatusNotFound},
		{Error: drivers.ErrDriverNotFound, Status: http.StatusNotFound},
		{Error: ErrRegistrationTaken, Status: http.StatusConflict},
		{Error: ErrVINTaken, Status: http.StatusConflict},
		{Error: ErrDriverAlreadyAssigned, Status: http.StatusConflict},
		{Error: ErrInvalidFilter, Status: http.StatusBadRequest},
		{Error: access.ErrForbidden, Status: http.StatusForbidden},
	})
}
