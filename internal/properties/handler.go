package properties

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leasedesk/leasedesk/internal/platform/httpx"
	"github.com/leasedesk/leasedesk/internal/rbac"
	"github.com/leasedesk/leasedesk/internal/shared"
)

// Handler exposes property CRUD over HTTP.
type Handler struct {
	logger    *slog.Logger
	repo      *Repository
	guard     *rbac.Guard
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, pool *pgxpool.Pool, guard *rbac.Guard) *Handler {
	return &Handler{
		logger:    logger,
		repo:      NewRepository(pool),
		guard:     guard,
		validator: validator.New(),
	}
}

// MountRoutes registers property routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny([]string{shared.PermPropertyView, shared.PermPropertyManage}, rbac.ForAdmins()))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(shared.PermPropertyManage, rbac.ForAdmins()))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

type propertyRequest struct {
	SocietyID       int64  `json:"society_id" validate:"required,gt=0"`
	OwnerCustomerID *int64 `json:"owner_customer_id" validate:"omitempty,gt=0"`
	FlatNo          string `json:"flat_no" validate:"required,max=32"`
	Floor           int    `json:"floor" validate:"gte=0,lte=200"`
	Type            string `json:"type" validate:"required,oneof=flat shop office parking"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	societyID, _ := strconv.ParseInt(r.URL.Query().Get("society_id"), 10, 64)
	props, err := h.repo.List(r.Context(), societyID)
	if err != nil {
		h.respondError(w, "list properties", err)
		return
	}
	if props == nil {
		props = []Property{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"properties": props})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.propertyID(w, r)
	if !ok {
		return
	}
	prop, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get property", err)
		return
	}
	httpx.JSON(w, http.StatusOK, prop)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	prop, err := h.repo.Create(r.Context(), Property{
		SocietyID:       req.SocietyID,
		OwnerCustomerID: req.OwnerCustomerID,
		FlatNo:          req.FlatNo,
		Floor:           req.Floor,
		Type:            req.Type,
	})
	if err != nil {
		h.respondError(w, "create property", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, prop)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.propertyID(w, r)
	if !ok {
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	prop, err := h.repo.Update(r.Context(), Property{
		ID:              id,
		SocietyID:       req.SocietyID,
		OwnerCustomerID: req.OwnerCustomerID,
		FlatNo:          req.FlatNo,
		Floor:           req.Floor,
		Type:            req.Type,
	})
	if err != nil {
		h.respondError(w, "update property", err)
		return
	}
	httpx.JSON(w, http.StatusOK, prop)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.propertyID(w, r)
	if !ok {
		return
	}
	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.respondError(w, "delete property", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) propertyID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "property id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (propertyRequest, bool) {
	var req propertyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return req, false
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return req, false
	}
	return req, true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "property not found")
	case errors.Is(err, ErrBadReference):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Bad Reference", "referenced society or customer does not exist")
	default:
		if h.logger != nil {
			h.logger.Error("properties "+op, slog.Any("error", err))
		}
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
