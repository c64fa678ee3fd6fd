package societies

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

// Handler exposes society CRUD over HTTP.
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

// MountRoutes registers society routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny([]string{shared.PermSocietyView, shared.PermSocietyManage}, rbac.ForAdmins()))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(shared.PermSocietyManage, rbac.ForAdmins()))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

type societyRequest struct {
	Name           string `json:"name" validate:"required,min=2,max=128"`
	Address        string `json:"address" validate:"required,max=256"`
	City           string `json:"city" validate:"required,max=64"`
	RegistrationNo string `json:"registration_no" validate:"max=64"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	societies, err := h.repo.List(r.Context())
	if err != nil {
		h.respondError(w, "list societies", err)
		return
	}
	if societies == nil {
		societies = []Society{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"societies": societies})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.societyID(w, r)
	if !ok {
		return
	}
	society, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get society", err)
		return
	}
	httpx.JSON(w, http.StatusOK, society)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	society, err := h.repo.Create(r.Context(), Society{
		Name:           req.Name,
		Address:        req.Address,
		City:           req.City,
		RegistrationNo: req.RegistrationNo,
	})
	if err != nil {
		h.respondError(w, "create society", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, society)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.societyID(w, r)
	if !ok {
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	society, err := h.repo.Update(r.Context(), Society{
		ID:             id,
		Name:           req.Name,
		Address:        req.Address,
		City:           req.City,
		RegistrationNo: req.RegistrationNo,
	})
	if err != nil {
		h.respondError(w, "update society", err)
		return
	}
	httpx.JSON(w, http.StatusOK, society)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.societyID(w, r)
	if !ok {
		return
	}
	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.respondError(w, "delete society", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) societyID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "society id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (societyRequest, bool) {
	var req societyRequest
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
		httpx.Problem(w, http.StatusNotFound, "Not Found", "society not found")
	case errors.Is(err, ErrHasProperties):
		httpx.Problem(w, http.StatusConflict, "Conflict", "society still has properties")
	default:
		if h.logger != nil {
			h.logger.Error("societies "+op, slog.Any("error", err))
		}
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
