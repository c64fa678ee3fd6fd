package agreements

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/leasedesk/leasedesk/internal/platform/httpx"
	"github.com/leasedesk/leasedesk/internal/rbac"
	"github.com/leasedesk/leasedesk/internal/shared"
)

// Handler exposes the agreement lifecycle over HTTP for both the admin
// panel and the customer portal.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     *rbac.Guard
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard *rbac.Guard) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		guard:     guard,
		validator: validator.New(),
	}
}

// MountRoutes registers the admin-facing agreement routes. Routes that
// serve a single agreement pair own and all scoped codes at the handler
// level, so a portal customer reaches its own documents through the same
// handlers.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(shared.PermAgreementViewAll, rbac.ForAdmins()))
		r.Get("/", h.list)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(shared.PermAgreementCreate, rbac.ForAdmins()))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny([]string{shared.PermAgreementViewOwn, shared.PermAgreementViewAll}))
		r.Get("/{id}", h.get)
		r.Get("/{id}/document", h.document)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny([]string{shared.PermAgreementEditOwn, shared.PermAgreementEditAll}))
		r.Put("/{id}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(shared.PermAgreementDelete, rbac.ForAdmins()))
		r.Delete("/{id}", h.delete)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(shared.PermAgreementNotarize, rbac.ForAdmins()))
		r.Post("/{id}/notarize", h.notarize)
	})
}

// MountPortalRoutes registers the customer portal listing. Single
// agreement routes are shared with MountRoutes.
func (h *Handler) MountPortalRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(shared.PermAgreementViewOwn, rbac.ForCustomers()))
		r.Get("/agreements", h.listOwn)
	})
}

type agreementRequest struct {
	CustomerID      int64  `json:"customer_id" validate:"required,gt=0"`
	PropertyID      int64  `json:"property_id" validate:"required,gt=0"`
	TemplateID      int64  `json:"template_id" validate:"required,gt=0"`
	LandlordName    string `json:"landlord_name" validate:"required,max=128"`
	LandlordAddress string `json:"landlord_address" validate:"required,max=256"`
	TenantName      string `json:"tenant_name" validate:"required,max=128"`
	TenantEmail     string `json:"tenant_email" validate:"required,email"`
	RentAmount      int64  `json:"rent_amount" validate:"required,gt=0"`
	DepositAmount   int64  `json:"deposit_amount" validate:"gte=0"`
	StartDate       string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate         string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Status          string `json:"status" validate:"omitempty,oneof=draft active"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	customerID, _ := strconv.ParseInt(q.Get("customer_id"), 10, 64)
	status := q.Get("status")
	if status != "" && !ValidStatus(status) {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "unknown agreement status")
		return
	}
	h.respondList(w, r, Filter{CustomerID: customerID, Status: status, Page: page, PerPage: perPage})
}

// listOwn serves the portal listing, always scoped to the caller.
func (h *Handler) listOwn(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	h.respondList(w, r, Filter{CustomerID: identity.ID, Page: page, PerPage: perPage})
}

func (h *Handler) respondList(w http.ResponseWriter, r *http.Request, filter Filter) {
	agreements, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.respondError(w, "list agreements", err)
		return
	}
	if agreements == nil {
		agreements = []Agreement{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"agreements": agreements,
		"pagination": shared.NewPagination(filter.Page, filter.PerPage, total),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	agreement, ok := h.fetchAccessible(w, r, shared.PermAgreementViewOwn, shared.PermAgreementViewAll)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, agreement)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	req, start, end, ok := h.decode(w, r)
	if !ok {
		return
	}
	agreement, err := h.service.Create(r.Context(), Agreement{
		CustomerID:      req.CustomerID,
		PropertyID:      req.PropertyID,
		TemplateID:      req.TemplateID,
		LandlordName:    req.LandlordName,
		LandlordAddress: req.LandlordAddress,
		TenantName:      req.TenantName,
		TenantEmail:     req.TenantEmail,
		RentAmount:      req.RentAmount,
		DepositAmount:   req.DepositAmount,
		StartDate:       start,
		EndDate:         end,
	})
	if err != nil {
		h.respondError(w, "create agreement", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, agreement)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	current, ok := h.fetchAccessible(w, r, shared.PermAgreementEditOwn, shared.PermAgreementEditAll)
	if !ok {
		return
	}
	req, start, end, ok := h.decode(w, r)
	if !ok {
		return
	}
	agreement, err := h.service.Update(r.Context(), Agreement{
		ID:              current.ID,
		CustomerID:      current.CustomerID,
		PropertyID:      req.PropertyID,
		TemplateID:      req.TemplateID,
		LandlordName:    req.LandlordName,
		LandlordAddress: req.LandlordAddress,
		TenantName:      req.TenantName,
		TenantEmail:     req.TenantEmail,
		RentAmount:      req.RentAmount,
		DepositAmount:   req.DepositAmount,
		StartDate:       start,
		EndDate:         end,
		Status:          req.Status,
	})
	if err != nil {
		h.respondError(w, "update agreement", err)
		return
	}
	httpx.JSON(w, http.StatusOK, agreement)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.agreementID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, "delete agreement", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) notarize(w http.ResponseWriter, r *http.Request) {
	id, ok := h.agreementID(w, r)
	if !ok {
		return
	}
	agreement, err := h.service.Notarize(r.Context(), id)
	if err != nil {
		h.respondError(w, "notarize agreement", err)
		return
	}
	httpx.JSON(w, http.StatusOK, agreement)
}

func (h *Handler) document(w http.ResponseWriter, r *http.Request) {
	agreement, ok := h.fetchAccessible(w, r, shared.PermAgreementViewOwn, shared.PermAgreementViewAll)
	if !ok {
		return
	}
	document, err := h.service.RenderDocument(r.Context(), agreement.ID)
	if err != nil {
		h.respondError(w, "render agreement document", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+agreement.Number+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(document)
}

// fetchAccessible loads the agreement and applies the own/all pairing.
// Admin principals never own an agreement, so only the all-scoped code
// reaches other customers' documents.
func (h *Handler) fetchAccessible(w http.ResponseWriter, r *http.Request, ownPerm, allPerm string) (Agreement, bool) {
	id, ok := h.agreementID(w, r)
	if !ok {
		return Agreement{}, false
	}
	agreement, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get agreement", err)
		return Agreement{}, false
	}
	identity := shared.IdentityFromContext(r.Context())
	ownerID := int64(0)
	if identity != nil && identity.IsCustomer() {
		ownerID = agreement.CustomerID
	}
	allowed, err := h.guard.CanAccessOwnResource(r.Context(), ownerID, ownPerm, allPerm)
	if err != nil {
		h.respondError(w, "check agreement access", err)
		return Agreement{}, false
	}
	if !allowed {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "agreement belongs to another customer")
		return Agreement{}, false
	}
	return agreement, true
}

func (h *Handler) agreementID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "agreement id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (agreementRequest, time.Time, time.Time, bool) {
	var req agreementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return req, time.Time{}, time.Time{}, false
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return req, time.Time{}, time.Time{}, false
	}
	start, _ := time.Parse("2006-01-02", req.StartDate)
	end, _ := time.Parse("2006-01-02", req.EndDate)
	if !end.After(start) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "end_date must be after start_date")
		return req, start, end, false
	}
	return req, start, end, true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "agreement not found")
	case errors.Is(err, ErrBadReference):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Bad Reference", "referenced customer, property, or template does not exist")
	case errors.Is(err, ErrImmutable):
		httpx.Problem(w, http.StatusConflict, "Frozen", "notarized or expired agreements cannot be modified")
	case errors.Is(err, ErrAlreadyNotarized):
		httpx.Problem(w, http.StatusConflict, "Already Notarized", "agreement is already notarized")
	case errors.Is(err, ErrBadTransition):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Transition", "the requested status change is not allowed")
	default:
		if h.logger != nil {
			h.logger.Error("agreements "+op, slog.Any("error", err))
		}
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
