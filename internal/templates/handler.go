package templates

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
	"github.com/leasedesk/leasedesk/pdf"
)

// Handler exposes template CRUD and PDF previews over HTTP.
type Handler struct {
	logger    *slog.Logger
	repo      *Repository
	renderer  *pdf.Client
	guard     *rbac.Guard
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, pool *pgxpool.Pool, renderer *pdf.Client, guard *rbac.Guard) *Handler {
	return &Handler{
		logger:    logger,
		repo:      NewRepository(pool),
		renderer:  renderer,
		guard:     guard,
		validator: validator.New(),
	}
}

// MountRoutes registers template routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny([]string{shared.PermTemplateView, shared.PermTemplateManage}, rbac.ForAdmins()))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(shared.PermTemplateManage, rbac.ForAdmins()))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
		r.Post("/{id}/preview", h.preview)
	})
}

type templateRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=128"`
	Description string `json:"description" validate:"max=512"`
	HTMLBody    string `json:"html_body" validate:"required"`
	IsDefault   bool   `json:"is_default"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	tmpls, err := h.repo.List(r.Context())
	if err != nil {
		h.respondError(w, "list templates", err)
		return
	}
	if tmpls == nil {
		tmpls = []Template{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"templates": tmpls})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.templateID(w, r)
	if !ok {
		return
	}
	tmpl, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get template", err)
		return
	}
	httpx.JSON(w, http.StatusOK, tmpl)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	tmpl, err := h.repo.Create(r.Context(), Template{
		Name:        req.Name,
		Description: req.Description,
		HTMLBody:    req.HTMLBody,
		IsDefault:   req.IsDefault,
	})
	if err != nil {
		h.respondError(w, "create template", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, tmpl)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.templateID(w, r)
	if !ok {
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	tmpl, err := h.repo.Update(r.Context(), Template{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		HTMLBody:    req.HTMLBody,
		IsDefault:   req.IsDefault,
	})
	if err != nil {
		h.respondError(w, "update template", err)
		return
	}
	httpx.JSON(w, http.StatusOK, tmpl)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.templateID(w, r)
	if !ok {
		return
	}
	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.respondError(w, "delete template", err)
		return
	}
	httpx.NoContent(w)
}

// preview renders the stored body with sample data and streams the PDF.
func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	id, ok := h.templateID(w, r)
	if !ok {
		return
	}
	tmpl, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "preview template", err)
		return
	}
	html, err := Render(tmpl.HTMLBody, SampleData())
	if err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Render Failed", err.Error())
		return
	}
	document, err := h.renderer.RenderHTML(r.Context(), html)
	if err != nil {
		h.respondError(w, "preview template", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="preview.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(document)
}

func (h *Handler) templateID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "template id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (templateRequest, bool) {
	var req templateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return req, false
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return req, false
	}
	if _, err := Render(req.HTMLBody, SampleData()); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Template", err.Error())
		return req, false
	}
	return req, true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "template not found")
	case errors.Is(err, ErrDuplicateName):
		httpx.Problem(w, http.StatusConflict, "Duplicate", "a template with this name already exists")
	case errors.Is(err, ErrInUse):
		httpx.Problem(w, http.StatusConflict, "Conflict", "template is referenced by agreements")
	default:
		if h.logger != nil {
			h.logger.Error("templates "+op, slog.Any("error", err))
		}
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
