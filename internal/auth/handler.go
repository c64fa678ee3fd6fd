package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/leasedesk/leasedesk/internal/platform/httpx"
	"github.com/leasedesk/leasedesk/internal/rbac"
	"github.com/leasedesk/leasedesk/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	guard          *rbac.Guard
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard *rbac.Guard, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		guard:          guard,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleAdminLogin)
	r.Post("/portal/login", h.handleCustomerLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/me", h.handleMe)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type meResponse struct {
	Kind        shared.PrincipalKind `json:"kind"`
	ID          int64                `json:"id"`
	Email       string               `json:"email"`
	Name        string               `json:"name"`
	Permissions []string             `json:"permissions"`
	CSRFToken   string               `json:"csrf_token,omitempty"`
}

func (h *Handler) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeLogin(w, r)
	if !ok {
		return
	}
	user, err := h.service.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondLoginError(w, err)
		return
	}
	h.establishSession(w, r, shared.PrincipalAdmin, user.ID)
}

func (h *Handler) handleCustomerLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeLogin(w, r)
	if !ok {
		return
	}
	customer, err := h.service.AuthenticateCustomer(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondLoginError(w, err)
		return
	}
	h.establishSession(w, r, shared.PrincipalCustomer, customer.ID)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	httpx.NoContent(w)
}

// handleMe returns the caller's identity and resolved permission set. The
// front ends mirror this set for conditional rendering; it is advisory
// only, enforcement stays server-side.
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Authentication Required", "sign in to access this resource")
		return
	}
	perms, err := h.guard.EffectivePermissions(r.Context())
	if err != nil {
		h.logger.Error("effective permissions", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	var csrfToken string
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		csrfToken, _ = h.csrfManager.EnsureToken(r.Context(), sess)
	}
	httpx.JSON(w, http.StatusOK, meResponse{
		Kind:        identity.Kind,
		ID:          identity.ID,
		Email:       identity.Email,
		Name:        identity.Name,
		Permissions: perms,
		CSRFToken:   csrfToken,
	})
}

func (h *Handler) decodeLogin(w http.ResponseWriter, r *http.Request) (loginRequest, bool) {
	var req loginRequest
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

func (h *Handler) respondLoginError(w http.ResponseWriter, err error) {
	if errors.Is(err, shared.ErrInvalidCredentials) {
		httpx.Problem(w, http.StatusUnauthorized, "Invalid Credentials", "email or password is incorrect")
		return
	}
	h.logger.Error("authenticate", slog.Any("error", err))
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}

func (h *Handler) establishSession(w http.ResponseWriter, r *http.Request, kind shared.PrincipalKind, principalID int64) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	switch kind {
	case shared.PrincipalCustomer:
		sess.SetCustomer(principalID)
	default:
		sess.SetAdmin(principalID)
	}
	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, kind, principalID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}
	csrfToken, _ := h.csrfManager.EnsureToken(r.Context(), sess)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"kind":       kind,
		"id":         principalID,
		"csrf_token": csrfToken,
	})
}
