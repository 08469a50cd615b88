package rbac

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-bo/meridian/internal/platform/httpx"
)

// Handler wires HTTP endpoints for permission administration.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// RouteSpec mirrors authz.Route; authz depends on this package, so the
// handler declares its routes in local terms and the wiring layer converts.
type RouteSpec struct {
	Method      string
	Pattern     string
	Identity    string
	Description string
	Skip        bool
}

type routeBinding struct {
	spec    RouteSpec
	handler http.HandlerFunc
}

func (h *Handler) bindings() []routeBinding {
	return []routeBinding{
		{RouteSpec{Method: http.MethodGet, Pattern: "/permission", Identity: "permission_list", Description: "List Permissions"}, h.handleList},
		{RouteSpec{Method: http.MethodGet, Pattern: "/permission/tree", Identity: "permission_tree", Description: "Permission Tree"}, h.handleTree},
		{RouteSpec{Method: http.MethodDelete, Pattern: "/permission/{id}", Identity: "permission_delete", Description: "Delete Permission"}, h.handleDelete},
	}
}

// Routes declares this handler's guardable operations.
func (h *Handler) Routes() []RouteSpec {
	var specs []RouteSpec
	for _, b := range h.bindings() {
		specs = append(specs, b.spec)
	}
	return specs
}

// MountRoutes registers the routes, each wrapped in its authorization guard.
func (h *Handler) MountRoutes(r chi.Router, guard func(RouteSpec) func(http.Handler) http.Handler) {
	for _, b := range h.bindings() {
		r.With(guard(b.spec)).Method(b.spec.Method, b.spec.Pattern, b.handler)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListPermissions(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) handleTree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.service.PermissionTree(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tree)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Parameter", "invalid permission id")
		return
	}
	if err := h.service.DeletePermission(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("permission deleted", slog.Int64("id", id))
	w.WriteHeader(http.StatusNoContent)
}
