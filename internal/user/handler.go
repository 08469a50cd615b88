package user

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/meridian-bo/meridian/internal/authz"
	"github.com/meridian-bo/meridian/internal/platform/httpx"
	"github.com/meridian-bo/meridian/internal/shared"
)

// Handler wires HTTP endpoints for account and session flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

type routeBinding struct {
	route   authz.Route
	handler http.HandlerFunc
}

func (h *Handler) bindings() []routeBinding {
	return []routeBinding{
		{authz.Route{Method: http.MethodPost, Pattern: "/user/login", Description: "Login"}, h.handleLogin},
		{authz.Route{Method: http.MethodPost, Pattern: "/user/login/email", Description: "Login Via Email"}, h.handleLoginViaEmail},
		{authz.Route{Method: http.MethodPost, Pattern: "/user/register", Description: "Register"}, h.handleRegister},
		{authz.Route{Method: http.MethodPost, Pattern: "/user/email/code", Description: "Send Email Code"}, h.handleSendEmailCode},
		{authz.Route{Method: http.MethodPost, Pattern: "/user/password/reset", Description: "Reset Password"}, h.handleResetPassword},
		{authz.Route{Method: http.MethodPost, Pattern: "/user/password/modify", Identity: "user_modify_password", Description: "Modify Password"}, h.handleModifyPassword},
		{authz.Route{Method: http.MethodGet, Pattern: "/user/menu", Identity: "user_menu_list", Description: "My Menus"}, h.handleMenus},
		{authz.Route{Method: http.MethodGet, Pattern: "/user/permission", Identity: "user_permission_list", Description: "My Permissions"}, h.handlePermissions},
		{authz.Route{Method: http.MethodPost, Pattern: "/user", Identity: "user_add", Description: "Create User"}, h.handleCreate},
		{authz.Route{Method: http.MethodDelete, Pattern: "/user/{id}", Identity: "user_delete", Description: "Delete User"}, h.handleDelete},
		{authz.Route{Method: http.MethodPost, Pattern: "/user/cookie", Description: "Issue Cookie"}, h.handleIssueCookie},
		{authz.Route{Method: http.MethodPost, Pattern: "/user/cookie/resolve", Description: "Resolve Cookie"}, h.handleResolveCookie},
		{authz.Route{Method: http.MethodPost, Pattern: "/oauth2/code", Description: "Issue OAuth Code"}, h.handleIssueOAuthCode},
		{authz.Route{Method: http.MethodPost, Pattern: "/oauth2/token", Description: "Exchange OAuth Code"}, h.handleExchangeOAuthCode},
		{authz.Route{Method: http.MethodDelete, Pattern: "/oauth2/code", Description: "Revoke OAuth Code"}, h.handleRevokeOAuthCode},
	}
}

// Module declares this handler's routes for the permission registry.
func (h *Handler) Module() authz.Module {
	module := authz.Module{Name: "User Management", Identity: "user"}
	for _, b := range h.bindings() {
		module.Routes = append(module.Routes, b.route)
	}
	return module
}

// MountRoutes registers the routes, each wrapped in its authorization guard.
func (h *Handler) MountRoutes(r chi.Router, guard func(authz.Route) func(http.Handler) http.Handler) {
	for _, b := range h.bindings() {
		r.With(guard(b.route)).Method(b.route.Method, b.route.Pattern, b.handler)
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		h.logger.Debug("reject malformed body", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.Problem(w, http.StatusBadRequest, "Invalid Parameter", "malformed request body")
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		h.logger.Debug("reject invalid payload", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.Problem(w, http.StatusBadRequest, "Invalid Parameter", err.Error())
		return false
	}
	return true
}

// currentUser extracts the authenticated user id or writes a 401.
func currentUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := shared.UserIDFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
	}
	return id, ok
}

type loginRequest struct {
	ID       *int64 `json:"id"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	token, err := h.service.Login(r.Context(), LoginInput{ID: req.ID, Email: req.Email, Password: req.Password})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"access_token": token})
}

type emailLoginRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required"`
}

func (h *Handler) handleLoginViaEmail(w http.ResponseWriter, r *http.Request) {
	var req emailLoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	token, err := h.service.LoginViaEmail(r.Context(), req.Email, req.Code)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"access_token": token})
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Code     string `json:"code" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.Register(r.Context(), req.Email, req.Code, req.Password); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

type sendCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *Handler) handleSendEmailCode(w http.ResponseWriter, r *http.Request) {
	var req sendCodeRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.SendEmailCode(r.Context(), req.Email); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type resetPasswordRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Code     string `json:"code" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.ResetPassword(r.Context(), req.Email, req.Code, req.Password); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type modifyPasswordRequest struct {
	Code        string `json:"code" validate:"required"`
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

func (h *Handler) handleModifyPassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req modifyPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.ModifyPassword(r.Context(), userID, req.Code, req.OldPassword, req.NewPassword); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMenus(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	menus, err := h.service.Menus(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, menus)
}

func (h *Handler) handlePermissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	permissions, err := h.service.Permissions(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, permissions)
}

type createUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.service.Create(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Parameter", "invalid user id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("user deleted", slog.Int64("id", id))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleIssueCookie(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	cookie := uuid.NewString()
	if err := h.service.IssueCookie(r.Context(), userID, cookie); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"cookie": cookie})
}

type resolveCookieRequest struct {
	Cookie string `json:"cookie" validate:"required"`
}

func (h *Handler) handleResolveCookie(w http.ResponseWriter, r *http.Request) {
	var req resolveCookieRequest
	if !h.decode(w, r, &req) {
		return
	}
	userID, err := h.service.ResolveCookie(r.Context(), req.Cookie)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]*int64{"user_id": userID})
}

type issueOAuthCodeRequest struct {
	AppKey string `json:"app_key" validate:"required"`
}

func (h *Handler) handleIssueOAuthCode(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req issueOAuthCodeRequest
	if !h.decode(w, r, &req) {
		return
	}
	code := uuid.NewString()
	if err := h.service.IssueOAuthCode(r.Context(), userID, req.AppKey, code); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"code": code})
}

type exchangeOAuthCodeRequest struct {
	AppKey string `json:"app_key" validate:"required"`
	Code   string `json:"code" validate:"required"`
}

func (h *Handler) handleExchangeOAuthCode(w http.ResponseWriter, r *http.Request) {
	var req exchangeOAuthCodeRequest
	if !h.decode(w, r, &req) {
		return
	}
	userID, err := h.service.ExchangeOAuthCode(r.Context(), req.AppKey, req.Code)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	token, err := h.service.tokens.Encode(userID)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("issue token: %w", err))
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"access_token": token})
}

func (h *Handler) handleRevokeOAuthCode(w http.ResponseWriter, r *http.Request) {
	var req exchangeOAuthCodeRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.RevokeOAuthCode(r.Context(), req.AppKey, req.Code); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
