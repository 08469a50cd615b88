package user_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/meridian-bo/meridian/internal/authz"
	"github.com/meridian-bo/meridian/internal/shared"
	"github.com/meridian-bo/meridian/internal/user"
)

// passGuard mounts every route without authorization so the handler's own
// decoding and validation behavior is what gets exercised.
func passGuard(authz.Route) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler { return next }
}

// userGuard injects an authenticated user id the way the pipeline does.
func userGuard(id int64) func(authz.Route) func(http.Handler) http.Handler {
	return func(authz.Route) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(shared.ContextWithUserID(r.Context(), id)))
			})
		}
	}
}

func newHandlerRouter(t *testing.T, f *fixture, guard func(authz.Route) func(http.Handler) http.Handler) chi.Router {
	t.Helper()
	handler := user.NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), f.service)
	r := chi.NewRouter()
	handler.MountRoutes(r, guard)
	return r
}

func postJSON(t *testing.T, router chi.Router, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func TestHandlerLoginSuccess(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "a@b.test", "secret123", false)
	router := newHandlerRouter(t, f, passGuard)

	res := postJSON(t, router, "/user/login", `{"email":"a@b.test","password":"secret123"}`)
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), "access_token")
}

func TestHandlerLoginRejectsInvalidPayload(t *testing.T) {
	f := newFixture(t)
	router := newHandlerRouter(t, f, passGuard)

	cases := []struct {
		name string
		body string
	}{
		{"malformed body", `{"email": not json`},
		{"bad email", `{"email":"not-an-email","password":"secret123"}`},
		{"missing password", `{"email":"a@b.test"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := postJSON(t, router, "/user/login", tc.body)
			require.Equal(t, http.StatusBadRequest, res.Code)
			require.Contains(t, res.Body.String(), "Invalid Parameter")
		})
	}
}

func TestHandlerRegisterRejectsShortPassword(t *testing.T) {
	f := newFixture(t)
	router := newHandlerRouter(t, f, passGuard)

	res := postJSON(t, router, "/user/register", `{"email":"a@b.test","code":"123456","password":"short"}`)
	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Contains(t, res.Body.String(), "Invalid Parameter")
}

func TestHandlerModifyPasswordRequiresUser(t *testing.T) {
	f := newFixture(t)
	router := newHandlerRouter(t, f, passGuard)

	res := postJSON(t, router, "/user/password/modify",
		`{"code":"123456","old_password":"secret123","new_password":"secret456"}`)
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestHandlerIssueCookieForUser(t *testing.T) {
	f := newFixture(t)
	id := f.addUser(t, "a@b.test", "secret123", false)
	router := newHandlerRouter(t, f, userGuard(id))

	res := postJSON(t, router, "/user/cookie", "")
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), "cookie")
}

func TestHandlerDeleteRejectsBadID(t *testing.T) {
	f := newFixture(t)
	router := newHandlerRouter(t, f, passGuard)

	req := httptest.NewRequest(http.MethodDelete, "/user/abc", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Contains(t, res.Body.String(), "invalid user id")
}
