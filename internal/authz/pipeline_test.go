package authz_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-bo/meridian/internal/audit"
	"github.com/meridian-bo/meridian/internal/authz"
	"github.com/meridian-bo/meridian/internal/credential"
	"github.com/meridian-bo/meridian/internal/rbac"
	"github.com/meridian-bo/meridian/internal/shared"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubActors struct {
	actors map[int64]authz.Actor
}

func (s *stubActors) Actor(_ context.Context, id int64) (authz.Actor, error) {
	actor, ok := s.actors[id]
	if !ok {
		return authz.Actor{}, fmt.Errorf("%w: user %d", shared.ErrNotFound, id)
	}
	return actor, nil
}

type stubPermissions struct {
	byIdentity map[string]rbac.Permission
}

func (s *stubPermissions) PermissionByIdentity(_ context.Context, identity string) (rbac.Permission, error) {
	p, ok := s.byIdentity[identity]
	if !ok {
		return rbac.Permission{}, shared.ErrNotFound
	}
	return p, nil
}

type memRecorder struct {
	entries []audit.Entry
	nextID  int64
	fail    error
}

func (m *memRecorder) Record(_ context.Context, entry audit.Entry) (int64, error) {
	if m.fail != nil {
		return 0, m.fail
	}
	m.entries = append(m.entries, entry)
	m.nextID++
	return m.nextID, nil
}

type fixture struct {
	pipeline *authz.Pipeline
	codec    *credential.TokenCodec
	recorder *memRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	codec := credential.NewTokenCodec("test-secret", "meridian", time.Hour)
	actors := &stubActors{actors: map[int64]authz.Actor{
		1: {ID: 1, Root: true},
		2: {ID: 2, Roles: []rbac.Role{{ID: 1, Permissions: []rbac.Permission{{ID: 10, Name: "List Users", Identity: "user_list"}}}}},
	}}
	permissions := &stubPermissions{byIdentity: map[string]rbac.Permission{
		"user_list":   {ID: 10, Name: "List Users", Identity: "user_list"},
		"user_delete": {ID: 11, Name: "Delete User", Identity: "user_delete"},
	}}
	recorder := &memRecorder{}
	pipeline := authz.NewPipeline(discardLogger(), codec, actors, permissions, recorder)
	return &fixture{pipeline: pipeline, codec: codec, recorder: recorder}
}

func (f *fixture) serve(t *testing.T, route authz.Route, token string, handler http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	if handler == nil {
		handler = func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }
	}
	req := httptest.NewRequest(route.Method, route.Pattern, strings.NewReader(`{"q":1}`))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res := httptest.NewRecorder()
	f.pipeline.Guard(route)(handler).ServeHTTP(res, req)
	return res
}

func (f *fixture) token(t *testing.T, id int64) string {
	t.Helper()
	token, err := f.codec.Encode(id)
	require.NoError(t, err)
	return token
}

func TestGuardAnonymousRouteAudited(t *testing.T) {
	f := newFixture(t)
	route := authz.Route{Method: http.MethodPost, Pattern: "/user/login", Description: "Login"}

	res := f.serve(t, route, "garbage-token", nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.Len(t, f.recorder.entries, 1)

	entry := f.recorder.entries[0]
	require.Nil(t, entry.UserID)
	require.Equal(t, "Login (/user/login)", entry.Action)
	require.Equal(t, `{"q":1}`, entry.Request)
	require.Equal(t, 1, entry.Version)
}

func TestGuardSkipRouteNotAudited(t *testing.T) {
	f := newFixture(t)
	route := authz.Route{Method: http.MethodGet, Pattern: "/healthz", Skip: true}

	res := f.serve(t, route, "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.Empty(t, f.recorder.entries)
}

func TestGuardRequiresLogin(t *testing.T) {
	f := newFixture(t)
	route := authz.Route{Method: http.MethodGet, Pattern: "/users", Identity: "user_list"}

	res := f.serve(t, route, "", nil)
	require.Equal(t, http.StatusUnauthorized, res.Code)
	require.Empty(t, f.recorder.entries)
}

func TestGuardMembershipAllowed(t *testing.T) {
	f := newFixture(t)
	route := authz.Route{Method: http.MethodGet, Pattern: "/users", Identity: "user_list", Description: "List Users"}

	var gotUser int64
	var gotLog int64
	handler := func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = shared.UserIDFromContext(r.Context())
		gotLog, _ = shared.AuditLogIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}

	res := f.serve(t, route, f.token(t, 2), handler)
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, int64(2), gotUser)
	require.Equal(t, int64(1), gotLog)

	require.Len(t, f.recorder.entries, 1)
	entry := f.recorder.entries[0]
	require.NotNil(t, entry.UserID)
	require.Equal(t, int64(2), *entry.UserID)
	require.Equal(t, "List Users", entry.Action)
}

func TestGuardMembershipRejected(t *testing.T) {
	f := newFixture(t)
	route := authz.Route{Method: http.MethodDelete, Pattern: "/users/1", Identity: "user_delete"}

	res := f.serve(t, route, f.token(t, 2), nil)
	require.Equal(t, http.StatusForbidden, res.Code)
	require.Contains(t, res.Body.String(), "Delete User")
	require.Contains(t, res.Body.String(), "user_delete")
	require.Empty(t, f.recorder.entries)
}

func TestGuardRootBypass(t *testing.T) {
	f := newFixture(t)
	route := authz.Route{Method: http.MethodDelete, Pattern: "/users/1", Identity: "user_delete"}

	res := f.serve(t, route, f.token(t, 1), nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.Len(t, f.recorder.entries, 1)
}

func TestGuardActorLookupFailurePropagates(t *testing.T) {
	f := newFixture(t)
	route := authz.Route{Method: http.MethodGet, Pattern: "/users", Identity: "user_list"}

	res := f.serve(t, route, f.token(t, 99), nil)
	require.Equal(t, http.StatusNotFound, res.Code)
	require.Empty(t, f.recorder.entries)
}

func TestGuardVersionHeader(t *testing.T) {
	f := newFixture(t)
	route := authz.Route{Method: http.MethodPost, Pattern: "/user/login", Description: "Login"}

	req := httptest.NewRequest(http.MethodPost, "/user/login", nil)
	req.Header.Set(authz.VersionHeader, "7")
	req.Header.Set(authz.PlatformHeader, "ios")
	res := httptest.NewRecorder()
	f.pipeline.Guard(route)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(res, req)

	require.Len(t, f.recorder.entries, 1)
	require.Equal(t, 7, f.recorder.entries[0].Version)
	require.Equal(t, "ios", f.recorder.entries[0].Platform)

	// Unparsable versions fall back to 1.
	req = httptest.NewRequest(http.MethodPost, "/user/login", nil)
	req.Header.Set(authz.VersionHeader, "-3")
	f.pipeline.Guard(route)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, 1, f.recorder.entries[1].Version)
}

func TestGuardAuditClientIP(t *testing.T) {
	f := newFixture(t)
	route := authz.Route{Method: http.MethodPost, Pattern: "/user/login", Description: "Login"}

	cases := []struct {
		remoteAddr string
		want       string
	}{
		{"203.0.113.9:51234", "203.0.113.9"},
		{"[2001:db8::1]:51234", "2001:db8::1"},
		// RealIP rewrites RemoteAddr to a bare IP with no port.
		{"203.0.113.9", "203.0.113.9"},
		{"2001:db8::1", "2001:db8::1"},
	}
	for i, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/user/login", nil)
		req.RemoteAddr = tc.remoteAddr
		res := httptest.NewRecorder()
		f.pipeline.Guard(route)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})).ServeHTTP(res, req)

		require.Len(t, f.recorder.entries, i+1)
		require.Equal(t, tc.want, f.recorder.entries[i].IP, "remote addr %q", tc.remoteAddr)
	}
}

func TestGuardAuditFailureDoesNotBlock(t *testing.T) {
	f := newFixture(t)
	f.recorder.fail = errors.New("db down")
	route := authz.Route{Method: http.MethodPost, Pattern: "/user/login", Description: "Login"}

	res := f.serve(t, route, "", nil)
	require.Equal(t, http.StatusOK, res.Code)
}
