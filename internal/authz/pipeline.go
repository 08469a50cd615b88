package authz

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/meridian-bo/meridian/internal/audit"
	"github.com/meridian-bo/meridian/internal/platform/httpx"
	"github.com/meridian-bo/meridian/internal/rbac"
	"github.com/meridian-bo/meridian/internal/shared"
)

// Request headers supplied by clients alongside the bearer token.
const (
	PlatformHeader = "X-App-Platform"
	VersionHeader  = "X-App-Version"
)

const maxAuditBody = 64 << 10

// TokenDecoder turns a bearer token into a user id. Any failure means the
// request proceeds as anonymous.
type TokenDecoder interface {
	Decode(token string) (int64, error)
}

// Actor is the acting user as seen by the pipeline.
type Actor struct {
	ID    int64
	Root  bool
	Roles []rbac.Role
}

// ActorProvider loads the acting user. A lookup failure for a decoded id
// propagates as an error; it is not treated as anonymous.
type ActorProvider interface {
	Actor(ctx context.Context, id int64) (Actor, error)
}

// PermissionResolver resolves a permission identity in the permission tree.
type PermissionResolver interface {
	PermissionByIdentity(ctx context.Context, identity string) (rbac.Permission, error)
}

// Pipeline authorizes requests and records audit entries. Attach one guard
// per route via Guard.
type Pipeline struct {
	logger      *slog.Logger
	tokens      TokenDecoder
	actors      ActorProvider
	permissions PermissionResolver
	recorder    audit.Recorder
}

// NewPipeline constructs a Pipeline.
func NewPipeline(logger *slog.Logger, tokens TokenDecoder, actors ActorProvider, permissions PermissionResolver, recorder audit.Recorder) *Pipeline {
	return &Pipeline{
		logger:      logger,
		tokens:      tokens,
		actors:      actors,
		permissions: permissions,
		recorder:    recorder,
	}
}

// Guard returns the middleware enforcing the given route's authorization and
// audit policy. The order is fixed: token resolution, skip check, root
// bypass, permission resolution, membership check, then the audit record.
// Audit happens only after authorization succeeds, never for rejected or
// skip-marked requests.
func (p *Pipeline) Guard(route Route) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			// A malformed, expired or missing token is deliberately
			// swallowed: anonymous-eligible routes keep working.
			userID, authenticated := p.resolveToken(r)
			if authenticated {
				ctx = shared.ContextWithUserID(ctx, userID)
			}

			if route.Skip {
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if route.Identity != "" {
				if err := p.authorize(ctx, route, userID, authenticated); err != nil {
					httpx.RespondError(w, err)
					return
				}
			}

			ctx, r = p.record(ctx, r, route, userID, authenticated)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (p *Pipeline) resolveToken(r *http.Request) (int64, bool) {
	header := r.Header.Get("Authorization")
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return 0, false
	}
	id, err := p.tokens.Decode(token)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (p *Pipeline) authorize(ctx context.Context, route Route, userID int64, authenticated bool) error {
	if !authenticated {
		return fmt.Errorf("%w: login required", shared.ErrInvalidCredentials)
	}
	actor, err := p.actors.Actor(ctx, userID)
	if err != nil {
		return err
	}
	if actor.Root {
		return nil
	}
	permission, err := p.permissions.PermissionByIdentity(ctx, route.Identity)
	if err != nil {
		// Permissions are synced from the registry at startup, so a
		// miss here is a provisioning failure, not a client error.
		return fmt.Errorf("authz: permission %q not provisioned: %v", route.Identity, err)
	}
	if !rbac.HasPermission(actor.Roles, permission.ID) {
		return fmt.Errorf("%w: no access to %s (%s)", shared.ErrForbidden, permission.Name, permission.Identity)
	}
	return nil
}

// record writes the audit entry and stores the log id in the request
// context. Audit failures are logged but do not fail the request.
func (p *Pipeline) record(ctx context.Context, r *http.Request, route Route, userID int64, authenticated bool) (context.Context, *http.Request) {
	entry := audit.Entry{
		IP:       clientIP(r),
		Action:   p.actionLabel(ctx, route, r),
		Platform: r.Header.Get(PlatformHeader),
		Request:  captureBody(r),
		Version:  parseVersion(r.Header.Get(VersionHeader)),
	}
	if authenticated {
		id := userID
		entry.UserID = &id
	}

	logID, err := p.recorder.Record(ctx, entry)
	if err != nil {
		p.logger.Error("audit record", slog.String("action", entry.Action), slog.Any("error", err))
		return ctx, r
	}
	return shared.ContextWithAuditLogID(ctx, logID), r
}

// actionLabel prefers the resolved permission's display name, then the
// route's description with the path, then the raw path.
func (p *Pipeline) actionLabel(ctx context.Context, route Route, r *http.Request) string {
	if route.Identity != "" {
		if permission, err := p.permissions.PermissionByIdentity(ctx, route.Identity); err == nil {
			return permission.Name
		}
	}
	if route.Description != "" {
		return fmt.Sprintf("%s (%s)", route.Description, r.URL.Path)
	}
	return r.URL.Path
}

// clientIP strips the port from RemoteAddr when one is present. Behind the
// RealIP middleware RemoteAddr is a bare IP, IPv6 included, so a plain
// colon split would mangle it.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func parseVersion(raw string) int {
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 1
	}
	return v
}

// captureBody reads the request body for the audit record and restores it
// for the downstream handler.
func captureBody(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxAuditBody))
	if err != nil {
		return ""
	}
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(data), r.Body))
	return string(data)
}
