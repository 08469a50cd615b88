// Package authz implements the per-request authorization pipeline: bearer
// token resolution, root bypass, permission membership check, and audit
// logging.
package authz

import "github.com/meridian-bo/meridian/internal/rbac"

// Route describes one guardable operation. Identity is the permission
// identity the route requires; an empty identity marks an anonymous route.
// Skip-marked routes bypass both the permission check and audit logging.
type Route struct {
	Method      string
	Pattern     string
	Identity    string
	Description string
	Skip        bool
}

// Module groups the routes of one handler package under a top-level
// permission. Modules are declared statically at startup; this replaces
// runtime reflection over handler annotations.
type Module struct {
	Name     string
	Identity string
	Routes   []Route
}

// Registry is the static mapping of operations to permission identities. It
// feeds both permission sync at startup and the per-route guards.
type Registry struct {
	modules []Module
}

// NewRegistry constructs a Registry from the given modules.
func NewRegistry(modules ...Module) *Registry {
	return &Registry{modules: modules}
}

// Add appends modules to the registry. Call before Declared is consumed.
func (r *Registry) Add(modules ...Module) {
	r.modules = append(r.modules, modules...)
}

// Declared converts the registry into the declared permission list consumed
// by rbac.Service.SyncDeclared. Anonymous and skip-marked routes declare no
// permission.
func (r *Registry) Declared() []rbac.DeclaredPermission {
	var out []rbac.DeclaredPermission
	for _, m := range r.modules {
		top := rbac.DeclaredPermission{Name: m.Name, Identity: m.Identity}
		for _, route := range m.Routes {
			if route.Identity == "" || route.Skip {
				continue
			}
			top.Children = append(top.Children, rbac.DeclaredPermission{
				Name:     route.Description,
				Identity: route.Identity,
			})
		}
		out = append(out, top)
	}
	return out
}

// Modules returns the registered modules.
func (r *Registry) Modules() []Module {
	return r.modules
}
