// Package router fixes the minimal interface the connection runtime
// needs from the routing layer — dispatch, the unauthenticated-path
// allowlist, and websocket upgrade handoff. The routing machinery
// behind it is an external collaborator; a demo implementation lives in
// the redfish subpackage so the gateway is exercisable end to end.
package router

import (
	"net/http"
	"strings"

	libatomic "github.com/openbmc-project/bmcweb-core/atomic"
)

// Dispatcher is what the gateway calls once a request is past the
// authentication gate. Implementations read the resolved session (if
// any) from the request context via SessionFromContext.
type Dispatcher interface {
	http.Handler

	// HasWebUI reports whether a browser-facing UI is registered; the
	// unauthorized responder redirects to its login page when true.
	HasWebUI() bool

	// Upgrade returns the handler owning path's websocket endpoint, if
	// one is registered. The gateway hands the connection over and
	// ceases further processing.
	Upgrade(path string) (http.Handler, bool)
}

// Allowlist is the fixed set of paths served without authentication,
// plus any statically registered web-asset routes (GET only).
type Allowlist struct {
	static libatomic.MapTyped[string, bool]
}

// NewAllowlist returns an Allowlist containing only the fixed entries.
func NewAllowlist() *Allowlist {
	return &Allowlist{static: libatomic.NewMapTyped[string, bool]()}
}

// RegisterStatic adds a GET-only web-asset route to the allowlist.
func (a *Allowlist) RegisterStatic(path string) {
	a.static.Store(path, true)
}

// Allowed reports whether method+path may reach the dispatcher with no
// session established.
func (a *Allowlist) Allowed(method, path string) bool {
	trimmed := strings.TrimSuffix(path, "/")

	switch method {
	case http.MethodGet, http.MethodHead:
		switch trimmed {
		case "/redfish", "/redfish/v1", "/redfish/v1/odata", "/metrics":
			return true
		}
		if _, ok := a.static.Load(path); ok {
			return true
		}
		if _, ok := a.static.Load(trimmed); ok {
			return true
		}
	case http.MethodPost:
		switch trimmed {
		case "/redfish/v1/SessionService/Sessions", "/redfish/v1/SessionService/Sessions/Members", "/login":
			return true
		}
	}
	return false
}
