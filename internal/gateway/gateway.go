// Package gateway is the connection runtime: it turns an accepted
// socket into an authenticated, routed request and delivers the
// response while enforcing per-connection deadlines and the security
// policy. Go's net/http supplies the HTTP/1.1 parser and the HTTP/2
// session machinery; this package owns everything around them — the
// auth pipeline call, the unauthenticated-path allowlist, body caps,
// the slow-client watchdog, the unauthorized responder, the security
// header set, and websocket upgrade handoff.
package gateway

import (
	"net/http"

	"github.com/openbmc-project/bmcweb-core/internal/authpipeline"
	"github.com/openbmc-project/bmcweb-core/internal/logger"
	"github.com/openbmc-project/bmcweb-core/internal/metrics"
	"github.com/openbmc-project/bmcweb-core/internal/router"
	"github.com/openbmc-project/bmcweb-core/internal/session"
	"github.com/openbmc-project/bmcweb-core/internal/timerqueue"
)

// Gateway is the policy layer every request passes through before the
// router sees it.
type Gateway struct {
	cfg      Config
	store    *session.Store
	dispatch router.Dispatcher
	allow    *router.Allowlist
	pam      authpipeline.Authenticator
	dog      *watchdog
	date     *dateCache
	mx       *metrics.Metrics
	log      logger.FuncLog
}

// New wires the gateway. pam may be nil when Basic auth is disabled by
// policy; mx may be nil to disable metrics.
func New(cfg Config, store *session.Store, dispatch router.Dispatcher, allow *router.Allowlist, pam authpipeline.Authenticator, tq *timerqueue.Queue, mx *metrics.Metrics, log logger.FuncLog) *Gateway {
	return &Gateway{
		cfg:      cfg,
		store:    store,
		dispatch: dispatch,
		allow:    allow,
		pam:      pam,
		dog:      newWatchdog(tq, mx),
		date:     newDateCache(nil),
		mx:       mx,
		log:      log,
	}
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	pw := &policyWriter{ResponseWriter: w}
	applySecurityHeaders(pw.Header(), g.date.Get())

	// HTTP/1.1 requires a Host header; net/http enforces this before
	// the handler runs, but requests injected by tests or adopted
	// listeners reach here directly.
	if r.ProtoMajor == 1 && r.ProtoMinor == 1 && r.Host == "" {
		pw.Header().Set("Connection", "close")
		pw.WriteHeader(http.StatusBadRequest)
		return
	}

	track := connTrackFrom(r.Context())
	clientIp := g.clientIp(track, r)

	sess := g.authenticate(pw, r, track, clientIp)

	if sess != nil && sess.SessionType == session.Basic {
		// Basic sessions are single-request: drop once served.
		defer g.store.Remove(sess)
	}

	if track != nil {
		iterations := loggedOutIterations
		if sess != nil {
			iterations = loggedInIterations
		}
		deadline, ok := g.dog.arm(track, iterations)
		if !ok {
			// No timer means no eviction guarantee: unsafe to serve.
			track.forceClose()
			return
		}
		defer deadline.disarm()
	}

	if !g.applyBodyCap(pw, r, sess) {
		return
	}

	if sess == nil && !g.allow.Allowed(r.Method, r.URL.Path) {
		unauthorized(pw, r, g.dispatch.HasWebUI())
		pw.finish()
		return
	}

	r = r.WithContext(router.ContextWithSession(r.Context(), sess))

	if isUpgrade(r) {
		if h, ok := g.dispatch.Upgrade(r.URL.Path); ok {
			// Hand the socket (and established session) to the
			// upgrade handler; this connection object is done.
			if track != nil {
				track.relinquish()
			}
			h.ServeHTTP(pw, r)
			return
		}
	}

	g.dispatch.ServeHTTP(pw, r)
	pw.finish()
}

// authenticate runs the auth chain: the header-credential pipeline
// first, then Basic as the final fallback, mirroring the method order
// mTLS → X-token → cookie → bearer → Basic.
func (g *Gateway) authenticate(w http.ResponseWriter, r *http.Request, track *connTrack, clientIp string) *session.UserSession {
	cfg := g.store.AuthConfig()

	var transport *session.UserSession
	if track != nil {
		transport = track.transportSession()
	}

	req := authpipeline.Request{
		ClientIp:         clientIp,
		Method:           r.Method,
		Header:           r.Header,
		TransportSession: transport,
	}

	if sess := authpipeline.Authenticate(req, w, cfg, g.store); sess != nil {
		g.recordAuth(sess)
		return sess
	}

	if g.pam != nil {
		if sess := authpipeline.AuthenticateBasic(req, cfg, g.store, g.pam); sess != nil {
			g.recordAuth(sess)
			return sess
		}
	}
	return nil
}

func (g *Gateway) recordAuth(sess *session.UserSession) {
	if g.mx == nil {
		return
	}
	switch sess.SessionType {
	case session.Basic:
		g.mx.AuthOutcome("basic", "success")
	case session.MutualTLS:
		g.mx.AuthOutcome("mtls", "success")
	case session.Cookie:
		g.mx.AuthOutcome("cookie", "success")
	default:
		g.mx.AuthOutcome("token", "success")
	}
}

// applyBodyCap enforces the logged-out preflight cap against
// Content-Length, then installs the hard cap on the body reader. The
// preflight only runs when Content-Length is present; a chunked
// anonymous upload is bounded by the hard cap alone.
func (g *Gateway) applyBodyCap(w http.ResponseWriter, r *http.Request, sess *session.UserSession) bool {
	if r.Body == nil {
		return true
	}

	if sess == nil && r.ContentLength > LoggedOutBodyBytes {
		w.Header().Set("Connection", "close")
		w.WriteHeader(http.StatusBadRequest)
		return false
	}

	// A chunked anonymous upload (no Content-Length) is bounded by the
	// hard cap alone; the tighter logged-out cap needs the preflight
	// estimate above to apply.
	limit := int64(MaxBodyBytes)
	if sess == nil && r.ContentLength >= 0 {
		limit = LoggedOutBodyBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	return true
}

func (g *Gateway) clientIp(track *connTrack, r *http.Request) string {
	if track != nil {
		return track.clientIp
	}
	return stripPort(r.RemoteAddr)
}

func isUpgrade(r *http.Request) bool {
	return httpHeaderContainsToken(r.Header.Get("Upgrade"), "websocket")
}
