package gateway

import (
	"context"
	"crypto/tls"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/openbmc-project/bmcweb-core/internal/session"
)

type trackKey uint8

const connKey trackKey = iota

// connTrack is the per-connection state the gateway threads from accept
// time into each request: the client address, the raw socket (so the
// watchdog can force-close it), the identity minted by the mutual-TLS
// verify callback, and whether that identity must be cleaned up when
// the transport closes.
type connTrack struct {
	id       string
	clientIp string

	mu        sync.Mutex
	raw       net.Conn
	closed    bool
	relinqed  bool
	transport *session.UserSession

	// sessionIsFromTransport is true iff transport was established by
	// the TLS verify callback.
	sessionIsFromTransport bool
}

func newConnTrack(raw net.Conn) *connTrack {
	ip, _, err := net.SplitHostPort(raw.RemoteAddr().String())
	if err != nil {
		ip = raw.RemoteAddr().String()
	}
	return &connTrack{
		id:       uuid.New().String(),
		clientIp: ip,
		raw:      raw,
	}
}

// attach records the transport-derived identity minted during the
// handshake.
func (t *connTrack) attach(sess *session.UserSession) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.transport = sess
	t.sessionIsFromTransport = true
}

func (t *connTrack) transportSession() *session.UserSession {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transport
}

// forceClose tears the socket down; outstanding reads and writes on it
// fail, which unwinds the serving goroutine.
func (t *connTrack) forceClose() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.relinqed {
		return
	}
	t.closed = true
	_ = t.raw.Close()
}

// relinquish marks the socket as handed off to a websocket handler; the
// watchdog and close-cleanup no longer own it.
func (t *connTrack) relinquish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.relinqed = true
}

// onClose releases the transport session when the connection dies, per
// the sessionIsFromTransport contract.
func (t *connTrack) onClose(store *session.Store) {
	t.mu.Lock()
	sess := t.transport
	fromTransport := t.sessionIsFromTransport
	t.transport = nil
	t.mu.Unlock()

	if fromTransport && sess != nil {
		store.Remove(sess)
	}
}

// withConnTrack stashes t in the connection's base context so ServeHTTP
// can find it; installed as the server's ConnContext hook.
func withConnTrack(ctx context.Context, t *connTrack) context.Context {
	return context.WithValue(ctx, connKey, t)
}

func connTrackFrom(ctx context.Context) *connTrack {
	t, _ := ctx.Value(connKey).(*connTrack)
	return t
}

// underlying unwraps a *tls.Conn down to the accepted TCP socket, which
// is the key the acceptor's handshake-time holder map uses.
func underlying(c net.Conn) net.Conn {
	if tc, ok := c.(*tls.Conn); ok {
		return tc.NetConn()
	}
	return c
}
