package gateway

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/http2"

	libatomic "github.com/openbmc-project/bmcweb-core/atomic"
	libctx "github.com/openbmc-project/bmcweb-core/context"
	"github.com/openbmc-project/bmcweb-core/errors"
	"github.com/openbmc-project/bmcweb-core/internal/logger"
	"github.com/openbmc-project/bmcweb-core/internal/metrics"
	"github.com/openbmc-project/bmcweb-core/internal/session"
	"github.com/openbmc-project/bmcweb-core/internal/timerqueue"
	"github.com/openbmc-project/bmcweb-core/internal/tlsctx"
)

const (
	timeoutShutdown = 10 * time.Second
	portProbe       = 2 * time.Second
)

// Acceptor owns the listening socket, the TLS context, the deadline
// ticker, and signal handling: SIGHUP reloads the certificate and
// rebuilds the TLS context, SIGINT/SIGTERM drain and stop. Existing
// connections retain the context they handshook under until they
// terminate.
type Acceptor struct {
	cfg     Config
	store   *session.Store
	handler http.Handler
	tq      *timerqueue.Queue
	mx      *metrics.Metrics
	log     logger.FuncLog

	tlsCtx   libatomic.Value[*tlsctx.Context]
	run      libatomic.Value[bool]
	tracks   libatomic.MapTyped[net.Conn, *connTrack]
	bag      libctx.Config[string]
	srv      *http.Server
	listener net.Listener
	cnl      context.CancelFunc
}

// NewAcceptor wires an Acceptor. The TLS context is not built until
// Listen.
func NewAcceptor(cfg Config, store *session.Store, handler http.Handler, tq *timerqueue.Queue, mx *metrics.Metrics, log logger.FuncLog) *Acceptor {
	return &Acceptor{
		cfg:     cfg,
		store:   store,
		handler: handler,
		tq:      tq,
		mx:      mx,
		log:     log,
		tlsCtx:  libatomic.NewValue[*tlsctx.Context](),
		run:     libatomic.NewValue[bool](),
		tracks:  libatomic.NewMapTyped[net.Conn, *connTrack](),
		bag:     libctx.NewConfig[string](nil),
	}
}

// SetListener adopts an already-listening socket instead of binding
// cfg.Listen; must be called before Listen.
func (a *Acceptor) SetListener(l net.Listener) {
	a.listener = l
}

// IsRunning reports whether the serve loop is live.
func (a *Acceptor) IsRunning() bool {
	return a.run.Load()
}

// Listen builds the TLS context, configures HTTP/2 on the server, and
// starts serving in the background.
func (a *Acceptor) Listen() errors.Error {
	if a.cfg.LegacyCertPath != "" {
		_ = os.Remove(a.cfg.LegacyCertPath)
	}

	if err := a.buildTLS(); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:           a.cfg.Listen,
		Handler:        a.handler,
		MaxHeaderBytes: MaxHeaderBytes,
		TLSConfig: &tls.Config{
			GetConfigForClient: a.configForClient,
			NextProtos:         []string{"h2", "http/1.1"},
		},
		ConnContext: a.connContext,
		ConnState:   a.connState,
	}

	if a.cfg.IdleTimeout > 0 {
		srv.IdleTimeout = a.cfg.IdleTimeout
	}

	h2 := &http2.Server{
		MaxConcurrentStreams: MaxConcurrentStreams,
	}
	if a.cfg.IdleTimeout > 0 {
		h2.IdleTimeout = a.cfg.IdleTimeout
	}

	if e := http2.ConfigureServer(srv, h2); e != nil {
		return ErrorHTTP2Configure.Error(e)
	}

	if a.IsRunning() {
		a.Shutdown()
	}

	if a.listener == nil {
		for i := 0; i < 5; i++ {
			if e := a.PortInUse(); e != nil {
				a.Shutdown()
			} else {
				break
			}
		}
	}

	a.srv = srv
	a.bag.Store("name", a.cfg.Name)
	a.bag.Store("bindable", a.cfg.Listen)

	go a.serve()

	return nil
}

// GetName returns the server's display name, defaulting to the bind
// address.
func (a *Acceptor) GetName() string {
	if v, ok := a.bag.Load("name"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return a.cfg.Listen
}

func (a *Acceptor) serve() {
	ctx, cnl := context.WithCancel(a.bag.GetContext())
	a.cnl = cnl

	defer func() {
		cnl()
		a.run.Store(false)
	}()

	a.srv.BaseContext = func(net.Listener) context.Context {
		return ctx
	}

	go a.tickDeadlines(ctx)

	a.logEntry(logger.InfoLevel, "TLS server starting").
		FieldAdd("name", a.GetName()).
		FieldAdd("bindable", a.cfg.Listen).
		Log()

	a.run.Store(true)

	var err error
	if a.listener != nil {
		err = a.srv.ServeTLS(a.listener, "", "")
	} else {
		err = a.srv.ListenAndServeTLS("", "")
	}

	if err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
		a.logEntry(logger.ErrorLevel, "listen server failed").
			FieldAdd("name", a.GetName()).
			ErrorAdd(err).
			Log()
	}
}

// tickDeadlines drives the timer queue at its nominal granularity for
// as long as the serve loop is live.
func (a *Acceptor) tickDeadlines(ctx context.Context) {
	tick := time.NewTicker(timerqueue.Tick)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-tick.C:
			a.tq.Process(now)
		}
	}
}

// buildTLS runs the certificate lifecycle and constructs a fresh
// context; on reload failure the previous context is retained.
func (a *Acceptor) buildTLS() errors.Error {
	ctx, err := tlsctx.Build(tlsctx.Options{
		CertPath: a.cfg.CertPath,
		Hostname: a.cfg.Hostname,
		HasWebUI: a.cfg.HasWebUI,
	}, a.store.AuthConfig())
	if err != nil {
		if prev := a.tlsCtx.Load(); prev != nil {
			a.logEntry(logger.ErrorLevel, "TLS reload abandoned, previous context retained").
				ErrorAdd(err).
				Log()
			return nil
		}
		return ErrorTLSBuild.Error(err)
	}
	a.tlsCtx.Store(ctx)
	return nil
}

// configForClient hands every handshake the current TLS context and,
// when the accepted socket is tracked, wires the mutual-TLS verify
// callback at it so an extracted identity lands on the connection.
func (a *Acceptor) configForClient(hi *tls.ClientHelloInfo) (*tls.Config, error) {
	ctx := a.tlsCtx.Load()
	if ctx == nil {
		return nil, errNoTLSContext
	}

	c := ctx.TLSConfig("")
	c.NextProtos = []string{"h2", "http/1.1"}

	if track, ok := a.tracks.Load(hi.Conn); ok {
		attach := func(sess *session.UserSession) {
			track.attach(sess)
			if a.mx != nil {
				a.mx.TLSOutcome("mtls_identity")
			}
		}
		c.VerifyPeerCertificate = tlsctx.VerifyCallback(a.store, a.cfg.Hostname, track.clientIp, attach)
	}
	return c, nil
}

// connContext registers per-connection state at accept time, before the
// handshake runs, keyed by the raw socket so configForClient can find
// it from the ClientHelloInfo.
func (a *Acceptor) connContext(ctx context.Context, c net.Conn) context.Context {
	raw := underlying(c)
	track := newConnTrack(raw)
	a.tracks.Store(raw, track)
	return withConnTrack(ctx, track)
}

// connState releases per-connection state. A hijacked socket has been
// handed to a websocket handler and is no longer this acceptor's to
// clean up, but its tracking entry still goes.
func (a *Acceptor) connState(c net.Conn, state http.ConnState) {
	switch state {
	case http.StateClosed:
		raw := underlying(c)
		if track, loaded := a.tracks.LoadAndDelete(raw); loaded {
			track.onClose(a.store)
		}
	case http.StateHijacked:
		raw := underlying(c)
		if track, loaded := a.tracks.LoadAndDelete(raw); loaded {
			track.relinquish()
		}
	}
}

// WaitNotify blocks until the process is told to stop or reconfigure:
// SIGINT/SIGTERM/SIGQUIT drain and stop, SIGHUP and an auth-policy TLS
// flag change rebuild the TLS context in place.
func (a *Acceptor) WaitNotify() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)

	for {
		select {
		case <-quit:
			a.Shutdown()
			return
		case <-reload:
			a.Reload()
		case <-a.store.Reconfigure():
			a.Reload()
		}
	}
}

// Reload re-runs the certificate lifecycle and swaps the TLS context;
// connections already established keep the old one.
func (a *Acceptor) Reload() {
	a.logEntry(logger.InfoLevel, "reloading TLS context").
		FieldAdd("name", a.GetName()).
		Log()
	_ = a.buildTLS()
}

// Restart tears the serve loop down and brings it back up with the
// same configuration.
func (a *Acceptor) Restart() {
	_ = a.Listen()
}

// Shutdown drains live connections for up to timeoutShutdown, then
// closes the server.
func (a *Acceptor) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), timeoutShutdown)
	defer func() {
		cancel()
		if a.srv != nil {
			_ = a.srv.Close()
		}
		a.run.Store(false)
	}()

	a.logEntry(logger.InfoLevel, "shutdown server").
		FieldAdd("name", a.GetName()).
		Log()

	if a.cnl != nil {
		a.cnl()
	}

	if a.srv != nil {
		if err := a.srv.Shutdown(ctx); err != nil && err != http.ErrServerClosed {
			a.logEntry(logger.ErrorLevel, "shutdown server failed").
				FieldAdd("name", a.GetName()).
				ErrorAdd(err).
				Log()
		}
	}
}

// PortInUse probes the bind address; a successful dial means something
// is already listening there.
func (a *Acceptor) PortInUse() errors.Error {
	dia := net.Dialer{}

	ctx, cnl := context.WithTimeout(context.Background(), portProbe)
	defer cnl()

	con, err := dia.DialContext(ctx, "tcp", a.cfg.Listen)
	if con != nil {
		_ = con.Close()
	}
	if err != nil {
		return nil
	}
	return ErrorPortInUse.Error(nil)
}

func (a *Acceptor) logEntry(level logger.Level, message string) logger.Entry {
	if a.log != nil {
		if l := a.log(); l != nil {
			return l.Entry(level, message)
		}
	}
	return discardEntry{}
}

type discardEntry struct{}

func (discardEntry) FieldAdd(string, interface{}) logger.Entry { return discardEntry{} }
func (discardEntry) ErrorAdd(error) logger.Entry               { return discardEntry{} }
func (discardEntry) Check(logger.Level) bool                   { return false }
func (discardEntry) Log()                                      {}
