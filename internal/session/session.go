// Package session implements the process-wide SessionStore: the set of
// live authenticated principals, keyed by opaque session token, with
// idle-timeout eviction and persistence hooks.
package session

import (
	"crypto/rand"
	"crypto/subtle"
	"time"

	libatomic "github.com/openbmc-project/bmcweb-core/atomic"
	"github.com/openbmc-project/bmcweb-core/internal/authconfig"
	"github.com/openbmc-project/bmcweb-core/internal/logger"
)

// Type classifies a UserSession's provenance and persistence behavior.
type Type int

const (
	// None is the zero value: no session.
	None Type = iota
	// Basic sessions are single-request, never persisted.
	Basic
	// Session is a cookie-or-token login, persisted across restarts.
	Session
	// Cookie is a cookie-established login, persisted across restarts.
	Cookie
	// MutualTLS sessions are transport-derived, never persisted.
	MutualTLS
)

// SessionTokenSize is the byte length of a session token and the
// required length of the X-XSRF-TOKEN header compared against a
// session's CSRF token.
const SessionTokenSize = 20

const (
	uniqueIdSize     = 10
	sessionTokenSize = SessionTokenSize
	csrfTokenSize    = 20

	tokenAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// DefaultTimeout is the idle eviction threshold applied by
	// ApplyTimeouts when the store was constructed with zero.
	DefaultTimeout = 1800 * time.Second

	timeoutCheckInterval = 1 * time.Second
)

// UserSession is the identity and liveness record of one authenticated
// principal. Mutation only happens through Store methods; callers treat
// the value as otherwise immutable.
type UserSession struct {
	UniqueId            string
	SessionToken        string
	CSRFToken           string
	Username            string
	ClientIp            string
	ClientId            string
	LastUpdated         time.Time
	SessionType         Type
	IsConfigureSelfOnly bool
}

// Persists reports whether sessions of this type survive a restart.
func (t Type) Persists() bool {
	return t == Session || t == Cookie
}

// Restore rebuilds a UserSession from persisted fields, resetting its
// idle timer to now and forcing SessionType to Session regardless of
// what it was serialized as — matching the restore contract: "on
// restore the lastUpdated is reset to now and sessionType is forced to
// Session".
func Restore(fields UserSession) *UserSession {
	fields.LastUpdated = time.Now()
	fields.SessionType = Session
	fields.IsConfigureSelfOnly = false
	return &fields
}

// randomToken samples n characters from tokenAlphabet using a CSPRNG.
func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", ErrorCSPRNGFailure.Error(err)
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = tokenAlphabet[int(b)%len(tokenAlphabet)]
	}
	return string(out), nil
}

// Store is the process-wide singleton of active sessions. Construct
// with New and inject the returned handle into every connection rather
// than reaching for a package-level global.
type Store struct {
	sessions          libatomic.MapTyped[string, *UserSession]
	needWrite         libatomic.Value[bool]
	lastTimeoutUpdate libatomic.Value[time.Time]
	timeout           libatomic.Value[time.Duration]
	checkInterval     libatomic.Value[time.Duration]
	cfg               libatomic.Value[authconfig.Methods]
	reconfigure       chan struct{}
	log               logger.FuncLog
}

// New constructs an empty Store with the given initial policy. log may
// be nil (no warnings emitted).
func New(cfg authconfig.Methods, log logger.FuncLog) *Store {
	s := &Store{
		sessions:          libatomic.NewMapTyped[string, *UserSession](),
		needWrite:         libatomic.NewValue[bool](),
		lastTimeoutUpdate: libatomic.NewValue[time.Time](),
		timeout:           libatomic.NewValue[time.Duration](),
		checkInterval:     libatomic.NewValue[time.Duration](),
		cfg:               libatomic.NewValue[authconfig.Methods](),
		reconfigure:       make(chan struct{}, 1),
		log:               log,
	}
	s.needWrite.Store(false)
	s.lastTimeoutUpdate.Store(time.Now())
	s.timeout.Store(DefaultTimeout)
	s.checkInterval.Store(timeoutCheckInterval)
	s.cfg.Store(cfg)
	return s
}

// SetTimeoutCheckInterval overrides the once-per-interval throttle on
// ApplyTimeouts' full scan (production default: 1s). Exposed for tests
// that need a deterministic eviction window shorter than a second.
func (s *Store) SetTimeoutCheckInterval(d time.Duration) {
	s.checkInterval.Store(d)
}

// Reconfigure returns the channel signalled whenever UpdateAuthConfig
// changes the TLS enable flag. The acceptor selects on it to know when
// to rebuild its TLS context.
func (s *Store) Reconfigure() <-chan struct{} {
	return s.reconfigure
}

// AuthConfig returns the current policy snapshot.
func (s *Store) AuthConfig() authconfig.Methods {
	return s.cfg.Load()
}

// SetTimeout overrides the idle-eviction threshold (default 1800s).
func (s *Store) SetTimeout(d time.Duration) {
	s.timeout.Store(d)
}

// NeedWrite reports whether a persister should flush state.
func (s *Store) NeedWrite() bool {
	return s.needWrite.Load()
}

// ClearNeedWrite is called by the persister after a successful flush.
func (s *Store) ClearNeedWrite() {
	s.needWrite.Store(false)
}

func (s *Store) markDirty() {
	s.needWrite.Store(true)
}

// Generate samples fresh session/csrf/unique tokens and inserts a new
// UserSession. Basic and MutualTLS sessions are not marked for
// persistence.
func (s *Store) Generate(username, clientIp, clientId string, sessionType Type, isConfigureSelfOnly bool) (*UserSession, error) {
	sessionToken, err := randomToken(sessionTokenSize)
	if err != nil {
		return nil, err
	}
	csrfToken, err := randomToken(csrfTokenSize)
	if err != nil {
		return nil, err
	}
	uniqueId, err := randomToken(uniqueIdSize)
	if err != nil {
		return nil, err
	}

	sess := &UserSession{
		UniqueId:            uniqueId,
		SessionToken:        sessionToken,
		CSRFToken:           csrfToken,
		Username:            username,
		ClientIp:            clientIp,
		ClientId:            clientId,
		LastUpdated:         time.Now(),
		SessionType:         sessionType,
		IsConfigureSelfOnly: isConfigureSelfOnly,
	}

	s.sessions.Store(sess.SessionToken, sess)
	if sessionType != Basic && sessionType != MutualTLS {
		s.markDirty()
	}
	return sess, nil
}

// constantTimeLookup walks every stored key with a constant-time
// compare so that, combined with the length check in LoginByToken, the
// time taken does not depend on how many leading characters of token
// match any stored key.
func (s *Store) constantTimeLookup(token string) *UserSession {
	var found *UserSession
	tokenBytes := []byte(token)
	s.sessions.Range(func(key string, value *UserSession) bool {
		if subtle.ConstantTimeCompare([]byte(key), tokenBytes) == 1 {
			found = value
		}
		return true
	})
	return found
}

// LoginByToken applies pending timeouts, then looks up token under a
// constant-time compare. On hit it refreshes LastUpdated.
func (s *Store) LoginByToken(token string) (*UserSession, bool) {
	s.ApplyTimeouts()

	if len(token) != sessionTokenSize {
		return nil, false
	}

	sess := s.constantTimeLookup(token)
	if sess == nil {
		return nil, false
	}

	sess.LastUpdated = time.Now()
	return sess, true
}

// Load inserts an already-reconstructed session (see Restore) into the
// live map without marking needWrite, since it came from the persisted
// copy of this exact state.
func (s *Store) Load(sess *UserSession) {
	s.sessions.Store(sess.SessionToken, sess)
}

// GetByUid linear-scans for a session with the given uniqueId.
func (s *Store) GetByUid(uid string) (*UserSession, bool) {
	var found *UserSession
	s.sessions.Range(func(_ string, value *UserSession) bool {
		if value.UniqueId == uid {
			found = value
			return false
		}
		return true
	})
	return found, found != nil
}

// Remove erases sess by its session token.
func (s *Store) Remove(sess *UserSession) {
	if sess == nil {
		return
	}
	s.sessions.Delete(sess.SessionToken)
	s.markDirty()
}

// RemoveByUsername erases every session owned by name.
func (s *Store) RemoveByUsername(name string) {
	s.RemoveByUsernameExcept(name, nil)
}

// RemoveByUsernameExcept erases every session owned by name other than
// except.
func (s *Store) RemoveByUsernameExcept(name string, except *UserSession) {
	var toDelete []string
	s.sessions.Range(func(key string, value *UserSession) bool {
		if value.Username == name && (except == nil || value.SessionToken != except.SessionToken) {
			toDelete = append(toDelete, key)
		}
		return true
	})
	if len(toDelete) == 0 {
		return
	}
	for _, key := range toDelete {
		s.sessions.Delete(key)
	}
	s.markDirty()
}

// GetAllUniqueIds returns a read-only snapshot of every live uniqueId.
func (s *Store) GetAllUniqueIds() []string {
	var out []string
	s.sessions.Range(func(_ string, value *UserSession) bool {
		out = append(out, value.UniqueId)
		return true
	})
	return out
}

// GetUniqueIdsByType returns the uniqueIds of every live session of the
// given type.
func (s *Store) GetUniqueIdsByType(t Type) []string {
	var out []string
	s.sessions.Range(func(_ string, value *UserSession) bool {
		if value.SessionType == t {
			out = append(out, value.UniqueId)
		}
		return true
	})
	return out
}

// GetSessions returns a read-only snapshot of every live session.
func (s *Store) GetSessions() []*UserSession {
	var out []*UserSession
	s.sessions.Range(func(_ string, value *UserSession) bool {
		out = append(out, value)
		return true
	})
	return out
}

// UpdateAuthConfig replaces the policy. If the TLS flag changed, it
// signals Reconfigure so the acceptor rebuilds its TLS context.
func (s *Store) UpdateAuthConfig(newCfg authconfig.Methods) {
	old := s.cfg.Load()
	s.cfg.Store(newCfg)
	s.markDirty()

	if old.TLS != newCfg.TLS {
		select {
		case s.reconfigure <- struct{}{}:
		default:
		}
	}
}

// ApplyTimeouts walks the session map and evicts every session idle
// for at least the configured timeout, at most once per second.
func (s *Store) ApplyTimeouts() {
	last := s.lastTimeoutUpdate.Load()
	now := time.Now()
	if now.Sub(last) < s.checkInterval.Load() {
		return
	}
	s.lastTimeoutUpdate.Store(now)

	timeout := s.timeout.Load()
	var expired []string
	s.sessions.Range(func(key string, value *UserSession) bool {
		if now.Sub(value.LastUpdated) >= timeout {
			expired = append(expired, key)
		}
		return true
	})
	if len(expired) == 0 {
		return
	}
	for _, key := range expired {
		s.sessions.Delete(key)
	}
	s.markDirty()
}
