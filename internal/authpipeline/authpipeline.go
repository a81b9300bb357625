// Package authpipeline implements the ordered, first-success-wins
// authentication chain every request runs through: mutual-TLS
// promotion, then X-Auth-Token, cookie+CSRF, bearer token, and finally
// Basic/PAM — each step individually disableable via AuthConfigMethods.
package authpipeline

import (
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/openbmc-project/bmcweb-core/internal/authconfig"
	"github.com/openbmc-project/bmcweb-core/internal/session"
)

// store is the subset of *session.Store this pipeline needs; kept
// narrow so it can be faked in tests without a real Store.
type store interface {
	LoginByToken(token string) (*session.UserSession, bool)
	Generate(username, clientIp, clientId string, sessionType session.Type, isConfigureSelfOnly bool) (*session.UserSession, error)
}

// Request is the pipeline's input: everything Authenticate needs from
// the transport without binding to net/http.Request directly, so a
// caller on either an HTTP/1.1 or HTTP/2 ConnectionState can supply it.
type Request struct {
	ClientIp         string
	Method           string
	Header           http.Header
	TransportSession *session.UserSession
}

// Authenticate runs the method chain against req and returns the first
// identity any enabled method produces, writing promotion cookies to w
// as a side effect when applicable. A nil return means no identity was
// established; the caller treats the connection as anonymous.
func Authenticate(req Request, w http.ResponseWriter, cfg authconfig.Methods, st store) *session.UserSession {
	if sess := mutualTLSPromotion(req, w, cfg); sess != nil {
		return sess
	}
	if sess := xAuthToken(req, cfg, st); sess != nil {
		return sess
	}
	if sess := cookieAuth(req, cfg, st); sess != nil {
		return sess
	}
	if sess := bearerToken(req, cfg, st); sess != nil {
		return sess
	}
	return nil
}

// AuthenticateBasic runs the Basic/PAM step, the last method in the
// chain. It is kept separate from Authenticate because it needs the
// PAM collaborator injected; the gateway calls it as the per-request
// fallback when the header-credential methods produce no identity, and
// the login endpoints call it directly.
func AuthenticateBasic(req Request, cfg authconfig.Methods, st store, pam Authenticator) *session.UserSession {
	if !cfg.BasicAuth {
		return nil
	}
	username, password, ok := parseBasic(req.Header.Get("Authorization"))
	if !ok {
		return nil
	}

	result, err := pam.Authenticate(username, password)
	if err != nil || result == Failure {
		return nil
	}

	sess, err := st.Generate(username, req.ClientIp, "", session.Basic, result == NewAuthTokReqd)
	if err != nil {
		return nil
	}
	return sess
}

func mutualTLSPromotion(req Request, w http.ResponseWriter, cfg authconfig.Methods) *session.UserSession {
	if !cfg.TLS || req.TransportSession == nil {
		return nil
	}
	if req.Header.Get("User-Agent") == "" {
		return req.TransportSession
	}
	setPromotionCookies(w, req.TransportSession)
	return req.TransportSession
}

func xAuthToken(req Request, cfg authconfig.Methods, st store) *session.UserSession {
	if !cfg.XToken {
		return nil
	}
	token := req.Header.Get("X-Auth-Token")
	if token == "" {
		return nil
	}
	sess, ok := st.LoginByToken(token)
	if !ok {
		return nil
	}
	return sess
}

func cookieAuth(req Request, cfg authconfig.Methods, st store) *session.UserSession {
	if !cfg.Cookie {
		return nil
	}
	token, ok := parseCookie(req.Header.Get("Cookie"), "SESSION")
	if !ok || token == "" {
		return nil
	}
	sess, ok := st.LoginByToken(token)
	if !ok {
		return nil
	}

	if req.Method == http.MethodGet {
		return sess
	}

	csrf := req.Header.Get("X-XSRF-TOKEN")
	if len(csrf) != session.SessionTokenSize {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(csrf), []byte(sess.CSRFToken)) != 1 {
		return nil
	}
	return sess
}

func bearerToken(req Request, cfg authconfig.Methods, st store) *session.UserSession {
	if !cfg.SessionToken {
		return nil
	}
	auth := req.Header.Get("Authorization")
	const prefix = "Token "
	if !strings.HasPrefix(auth, prefix) {
		return nil
	}
	sess, ok := st.LoginByToken(auth[len(prefix):])
	if !ok {
		return nil
	}
	return sess
}

// parseBasic decodes "Basic <base64>" into a username/password pair,
// reporting false for any malformed input (wrong prefix, bad base64, no
// colon) rather than erroring — the chain falls through instead.
func parseBasic(header string) (username, password string, ok bool) {
	const prefix = "Basic "
	if !strings.HasPrefix(header, prefix) {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(header[len(prefix):])
	if err != nil {
		return "", "", false
	}
	idx := strings.IndexByte(string(decoded), ':')
	if idx < 0 {
		return "", "", false
	}
	return string(decoded[:idx]), string(decoded[idx+1:]), true
}

// parseCookie extracts name's value from a raw Cookie header without
// pulling in the full net/http cookie-jar machinery, which is overkill
// for a single-key lookup on the server side.
func parseCookie(header, name string) (string, bool) {
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		eq := strings.IndexByte(part, '=')
		if eq < 0 {
			continue
		}
		if part[:eq] == name {
			return part[eq+1:], true
		}
	}
	return "", false
}

func setPromotionCookies(w http.ResponseWriter, sess *session.UserSession) {
	http.SetCookie(w, &http.Cookie{Name: "XSRF-TOKEN", Value: sess.CSRFToken, SameSite: http.SameSiteStrictMode, Secure: true})
	http.SetCookie(w, &http.Cookie{Name: "SESSION", Value: sess.SessionToken, SameSite: http.SameSiteStrictMode, Secure: true, HttpOnly: true})
	http.SetCookie(w, &http.Cookie{Name: "IsAuthenticated", Value: "true", Secure: true})
}
