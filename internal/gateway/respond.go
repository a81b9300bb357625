package gateway

import (
	"bufio"
	"encoding/json"
	"fmt"
	"html"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// securityHeaders is stamped onto every response before the handler
// runs.
var securityHeaders = map[string]string{
	"Strict-Transport-Security":          "max-age=31536000; includeSubdomains",
	"X-Frame-Options":                    "DENY",
	"Pragma":                             "no-cache",
	"Cache-Control":                      "no-store, max-age=0",
	"X-Content-Type-Options":             "nosniff",
	"Referrer-Policy":                    "no-referrer",
	"X-Permitted-Cross-Domain-Policies":  "none",
	"Cross-Origin-Embedder-Policy":       "require-corp",
	"Cross-Origin-Opener-Policy":         "same-origin",
	"Cross-Origin-Resource-Policy":       "same-origin",
	"Permissions-Policy":                 "accelerometer=(), ambient-light-sensor=(), autoplay=(), battery=(), camera=(), display-capture=(), document-domain=(), encrypted-media=(), fullscreen=(), geolocation=(), gyroscope=(), magnetometer=(), microphone=(), midi=(), payment=(), picture-in-picture=(), publickey-credentials-get=(), screen-wake-lock=(), serial=(), sync-xhr=(), usb=(), web-share=(), xr-spatial-tracking=()",
	"Content-Security-Policy":            "default-src 'none'; img-src 'self' data:; font-src 'self'; style-src 'self'; script-src 'self'; connect-src 'self' wss:; form-action 'none'; frame-ancestors 'none'; object-src 'none'; base-uri 'none'",
}

func applySecurityHeaders(h http.Header, date string) {
	for k, v := range securityHeaders {
		h.Set(k, v)
	}
	h.Set("Date", date)
}

// prefersHTML reports whether the client's Accept header ranks
// text/html above a JSON representation.
func prefersHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	htmlIdx := strings.Index(accept, "text/html")
	if htmlIdx < 0 {
		return false
	}
	jsonIdx := strings.Index(accept, "application/json")
	return jsonIdx < 0 || htmlIdx < jsonIdx
}

// WriteJSON renders v per the response-body contract: a pretty-printed
// HTML table when the client prefers HTML, otherwise JSON with 2-space
// indentation (encoding/json replaces invalid UTF-8 on its own). A 204
// status never carries a body.
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}

	if prefersHTML(r) {
		w.Header().Set("Content-Type", "text/html;charset=UTF-8")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(renderHTML(v)))
		return
	}

	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// renderHTML flattens v into a two-column table, one row per top-level
// member, nested values serialized inline.
func renderHTML(v interface{}) string {
	var b strings.Builder
	b.WriteString("<html><head><title>Redfish Service</title></head><body><table>\n")

	if m, ok := v.(map[string]interface{}); ok {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			val, _ := json.Marshal(m[k])
			fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td></tr>\n",
				html.EscapeString(k), html.EscapeString(string(val)))
		}
	} else {
		val, _ := json.MarshalIndent(v, "", "  ")
		fmt.Fprintf(&b, "<tr><td>%s</td></tr>\n", html.EscapeString(string(val)))
	}

	b.WriteString("</table></body></html>\n")
	return b.String()
}

// unauthorized writes the unauthorized response: HTML-preferring
// clients with a web UI get a 307 to the login page with the original
// path threaded through; anyone else gets a 401, with WWW-Authenticate
// added only for non-browser clients (empty User-Agent).
func unauthorized(w http.ResponseWriter, r *http.Request, hasWebUI bool) {
	if prefersHTML(r) && hasWebUI {
		w.Header().Set("Location", "/#/login?next="+url.QueryEscape(r.URL.Path))
		w.WriteHeader(http.StatusTemporaryRedirect)
		return
	}
	if r.Header.Get("User-Agent") == "" {
		w.Header().Set("WWW-Authenticate", "Basic")
	}
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte("Unauthorized"))
}

// policyWriter enforces the response-shape rules the gateway owns: a
// 204 never carries a body, and a 4xx/5xx whose handler wrote nothing
// gets the reason phrase as its body.
type policyWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	wroteBody   bool
}

func (p *policyWriter) WriteHeader(status int) {
	if p.wroteHeader {
		return
	}
	p.status = status
	p.wroteHeader = true
	p.ResponseWriter.WriteHeader(status)
}

func (p *policyWriter) Write(b []byte) (int, error) {
	if !p.wroteHeader {
		p.WriteHeader(http.StatusOK)
	}
	if p.status == http.StatusNoContent {
		// swallow: 204 responses always have empty bodies.
		return len(b), nil
	}
	if len(b) > 0 {
		p.wroteBody = true
	}
	return p.ResponseWriter.Write(b)
}

// finish backfills the reason phrase for an empty-bodied error
// response.
func (p *policyWriter) finish() {
	if !p.wroteHeader {
		p.WriteHeader(http.StatusOK)
	}
	if p.status >= 400 && !p.wroteBody {
		_, _ = p.ResponseWriter.Write([]byte(http.StatusText(p.status)))
	}
}

// Hijack lets websocket upgrade handlers take the raw connection.
func (p *policyWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := p.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return hj.Hijack()
}

// Flush forwards streaming writes.
func (p *policyWriter) Flush() {
	if f, ok := p.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
