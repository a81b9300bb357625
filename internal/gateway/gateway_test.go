package gateway_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openbmc-project/bmcweb-core/internal/authconfig"
	"github.com/openbmc-project/bmcweb-core/internal/authpipeline"
	"github.com/openbmc-project/bmcweb-core/internal/gateway"
	"github.com/openbmc-project/bmcweb-core/internal/router"
	"github.com/openbmc-project/bmcweb-core/internal/session"
	"github.com/openbmc-project/bmcweb-core/internal/timerqueue"
)

func TestGateway(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "gateway suite")
}

type fakeDispatch struct {
	webUI    bool
	called   bool
	lastSess *session.UserSession
	status   int
	body     string
}

func (f *fakeDispatch) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.called = true
	f.lastSess = router.SessionFromContext(r.Context())
	status := f.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if f.body != "" {
		_, _ = w.Write([]byte(f.body))
	}
}

func (f *fakeDispatch) HasWebUI() bool { return f.webUI }

func (f *fakeDispatch) Upgrade(string) (http.Handler, bool) { return nil, false }

type pamAlways struct{ result authpipeline.Result }

func (p pamAlways) Authenticate(_, _ string) (authpipeline.Result, error) {
	return p.result, nil
}

var _ = Describe("Gateway", func() {
	var (
		store    *session.Store
		dispatch *fakeDispatch
		gw       *gateway.Gateway
	)

	newGateway := func(webUI bool, pam authpipeline.Authenticator) {
		store = session.New(authconfig.Default(), nil)
		dispatch = &fakeDispatch{webUI: webUI}
		gw = gateway.New(gateway.Config{Name: "test"}, store, dispatch, router.NewAllowlist(), pam, timerqueue.New(), nil, nil)
	}

	BeforeEach(func() {
		newGateway(false, nil)
	})

	Describe("unauthorized responder", func() {
		request := func(accept, userAgent string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodGet, "/redfish/v1/Systems", nil)
			if accept != "" {
				req.Header.Set("Accept", accept)
			}
			if userAgent != "" {
				req.Header.Set("User-Agent", userAgent)
			}
			rec := httptest.NewRecorder()
			gw.ServeHTTP(rec, req)
			return rec
		}

		It("redirects an HTML-preferring client to the UI login page when a web UI exists", func() {
			newGateway(true, nil)
			rec := request("text/html", "Mozilla/5.0")
			Expect(rec.Code).To(Equal(http.StatusTemporaryRedirect))
			Expect(rec.Header().Get("Location")).To(Equal("/#/login?next=%2Fredfish%2Fv1%2FSystems"))
		})

		It("responds 401 Unauthorized to an HTML-preferring client without a web UI", func() {
			rec := request("text/html", "Mozilla/5.0")
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(rec.Body.String()).To(Equal("Unauthorized"))
		})

		It("adds WWW-Authenticate for a non-browser client", func() {
			rec := request("application/json", "")
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(rec.Header().Get("WWW-Authenticate")).To(Equal("Basic"))
		})

		It("omits WWW-Authenticate for a non-HTML client with a User-Agent", func() {
			rec := request("application/json", "curl/8.0")
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(rec.Header().Get("WWW-Authenticate")).To(BeEmpty())
		})

		It("redirects HTML with a web UI even when the User-Agent is empty", func() {
			newGateway(true, nil)
			rec := request("text/html", "")
			Expect(rec.Code).To(Equal(http.StatusTemporaryRedirect))
		})

		It("responds 401 without a web UI even for an empty User-Agent browser Accept", func() {
			rec := request("text/html", "")
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(rec.Header().Get("WWW-Authenticate")).To(Equal("Basic"))
		})
	})

	Describe("allowlist", func() {
		It("lets an anonymous GET /redfish/v1/ reach the router with no session", func() {
			req := httptest.NewRequest(http.MethodGet, "/redfish/v1/", nil)
			rec := httptest.NewRecorder()
			gw.ServeHTTP(rec, req)

			Expect(dispatch.called).To(BeTrue())
			Expect(dispatch.lastSess).To(BeNil())
			Expect(rec.Code).To(Equal(http.StatusOK))
		})

		It("rejects an anonymous GET outside the allowlist", func() {
			req := httptest.NewRequest(http.MethodGet, "/redfish/v1/Systems", nil)
			rec := httptest.NewRecorder()
			gw.ServeHTTP(rec, req)

			Expect(dispatch.called).To(BeFalse())
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})
	})

	Describe("HTTP/1.1 Host requirement", func() {
		It("rejects a 1.1 request with an empty Host", func() {
			req := httptest.NewRequest(http.MethodGet, "/redfish/v1/", nil)
			req.Host = ""
			rec := httptest.NewRecorder()
			gw.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(rec.Header().Get("Connection")).To(Equal("close"))
			Expect(rec.Body.Len()).To(BeZero())
		})
	})

	Describe("security and date headers", func() {
		It("stamps the full header set and an IMF-fixdate Date on every response", func() {
			req := httptest.NewRequest(http.MethodGet, "/redfish/v1", nil)
			rec := httptest.NewRecorder()
			gw.ServeHTTP(rec, req)

			h := rec.Header()
			Expect(h.Get("Strict-Transport-Security")).To(Equal("max-age=31536000; includeSubdomains"))
			Expect(h.Get("X-Frame-Options")).To(Equal("DENY"))
			Expect(h.Get("Cache-Control")).To(Equal("no-store, max-age=0"))
			Expect(h.Get("X-Content-Type-Options")).To(Equal("nosniff"))
			Expect(h.Get("Content-Security-Policy")).To(ContainSubstring("default-src 'none'"))

			_, err := http.ParseTime(h.Get("Date"))
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("authenticated requests", func() {
		It("threads a token-authenticated session through to the router", func() {
			sess, err := store.Generate("alice", "10.0.0.1", "", session.Session, false)
			Expect(err).NotTo(HaveOccurred())

			req := httptest.NewRequest(http.MethodGet, "/redfish/v1/Systems", nil)
			req.Header.Set("X-Auth-Token", sess.SessionToken)
			rec := httptest.NewRecorder()
			gw.ServeHTTP(rec, req)

			Expect(dispatch.called).To(BeTrue())
			Expect(dispatch.lastSess).NotTo(BeNil())
			Expect(dispatch.lastSess.Username).To(Equal("alice"))
		})

		It("enforces CSRF on cookie-authenticated unsafe methods", func() {
			sess, err := store.Generate("bob", "10.0.0.2", "", session.Cookie, false)
			Expect(err).NotTo(HaveOccurred())

			req := httptest.NewRequest(http.MethodPost, "/redfish/v1/Systems", strings.NewReader("{}"))
			req.Header.Set("Cookie", "SESSION="+sess.SessionToken)
			rec := httptest.NewRecorder()
			gw.ServeHTTP(rec, req)
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(dispatch.called).To(BeFalse())

			req = httptest.NewRequest(http.MethodPost, "/redfish/v1/Systems", strings.NewReader("{}"))
			req.Header.Set("Cookie", "SESSION="+sess.SessionToken)
			req.Header.Set("X-XSRF-TOKEN", sess.CSRFToken)
			rec = httptest.NewRecorder()
			gw.ServeHTTP(rec, req)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(dispatch.called).To(BeTrue())
		})

		It("removes a Basic session once the request completes", func() {
			newGateway(false, pamAlways{result: authpipeline.Success})

			req := httptest.NewRequest(http.MethodGet, "/redfish/v1/Systems", nil)
			req.SetBasicAuth("root", "0penBmc")
			rec := httptest.NewRecorder()
			gw.ServeHTTP(rec, req)

			Expect(dispatch.called).To(BeTrue())
			Expect(dispatch.lastSess.SessionType).To(Equal(session.Basic))
			Expect(store.GetUniqueIdsByType(session.Basic)).To(BeEmpty())
		})
	})

	Describe("logged-out body cap", func() {
		It("rejects an anonymous POST whose Content-Length exceeds the cap", func() {
			body := strings.NewReader(strings.Repeat("x", 5000))
			req := httptest.NewRequest(http.MethodPost, "/login", body)
			rec := httptest.NewRecorder()
			gw.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(dispatch.called).To(BeFalse())
		})

		It("passes an anonymous POST under the cap through to the router", func() {
			body := strings.NewReader(`{"username":"root","password":"x"}`)
			req := httptest.NewRequest(http.MethodPost, "/login", body)
			rec := httptest.NewRecorder()
			gw.ServeHTTP(rec, req)

			Expect(dispatch.called).To(BeTrue())
		})
	})

	Describe("response shaping", func() {
		It("clears the body of a 204 response", func() {
			dispatch.status = http.StatusNoContent
			dispatch.body = "should vanish"

			req := httptest.NewRequest(http.MethodGet, "/redfish/v1", nil)
			rec := httptest.NewRecorder()
			gw.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusNoContent))
			Expect(rec.Body.Len()).To(BeZero())
		})

		It("backfills the reason phrase for an empty-bodied error response", func() {
			dispatch.status = http.StatusServiceUnavailable

			req := httptest.NewRequest(http.MethodGet, "/redfish/v1", nil)
			rec := httptest.NewRecorder()
			gw.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
			Expect(rec.Body.String()).To(Equal(http.StatusText(http.StatusServiceUnavailable)))
		})
	})
})
