package redfish_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openbmc-project/bmcweb-core/internal/authconfig"
	"github.com/openbmc-project/bmcweb-core/internal/authpipeline"
	"github.com/openbmc-project/bmcweb-core/internal/router"
	"github.com/openbmc-project/bmcweb-core/internal/router/redfish"
	"github.com/openbmc-project/bmcweb-core/internal/session"
)

func TestRedfish(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "redfish suite")
}

type pamStub struct {
	result authpipeline.Result
}

func (p pamStub) Authenticate(_, _ string) (authpipeline.Result, error) {
	return p.result, nil
}

var _ = Describe("Service", func() {
	var (
		store *session.Store
		svc   *redfish.Service
	)

	newService := func(result authpipeline.Result) {
		store = session.New(authconfig.Default(), nil)
		svc = redfish.New(store, pamStub{result: result}, false, nil)
	}

	BeforeEach(func() {
		newService(authpipeline.Success)
	})

	Describe("POST /login", func() {
		It("issues a session with cookies and the token in the body", func() {
			body := strings.NewReader(`{"username":"root","password":"0penBmc"}`)
			req := httptest.NewRequest(http.MethodPost, "/login", body)
			rec := httptest.NewRecorder()
			svc.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))

			var out map[string]string
			Expect(json.Unmarshal(rec.Body.Bytes(), &out)).To(Succeed())
			Expect(out["token"]).To(MatchRegexp(`^[0-9A-Za-z]{20}$`))

			cookies := map[string]string{}
			for _, c := range rec.Result().Cookies() {
				cookies[c.Name] = c.Value
			}
			Expect(cookies).To(HaveKey("XSRF-TOKEN"))
			Expect(cookies).To(HaveKeyWithValue("BMCWEB-SESSION", out["token"]))

			sess, ok := store.LoginByToken(out["token"])
			Expect(ok).To(BeTrue())
			Expect(sess.Username).To(Equal("root"))
			Expect(sess.SessionType).To(Equal(session.Session))
		})

		It("responds 400 on malformed JSON", func() {
			req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("{nope"))
			rec := httptest.NewRecorder()
			svc.ServeHTTP(rec, req)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("responds 401 on bad credentials", func() {
			newService(authpipeline.Failure)

			body := strings.NewReader(`{"username":"root","password":"wrong"}`)
			req := httptest.NewRequest(http.MethodPost, "/login", body)
			rec := httptest.NewRecorder()
			svc.ServeHTTP(rec, req)
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})
	})

	Describe("POST /logout", func() {
		It("removes the caller's session and expires its cookies", func() {
			sess, err := store.Generate("root", "127.0.0.1", "", session.Session, false)
			Expect(err).NotTo(HaveOccurred())

			req := httptest.NewRequest(http.MethodPost, "/logout", nil)
			req = req.WithContext(router.ContextWithSession(req.Context(), sess))
			rec := httptest.NewRecorder()
			svc.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			_, ok := store.LoginByToken(sess.SessionToken)
			Expect(ok).To(BeFalse())

			var cleared bool
			for _, c := range rec.Result().Cookies() {
				if c.Name == "BMCWEB-SESSION" && c.Value == "" {
					cleared = true
				}
			}
			Expect(cleared).To(BeTrue())
		})
	})

	Describe("session service", func() {
		It("creates a Redfish session with the token in X-Auth-Token", func() {
			body := strings.NewReader(`{"UserName":"root","Password":"0penBmc"}`)
			req := httptest.NewRequest(http.MethodPost, "/redfish/v1/SessionService/Sessions", body)
			rec := httptest.NewRecorder()
			svc.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusCreated))
			Expect(rec.Header().Get("X-Auth-Token")).To(MatchRegexp(`^[0-9A-Za-z]{20}$`))
			Expect(rec.Header().Get("Location")).To(HavePrefix("/redfish/v1/SessionService/Sessions/"))
		})

		It("lists live sessions as collection members", func() {
			sess, err := store.Generate("root", "127.0.0.1", "", session.Session, false)
			Expect(err).NotTo(HaveOccurred())

			req := httptest.NewRequest(http.MethodGet, "/redfish/v1/SessionService/Sessions", nil)
			rec := httptest.NewRecorder()
			svc.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring(sess.UniqueId))
		})

		It("deletes a session by unique id", func() {
			sess, err := store.Generate("root", "127.0.0.1", "", session.Session, false)
			Expect(err).NotTo(HaveOccurred())

			req := httptest.NewRequest(http.MethodDelete, "/redfish/v1/SessionService/Sessions/"+sess.UniqueId, nil)
			req = req.WithContext(router.ContextWithSession(req.Context(), sess))
			rec := httptest.NewRecorder()
			svc.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusNoContent))
			_, ok := store.GetByUid(sess.UniqueId)
			Expect(ok).To(BeFalse())
		})

		It("forbids a configure-self-only caller from deleting another session", func() {
			target, err := store.Generate("root", "127.0.0.1", "", session.Session, false)
			Expect(err).NotTo(HaveOccurred())
			caller, err := store.Generate("expired", "127.0.0.1", "", session.Session, true)
			Expect(err).NotTo(HaveOccurred())

			req := httptest.NewRequest(http.MethodDelete, "/redfish/v1/SessionService/Sessions/"+target.UniqueId, nil)
			req = req.WithContext(router.ContextWithSession(req.Context(), caller))
			rec := httptest.NewRecorder()
			svc.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusForbidden))
		})
	})

	Describe("service documents", func() {
		It("serves the version document", func() {
			req := httptest.NewRequest(http.MethodGet, "/redfish", nil)
			rec := httptest.NewRecorder()
			svc.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring(`"/redfish/v1/"`))
		})

		It("serves the service root", func() {
			req := httptest.NewRequest(http.MethodGet, "/redfish/v1", nil)
			rec := httptest.NewRecorder()
			svc.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring("RootService"))
		})
	})

	Describe("upgrade registry", func() {
		It("returns registered websocket handlers by path", func() {
			h := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
			svc.RegisterUpgrade("/console0", h)

			got, ok := svc.Upgrade("/console0")
			Expect(ok).To(BeTrue())
			Expect(got).NotTo(BeNil())

			_, ok = svc.Upgrade("/console1")
			Expect(ok).To(BeFalse())
		})
	})
})
