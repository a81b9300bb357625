// Package redfish is the demo dispatcher behind the router facade: the
// Redfish service root, the session service (login/logout, token
// issue), and the websocket console endpoints, enough surface to
// exercise the gateway end to end. The production resource tree and
// its message registries are external collaborators.
package redfish

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openbmc-project/bmcweb-core/internal/authpipeline"
	"github.com/openbmc-project/bmcweb-core/internal/gateway"
	"github.com/openbmc-project/bmcweb-core/internal/logger"
	"github.com/openbmc-project/bmcweb-core/internal/router"
	"github.com/openbmc-project/bmcweb-core/internal/session"
)

// Service implements router.Dispatcher over a gin engine.
type Service struct {
	engine   *gin.Engine
	store    *session.Store
	pam      authpipeline.Authenticator
	webUI    bool
	upgrades map[string]http.Handler
	log      logger.FuncLog
}

// New builds the dispatcher. pam is the external Basic-auth
// collaborator used by the login endpoints.
func New(store *session.Store, pam authpipeline.Authenticator, webUI bool, log logger.FuncLog) *Service {
	gin.SetMode(gin.ReleaseMode)

	s := &Service{
		engine:   gin.New(),
		store:    store,
		pam:      pam,
		webUI:    webUI,
		upgrades: map[string]http.Handler{},
		log:      log,
	}
	s.routes()
	return s
}

func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

// HasWebUI reports whether a browser UI is installed alongside the API.
func (s *Service) HasWebUI() bool {
	return s.webUI
}

// Upgrade returns the websocket handler owning path, if any.
func (s *Service) Upgrade(path string) (http.Handler, bool) {
	h, ok := s.upgrades[path]
	return h, ok
}

// RegisterUpgrade binds a websocket endpoint (KVM, serial console) to
// path; the gateway hands the hijacked socket straight to h.
func (s *Service) RegisterUpgrade(path string, h http.Handler) {
	s.upgrades[path] = h
}

// Mount attaches an extra GET handler (the metrics scrape endpoint,
// static web assets) onto the dispatcher's engine.
func (s *Service) Mount(path string, h http.Handler) {
	s.engine.GET(path, gin.WrapH(h))
}

func (s *Service) routes() {
	s.engine.GET("/redfish", s.versions)
	s.engine.GET("/redfish/", s.versions)
	s.engine.GET("/redfish/v1", s.serviceRoot)
	s.engine.GET("/redfish/v1/", s.serviceRoot)
	s.engine.GET("/redfish/v1/odata", s.odata)
	s.engine.GET("/redfish/v1/odata/", s.odata)

	s.engine.GET("/redfish/v1/SessionService", s.sessionService)
	s.engine.GET("/redfish/v1/SessionService/Sessions", s.listSessions)
	s.engine.POST("/redfish/v1/SessionService/Sessions", s.createSession)
	s.engine.POST("/redfish/v1/SessionService/Sessions/", s.createSession)
	s.engine.GET("/redfish/v1/SessionService/Sessions/:id", s.getSession)
	s.engine.DELETE("/redfish/v1/SessionService/Sessions/:id", s.deleteSession)

	s.engine.POST("/login", s.login)
	s.engine.POST("/logout", s.logout)
}

func (s *Service) versions(c *gin.Context) {
	gateway.WriteJSON(c.Writer, c.Request, http.StatusOK, map[string]interface{}{
		"v1": "/redfish/v1/",
	})
}

func (s *Service) serviceRoot(c *gin.Context) {
	gateway.WriteJSON(c.Writer, c.Request, http.StatusOK, map[string]interface{}{
		"@odata.id":      "/redfish/v1",
		"@odata.type":    "#ServiceRoot.v1_11_0.ServiceRoot",
		"Id":             "RootService",
		"Name":           "Root Service",
		"RedfishVersion": "1.17.0",
		"Links": map[string]interface{}{
			"Sessions": map[string]interface{}{"@odata.id": "/redfish/v1/SessionService/Sessions"},
		},
		"SessionService": map[string]interface{}{"@odata.id": "/redfish/v1/SessionService"},
	})
}

func (s *Service) odata(c *gin.Context) {
	gateway.WriteJSON(c.Writer, c.Request, http.StatusOK, map[string]interface{}{
		"@odata.context": "/redfish/v1/$metadata",
		"value": []map[string]interface{}{
			{"name": "Service", "kind": "Singleton", "url": "/redfish/v1/"},
			{"name": "Sessions", "kind": "Singleton", "url": "/redfish/v1/SessionService/Sessions"},
		},
	})
}

func (s *Service) sessionService(c *gin.Context) {
	gateway.WriteJSON(c.Writer, c.Request, http.StatusOK, map[string]interface{}{
		"@odata.id":   "/redfish/v1/SessionService",
		"@odata.type": "#SessionService.v1_0_2.SessionService",
		"Id":          "SessionService",
		"Sessions":    map[string]interface{}{"@odata.id": "/redfish/v1/SessionService/Sessions"},
	})
}

func (s *Service) listSessions(c *gin.Context) {
	ids := s.store.GetAllUniqueIds()
	members := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		members = append(members, map[string]interface{}{
			"@odata.id": "/redfish/v1/SessionService/Sessions/" + id,
		})
	}
	gateway.WriteJSON(c.Writer, c.Request, http.StatusOK, map[string]interface{}{
		"@odata.id":           "/redfish/v1/SessionService/Sessions",
		"@odata.type":         "#SessionCollection.SessionCollection",
		"Members":             members,
		"Members@odata.count": len(members),
	})
}

func (s *Service) getSession(c *gin.Context) {
	sess, ok := s.store.GetByUid(c.Param("id"))
	if !ok {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	gateway.WriteJSON(c.Writer, c.Request, http.StatusOK, sessionResource(sess))
}

// deleteSession terminates a session by uniqueId. A caller may always
// delete its own session; deleting another user's requires not being
// limited to self-service.
func (s *Service) deleteSession(c *gin.Context) {
	target, ok := s.store.GetByUid(c.Param("id"))
	if !ok {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	caller := router.SessionFromContext(c.Request.Context())
	if caller != nil && caller.IsConfigureSelfOnly && caller.UniqueId != target.UniqueId {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	s.store.Remove(target)
	c.Status(http.StatusNoContent)
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// createSession is the Redfish-native login: a new token-typed session
// with the token returned in X-Auth-Token.
func (s *Service) createSession(c *gin.Context) {
	var body struct {
		Username string `json:"UserName"`
		Password string `json:"Password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	sess, ok := s.authenticate(c, body.Username, body.Password)
	if !ok {
		return
	}

	c.Header("X-Auth-Token", sess.SessionToken)
	c.Header("Location", "/redfish/v1/SessionService/Sessions/"+sess.UniqueId)
	gateway.WriteJSON(c.Writer, c.Request, http.StatusCreated, sessionResource(sess))
}

// login is the web UI's endpoint: cookies set, token echoed in the
// body.
func (s *Service) login(c *gin.Context) {
	var body credentials
	if err := c.ShouldBindJSON(&body); err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	sess, ok := s.authenticate(c, body.Username, body.Password)
	if !ok {
		return
	}

	setLoginCookies(c.Writer, sess)
	gateway.WriteJSON(c.Writer, c.Request, http.StatusOK, map[string]interface{}{
		"token": sess.SessionToken,
	})
}

// logout drops the caller's session and clears its cookies.
func (s *Service) logout(c *gin.Context) {
	sess := router.SessionFromContext(c.Request.Context())
	if sess != nil {
		s.store.Remove(sess)
	}
	clearLoginCookies(c.Writer)
	c.Status(http.StatusOK)
}

// authenticate validates credentials against PAM and mints a persisted
// session. It writes the failure response itself when ok is false.
func (s *Service) authenticate(c *gin.Context, username, password string) (*session.UserSession, bool) {
	if username == "" || password == "" {
		c.AbortWithStatus(http.StatusBadRequest)
		return nil, false
	}

	result, err := s.pam.Authenticate(username, password)
	if err != nil || result == authpipeline.Failure {
		c.AbortWithStatus(http.StatusUnauthorized)
		return nil, false
	}

	sess, err := s.store.Generate(username, c.ClientIP(), "", session.Session, result == authpipeline.NewAuthTokReqd)
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return nil, false
	}
	return sess, true
}

func sessionResource(sess *session.UserSession) map[string]interface{} {
	return map[string]interface{}{
		"@odata.id":             "/redfish/v1/SessionService/Sessions/" + sess.UniqueId,
		"@odata.type":           "#Session.v1_5_0.Session",
		"Id":                    sess.UniqueId,
		"Name":                  "User Session",
		"UserName":              sess.Username,
		"ClientOriginIPAddress": sess.ClientIp,
	}
}

func setLoginCookies(w http.ResponseWriter, sess *session.UserSession) {
	http.SetCookie(w, &http.Cookie{Name: "XSRF-TOKEN", Value: sess.CSRFToken, SameSite: http.SameSiteStrictMode, Secure: true})
	http.SetCookie(w, &http.Cookie{Name: "BMCWEB-SESSION", Value: sess.SessionToken, SameSite: http.SameSiteStrictMode, Secure: true, HttpOnly: true})
	http.SetCookie(w, &http.Cookie{Name: "SESSION", Value: sess.SessionToken, SameSite: http.SameSiteStrictMode, Secure: true, HttpOnly: true})
	http.SetCookie(w, &http.Cookie{Name: "IsAuthenticated", Value: "true", Secure: true})
}

var epoch = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

func clearLoginCookies(w http.ResponseWriter) {
	for _, name := range []string{"XSRF-TOKEN", "BMCWEB-SESSION", "SESSION", "IsAuthenticated"} {
		http.SetCookie(w, &http.Cookie{Name: name, Value: "", Expires: epoch, Secure: true})
	}
}
