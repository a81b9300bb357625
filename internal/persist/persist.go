// Package persist serializes and restores SessionStore state to the
// single JSON document this core shares with the external persister:
// top-level members Configuration (AuthConfigMethods) and Subscriptions
// (opaque, owned by the event-service collaborator).
package persist

import (
	"encoding/json"

	"github.com/openbmc-project/bmcweb-core/internal/authconfig"
	"github.com/openbmc-project/bmcweb-core/internal/logger"
	"github.com/openbmc-project/bmcweb-core/internal/session"
)

// SessionRecord is the on-disk shape of one persisted UserSession.
type SessionRecord struct {
	UniqueId     string `json:"unique_id"`
	SessionToken string `json:"session_token"`
	CSRFToken    string `json:"csrf_token"`
	Username     string `json:"username"`
	ClientId     string `json:"client_id,omitempty"`
	ClientIp     string `json:"client_ip"`
}

// Document is the full persisted state.
type Document struct {
	Configuration authconfig.Methods `json:"Configuration"`
	Subscriptions json.RawMessage    `json:"Subscriptions,omitempty"`
	Sessions      []SessionRecord    `json:"Sessions"`
}

// wireDocument defers the Configuration member so Restore can decode
// it through the logging-aware path; the plain json.Unmarshaler
// dispatch would silently swallow the out-of-range-enum warning.
type wireDocument struct {
	Configuration json.RawMessage `json:"Configuration"`
	Subscriptions json.RawMessage `json:"Subscriptions,omitempty"`
	Sessions      []SessionRecord `json:"Sessions"`
}

// Serialize picks out every Session- or Cookie-typed live session and
// the current policy into a persistable Document. subscriptions is
// passed through opaque, unexamined.
func Serialize(sessions []*session.UserSession, cfg authconfig.Methods, subscriptions json.RawMessage) Document {
	doc := Document{Configuration: cfg, Subscriptions: subscriptions}
	for _, s := range sessions {
		if !s.SessionType.Persists() {
			continue
		}
		doc.Sessions = append(doc.Sessions, SessionRecord{
			UniqueId:     s.UniqueId,
			SessionToken: s.SessionToken,
			CSRFToken:    s.CSRFToken,
			Username:     s.Username,
			ClientId:     s.ClientId,
			ClientIp:     s.ClientIp,
		})
	}
	return doc
}

// Restore decodes a persisted Document back into loadable sessions and
// the policy. Every restored session has LastUpdated reset to now
// (idle timer starts fresh) and SessionType forced to session.Session,
// regardless of whether it was Session- or Cookie-typed when saved. A
// record missing any of uniqueId/username/sessionToken/csrfToken is
// dropped silently (logged at warn if log is non-nil).
func Restore(raw []byte, log logger.FuncLog) (Document, []*session.UserSession, error) {
	var w wireDocument
	if err := json.Unmarshal(raw, &w); err != nil {
		return Document{}, nil, err
	}

	doc := Document{Subscriptions: w.Subscriptions, Sessions: w.Sessions}
	if len(w.Configuration) > 0 {
		if err := doc.Configuration.UnmarshalJSONWithLog(w.Configuration, log); err != nil {
			return Document{}, nil, err
		}
	}

	return doc, RestoreSessions(doc, log), nil
}

// RestoreSessions applies the per-record restore contract to an
// already-decoded Document, whichever codec produced it.
func RestoreSessions(doc Document, log logger.FuncLog) []*session.UserSession {
	sessions := make([]*session.UserSession, 0, len(doc.Sessions))
	for _, r := range doc.Sessions {
		if r.UniqueId == "" || r.Username == "" || r.SessionToken == "" || r.CSRFToken == "" {
			if log != nil {
				log().Entry(logger.WarnLevel, "dropping persisted session missing required field").
					FieldAdd("username", r.Username).
					Log()
			}
			continue
		}
		sessions = append(sessions, session.Restore(session.UserSession{
			UniqueId:     r.UniqueId,
			SessionToken: r.SessionToken,
			CSRFToken:    r.CSRFToken,
			Username:     r.Username,
			ClientId:     r.ClientId,
			ClientIp:     r.ClientIp,
		}))
	}

	return sessions
}
