// Package authconfig holds the per-method authentication policy that
// gates AuthPipeline and the mutual-TLS verify callback, persisted as
// JSON alongside session state.
package authconfig

import (
	"encoding/json"

	"github.com/openbmc-project/bmcweb-core/internal/logger"
	"github.com/openbmc-project/bmcweb-core/internal/mtlsmode"
)

// Methods is the set of enable flags and TLS-identity policy governing
// which auth methods AuthPipeline will try. The JSON field names match
// the persisted document this core reads and writes.
type Methods struct {
	XToken                  bool        `json:"XToken"`
	Cookie                  bool        `json:"Cookie"`
	SessionToken            bool        `json:"SessionToken"`
	BasicAuth               bool        `json:"BasicAuth"`
	TLS                     bool        `json:"TLS"`
	TLSStrict               bool        `json:"TLSStrict"`
	MTLSCommonNameParseMode mtlsmode.Mode `json:"MTLSCommonNameParseMode"`
}

// Default mirrors the factory-default policy: every method but strict
// mTLS enabled, CommonName-mode identity extraction.
func Default() Methods {
	return Methods{
		XToken:                  true,
		Cookie:                  true,
		SessionToken:            true,
		BasicAuth:               true,
		TLS:                     true,
		TLSStrict:               false,
		MTLSCommonNameParseMode: mtlsmode.CommonName,
	}
}

// wireShape mirrors Methods field-for-field but types the enum field as
// json.RawMessage so UnmarshalJSON can detect (and warn on) an
// out-of-range value before delegating to mtlsmode's tolerant decoder.
type wireShape struct {
	XToken                  bool            `json:"XToken"`
	Cookie                  bool            `json:"Cookie"`
	SessionToken            bool            `json:"SessionToken"`
	BasicAuth               bool            `json:"BasicAuth"`
	TLS                     bool            `json:"TLS"`
	TLSStrict               bool            `json:"TLSStrict"`
	MTLSCommonNameParseMode json.RawMessage `json:"MTLSCommonNameParseMode"`
}

// UnmarshalJSONWithLog decodes a persisted Methods document, leaving
// MTLSCommonNameParseMode untouched (and logging a warning via log) when
// the wire value is not one of {0,1,2,3,100}, matching the "out-of-range
// enums are ignored with a warning" persistence contract.
func (m *Methods) UnmarshalJSONWithLog(data []byte, log logger.FuncLog) error {
	var w wireShape
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	m.XToken = w.XToken
	m.Cookie = w.Cookie
	m.SessionToken = w.SessionToken
	m.BasicAuth = w.BasicAuth
	m.TLS = w.TLS
	m.TLSStrict = w.TLSStrict

	if len(w.MTLSCommonNameParseMode) == 0 {
		return nil
	}

	var mode mtlsmode.Mode
	if err := json.Unmarshal(w.MTLSCommonNameParseMode, &mode); err != nil {
		return err
	}
	if mode.Valid() {
		m.MTLSCommonNameParseMode = mode
	} else if log != nil {
		log().Entry(logger.WarnLevel, "ignoring out-of-range mTLS common-name parse mode").
			FieldAdd("raw", string(w.MTLSCommonNameParseMode)).
			Log()
	}
	return nil
}

// UnmarshalJSON satisfies json.Unmarshaler without logging — most call
// sites should prefer UnmarshalJSONWithLog; this exists so Methods
// remains a normal json-decodable value (e.g. for tests).
func (m *Methods) UnmarshalJSON(data []byte) error {
	return m.UnmarshalJSONWithLog(data, nil)
}
