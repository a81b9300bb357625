// Package mtlsmode is the sum type selecting how a mutual-TLS client
// certificate's subject is turned into a username, modeled as a
// per-variant parse strategy rather than runtime polymorphism.
package mtlsmode

import (
	"encoding/json"
	"fmt"
)

// Mode selects the client-certificate identity extraction strategy.
type Mode int

const (
	// Invalid means no identity is extracted from the certificate.
	Invalid Mode = 0
	// Whole also extracts no identity (reserved source-compat value).
	Whole Mode = 1
	// CommonName extracts the subject CN verbatim.
	CommonName Mode = 2
	// UserPrincipalName extracts the UPN otherName SAN entry.
	UserPrincipalName Mode = 3
	// Meta parses the CN as "user:<name>[/<hostname>]".
	Meta Mode = 100
)

// knownModes enumerates the only values fromJson/UnmarshalJSON accept.
var knownModes = map[Mode]bool{
	Invalid:           true,
	Whole:             true,
	CommonName:        true,
	UserPrincipalName: true,
	Meta:              true,
}

// Valid reports whether m is one of the known enum values.
func (m Mode) Valid() bool {
	return knownModes[m]
}

func (m Mode) String() string {
	switch m {
	case Invalid:
		return "Invalid"
	case Whole:
		return "Whole"
	case CommonName:
		return "CommonName"
	case UserPrincipalName:
		return "UserPrincipalName"
	case Meta:
		return "Meta"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// MarshalJSON encodes the mode as its numeric enum value.
func (m Mode) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(m))
}

// UnmarshalJSON decodes a numeric enum value. Unlike a strict decoder,
// an out-of-range value does NOT produce an error: it is reported via
// the returned warning so the caller can log it, and the receiver is
// left at its current (zero-value on first decode) setting — matching
// the persisted-config tolerance AuthConfigMethods requires.
func (m *Mode) UnmarshalJSON(data []byte) error {
	var raw int
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	candidate := Mode(raw)
	if !candidate.Valid() {
		return nil
	}
	*m = candidate
	return nil
}
