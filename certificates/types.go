package certificates

import "crypto/tls"

// Version is a TLS protocol version.
type Version uint16

const (
	VersionTLS12 = Version(tls.VersionTLS12)
	VersionTLS13 = Version(tls.VersionTLS13)
)

// Code returns the crypto/tls version constant.
func (v Version) Code() uint16 {
	return uint16(v)
}

func (v Version) String() string {
	switch v {
	case VersionTLS12:
		return "TLS 1.2"
	case VersionTLS13:
		return "TLS 1.3"
	}
	return "unknown"
}

// Cipher is a TLS cipher suite. TLS 1.3 suites are not configurable in
// crypto/tls; they are listed so a policy can state them, and Code
// still hands them through for the TLS 1.2 path to ignore.
type Cipher uint16

const (
	TLS_AES_128_GCM_SHA256                        = Cipher(tls.TLS_AES_128_GCM_SHA256)
	TLS_AES_256_GCM_SHA384                        = Cipher(tls.TLS_AES_256_GCM_SHA384)
	TLS_CHACHA20_POLY1305_SHA256                  = Cipher(tls.TLS_CHACHA20_POLY1305_SHA256)
	TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256       = Cipher(tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256)
	TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256         = Cipher(tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256)
	TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384       = Cipher(tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384)
	TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384         = Cipher(tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384)
	TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256 = Cipher(tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256)
	TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256   = Cipher(tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256)
)

// Code returns the crypto/tls suite constant.
func (c Cipher) Code() uint16 {
	return uint16(c)
}

func (c Cipher) String() string {
	return tls.CipherSuiteName(uint16(c))
}

// Curve is a TLS key-exchange curve.
type Curve uint16

const (
	X25519 = Curve(tls.X25519)
	P256   = Curve(tls.CurveP256)
	P384   = Curve(tls.CurveP384)
)

// TLS returns the crypto/tls curve identifier.
func (c Curve) TLS() tls.CurveID {
	return tls.CurveID(c)
}

func (c Curve) String() string {
	return c.TLS().String()
}

// ClientAuth is the server's client-certificate solicitation mode.
type ClientAuth int

const (
	// NoClientCert never requests a client certificate.
	NoClientCert = ClientAuth(tls.NoClientCert)
	// RequestClientCert requests but does not require one; this is the
	// mode optional mutual-TLS login runs under.
	RequestClientCert = ClientAuth(tls.RequestClientCert)
	// RequireAndVerifyClientCert fails the handshake without a valid
	// client certificate.
	RequireAndVerifyClientCert = ClientAuth(tls.RequireAndVerifyClientCert)
)

// TLS returns the crypto/tls client-auth mode.
func (a ClientAuth) TLS() tls.ClientAuthType {
	return tls.ClientAuthType(a)
}

func (a ClientAuth) String() string {
	return a.TLS().String()
}
