// Package tlsctx builds the server's TLS context once per process and
// on every reconfigure event, wrapping certificates.TLSConfig for the
// cipher/curve/version/ALPN/client-auth-mode plumbing and adding the
// certificate generate/validate/rotate lifecycle this gateway needs on
// top of it.
package tlsctx

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/openbmc-project/bmcweb-core/certificates"
	"github.com/openbmc-project/bmcweb-core/internal/authconfig"
)

// GeneratorMarker is stamped into every certificate this package mints,
// in the nsComment extension, so hostname rotation can recognize a
// self-generated certificate versus an operator-provided one.
const GeneratorMarker = "Generated from OpenBMC service"

// CertValidity is the lifetime of a generated certificate.
const CertValidity = 10 * 365 * 24 * time.Hour

// mozillaIntermediateCiphers is the Mozilla Intermediate v5.7 cipher
// list: the TLS 1.3 suites plus the ECDHE AEAD TLS 1.2 suites, in the
// fixed order the compatibility profile specifies.
var mozillaIntermediateCiphers = []certificates.Cipher{
	certificates.TLS_AES_128_GCM_SHA256,
	certificates.TLS_AES_256_GCM_SHA384,
	certificates.TLS_CHACHA20_POLY1305_SHA256,
	certificates.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	certificates.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	certificates.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	certificates.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	certificates.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
	certificates.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
}

// Context is a built TLS context: the wrapped certificates.TLSConfig
// plus the hostname it was built for, used for hostname-rotation
// comparisons on the next reload.
type Context struct {
	cfg      certificates.TLSConfig
	hostname string
}

// Options configures Build.
type Options struct {
	// CertPath is the combined key+certificate PEM file.
	CertPath string
	// Hostname is the configured CN a generated (or rotated)
	// certificate must carry.
	Hostname string
	// HasWebUI disables client-cert solicitation entirely so a
	// browser is never prompted for mTLS unless the admin opted into
	// strict mode.
	HasWebUI bool
}

// Build loads CertPath, validating and regenerating/rotating it as
// needed (see EnsureCertificate), then constructs the certificates.TLSConfig
// with TLS 1.2+, the Mozilla Intermediate cipher list, h2/http1.1 ALPN,
// and a client-auth mode derived from cfg.TLSStrict and opts.HasWebUI.
func Build(opts Options, cfg authconfig.Methods) (*Context, error) {
	if err := EnsureCertificate(opts.CertPath, opts.Hostname); err != nil {
		return nil, err
	}

	tc := certificates.New()
	tc.SetVersionMin(certificates.VersionTLS12)
	tc.SetVersionMax(certificates.VersionTLS13)
	tc.SetCipherList(mozillaIntermediateCiphers)
	tc.SetCurveList([]certificates.Curve{certificates.X25519, certificates.P256, certificates.P384})
	tc.SetClientAuth(clientAuthMode(cfg, opts.HasWebUI))

	if err := tc.AddCertificatePairFile(opts.CertPath, opts.CertPath); err != nil {
		return nil, ErrorCertLoadFailed.Error(err)
	}

	return &Context{cfg: tc, hostname: opts.Hostname}, nil
}

// clientAuthMode implements the client-cert solicitation policy: strict
// requires and fails on a missing cert; otherwise a web UI suppresses
// the client-cert prompt; otherwise request-but-don't-require enables
// optional mTLS login.
func clientAuthMode(cfg authconfig.Methods, hasWebUI bool) certificates.ClientAuth {
	switch {
	case cfg.TLSStrict:
		return certificates.RequireAndVerifyClientCert
	case hasWebUI:
		return certificates.NoClientCert
	default:
		return certificates.RequestClientCert
	}
}

// TLSConfig returns a *tls.Config with h2 advertised via ALPN and the
// VerifyPeerCertificate callback installed by WithVerifier.
func (c *Context) TLSConfig(serverName string) *tls.Config {
	t := c.cfg.TlsConfig(serverName)
	t.NextProtos = []string{"h2", "http/1.1"}
	return t
}

// Hostname returns the CN this context's certificate was built for.
func (c *Context) Hostname() string {
	return c.hostname
}

// EnsureCertificate loads path, validating the stored certificate; if
// unreadable/unparsable it is (re)generated for hostname. If it loads
// but its CN mismatches hostname AND it is self-signed AND it carries
// GeneratorMarker, it is rotated in place (write-temp, atomic rename).
// Operator-provided certificates with a stale CN are deliberately left
// untouched — see DESIGN.md Open Question 3.
func EnsureCertificate(path, hostname string) error {
	cert, err := loadCertificate(path)
	if err != nil {
		return generateAndInstall(path, hostname)
	}

	if cert.Subject.CommonName != hostname && isSelfSignedGenerated(cert) {
		return generateAndInstall(path, hostname)
	}
	return nil
}

func loadCertificate(path string) (*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrorCertFileUnreadable.Error(err)
	}

	cert, err := parseLeafFromPEM(data)
	if err != nil {
		return nil, ErrorCertParseFailed.Error(err)
	}

	if err := verifySelfSignedTolerant(cert); err != nil {
		return nil, ErrorCertVerifyFatal.Error(err)
	}

	return cert, nil
}

// verifySelfSignedTolerant validates cert against the system trust
// store. A depth-zero self-signed leaf always fails that check with
// x509.UnknownAuthorityError (or, on some platforms, a
// CertificateInvalidError{Reason: NotAuthorizedToSign}) — both are
// ignored here; any other verification failure is fatal for the file.
func verifySelfSignedTolerant(cert *x509.Certificate) error {
	_, err := cert.Verify(x509.VerifyOptions{KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageAny}})
	if err == nil {
		return nil
	}
	if _, ok := err.(x509.UnknownAuthorityError); ok {
		return nil
	}
	if invalid, ok := err.(x509.CertificateInvalidError); ok && invalid.Reason == x509.NotAuthorizedToSign {
		return nil
	}
	return err
}

// isSelfSigned reports whether cert validly signs itself, i.e. it
// verifies against a pool containing only itself as a root.
func isSelfSigned(cert *x509.Certificate) bool {
	roots := x509.NewCertPool()
	roots.AddCert(cert)
	_, err := cert.Verify(x509.VerifyOptions{Roots: roots, KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageAny}})
	return err == nil
}

// isSelfSignedGenerated reports whether cert is self-signed and
// carries this package's generator nsComment marker, the condition
// hostname rotation requires.
func isSelfSignedGenerated(cert *x509.Certificate) bool {
	return isSelfSigned(cert) && hasGeneratorMarker(cert)
}

func generateAndInstall(path, hostname string) error {
	pemBytes, err := generateCertificatePEM(hostname)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, pemBytes, 0600); err != nil {
		return ErrorCertWriteFailed.Error(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return ErrorCertWriteFailed.Error(err)
	}
	return nil
}

// generateCertificatePEM mints an EC P-384 self-signed certificate:
// CN = hostname, serial from a 31-bit CSPRNG, 10 year validity, the
// fixed extension set, signed with SHA-256, plus the generator
// nsComment marker used by hostname rotation.
func generateCertificatePEM(hostname string) ([]byte, error) {
	key, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		return nil, ErrorKeyGenFailed.Error(err)
	}

	serialLimit := new(big.Int).Lsh(big.NewInt(1), 31)
	serial, err := rand.Int(rand.Reader, serialLimit)
	if err != nil {
		return nil, ErrorKeyGenFailed.Error(err)
	}

	now := time.Now()
	skid := subjectKeyID(&key.PublicKey)
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: hostname},
		NotBefore:    now,
		NotAfter:     now.Add(CertValidity),

		BasicConstraintsValid: true,
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:              []string{hostname},
		SubjectKeyId:          skid,
		AuthorityKeyId:        skid,
	}

	nsComment, err := marshalNSComment(GeneratorMarker)
	if err != nil {
		return nil, err
	}
	template.ExtraExtensions = append(template.ExtraExtensions, nsComment)

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, ErrorCertSignFailed.Error(err)
	}

	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, ErrorKeyGenFailed.Error(err)
	}

	return pemEncodeKeyAndCert(keyDER, der), nil
}

func subjectKeyID(pub *ecdsa.PublicKey) []byte {
	// hash of the public key, matching subjectKeyIdentifier=hash.
	sum := sha256Sum(elliptic.Marshal(pub.Curve, pub.X, pub.Y))
	return sum[:20]
}

func hasGeneratorMarker(cert *x509.Certificate) bool {
	for _, ext := range cert.Extensions {
		if ext.Id.Equal(nsCommentOID) {
			return parseNSCommentValue(ext.Value) == GeneratorMarker
		}
	}
	return false
}

func (c *Context) String() string {
	return fmt.Sprintf("tlsctx{hostname=%s}", c.hostname)
}
