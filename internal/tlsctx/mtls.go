package tlsctx

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"regexp"
	"strings"

	"github.com/openbmc-project/bmcweb-core/internal/authconfig"
	"github.com/openbmc-project/bmcweb-core/internal/mtlsmode"
	"github.com/openbmc-project/bmcweb-core/internal/session"
)

// upnOID identifies the UPN otherName SAN entry inside a certificate's
// subjectAltName extension.
var upnOID = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 311, 20, 2, 3}

// metaUserPattern is the allowed <name> grammar in a "user:<name>[/<hostname>]" CN.
var metaUserPattern = regexp.MustCompile(`^[a-z0-9_.-]+$`)

// sessionSource supplies the live auth policy and mints MutualTLS
// sessions; *session.Store satisfies this.
type sessionSource interface {
	AuthConfig() authconfig.Methods
	Generate(username, clientIp, clientId string, sessionType session.Type, isConfigureSelfOnly bool) (*session.UserSession, error)
}

// VerifyCallback returns a tls.Config.VerifyPeerCertificate-shaped
// function implementing the client-certificate identity policy.
// clientIp is resolved per
// connection by the caller (VerifyPeerCertificate carries no transport
// address), so it is supplied as a closure parameter rather than parsed
// out of the chain. attach is invoked with the minted session exactly
// once, only on a successful identity extraction; the caller uses it to
// set sessionIsFromTransport on the connection.
func VerifyCallback(store sessionSource, hostname string, clientIp string, attach func(*session.UserSession)) func(rawCerts [][]byte, verifiedChains [][]*x509.Certificate) error {
	return func(rawCerts [][]byte, verifiedChains [][]*x509.Certificate) error {
		cfg := store.AuthConfig()
		if !cfg.TLS {
			return nil
		}

		preverifyOK := len(verifiedChains) > 0
		if !preverifyOK {
			return nil
		}

		if len(rawCerts) == 0 {
			return nil
		}
		leaf, err := x509.ParseCertificate(rawCerts[0])
		if err != nil {
			// any parse/OpenSSL-style error: accept, no identity.
			return nil
		}

		if leaf.KeyUsage&x509.KeyUsageDigitalSignature == 0 || leaf.KeyUsage&x509.KeyUsageKeyAgreement == 0 {
			return nil
		}
		if !hasExtKeyUsage(leaf, x509.ExtKeyUsageClientAuth) {
			return nil
		}

		username := extractIdentity(leaf, cfg.MTLSCommonNameParseMode, hostname)
		if username == "" {
			return nil
		}

		sess, err := store.Generate(username, clientIp, "", session.MutualTLS, false)
		if err != nil {
			return nil
		}
		attach(sess)
		return nil
	}
}

func hasExtKeyUsage(cert *x509.Certificate, want x509.ExtKeyUsage) bool {
	for _, eku := range cert.ExtKeyUsage {
		if eku == want {
			return true
		}
	}
	return false
}

// extractIdentity dispatches on mode, returning "" for
// any mode/subject combination that yields no identity.
func extractIdentity(cert *x509.Certificate, mode mtlsmode.Mode, hostname string) string {
	switch mode {
	case mtlsmode.CommonName:
		return cert.Subject.CommonName
	case mtlsmode.UserPrincipalName:
		return extractUPN(cert.Subject, cert, hostname)
	case mtlsmode.Meta:
		return extractMeta(cert.Subject.CommonName, hostname)
	default: // Whole, Invalid
		return ""
	}
}

// extractUPN reads the UPN otherName SAN entry. hostname is not
// required to match; the @-local-part hostname check is
// optional ("may be required"), and this deployment does not enable it.
func extractUPN(_ pkix.Name, cert *x509.Certificate, _ string) string {
	for _, raw := range subjectAltNameOtherNames(cert) {
		if raw.oid.Equal(upnOID) {
			return raw.value
		}
	}
	return ""
}

// extractMeta parses "user:<name>[/<hostname>]", rejecting any other
// entityType prefix or a <name> that fails metaUserPattern.
func extractMeta(cn string, _ string) string {
	const prefix = "user:"
	if !strings.HasPrefix(cn, prefix) {
		return ""
	}
	rest := cn[len(prefix):]
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		rest = rest[:idx]
	}
	if rest == "" || !metaUserPattern.MatchString(rest) {
		return ""
	}
	return rest
}

type otherNameValue struct {
	oid   asn1.ObjectIdentifier
	value string
}

// subjectAltNameOtherNames parses the raw subjectAltName extension for
// otherName entries (Go's x509 package does not expose these itself).
func subjectAltNameOtherNames(cert *x509.Certificate) []otherNameValue {
	var out []otherNameValue
	for _, ext := range cert.Extensions {
		if !ext.Id.Equal(asn1.ObjectIdentifier{2, 5, 29, 17}) {
			continue
		}
		var seq asn1.RawValue
		if _, err := asn1.Unmarshal(ext.Value, &seq); err != nil {
			continue
		}
		rest := seq.Bytes
		for len(rest) > 0 {
			var gn asn1.RawValue
			var err error
			rest, err = asn1.UnmarshalWithParams(rest, &gn, "")
			if err != nil {
				break
			}
			// otherName is context tag [0], constructed.
			if gn.Class == asn1.ClassContextSpecific && gn.Tag == 0 {
				var on struct {
					OID   asn1.ObjectIdentifier
					Value asn1.RawValue `asn1:"explicit,tag:0"`
				}
				if _, err := asn1.UnmarshalWithParams(gn.FullBytes, &on, "tag:0"); err == nil {
					out = append(out, otherNameValue{oid: on.OID, value: string(on.Value.Bytes)})
				}
			}
		}
	}
	return out
}
