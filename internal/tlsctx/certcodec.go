package tlsctx

import (
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
)

// nsCommentOID is the Netscape Comment extension OID, used here to
// carry the generator marker that flags a certificate as one this
// service minted (as opposed to an operator-provided one).
var nsCommentOID = asn1.ObjectIdentifier{2, 16, 840, 1, 113730, 1, 13}

func sha256Sum(b []byte) [sha256.Size]byte {
	return sha256.Sum256(b)
}

func marshalNSComment(comment string) (pkix.Extension, error) {
	val, err := asn1.Marshal(comment)
	if err != nil {
		return pkix.Extension{}, ErrorCertSignFailed.Error(err)
	}
	return pkix.Extension{Id: nsCommentOID, Critical: false, Value: val}, nil
}

func parseNSCommentValue(der []byte) string {
	var s string
	if _, err := asn1.Unmarshal(der, &s); err != nil {
		return ""
	}
	return s
}

// parseLeafFromPEM extracts the first CERTIFICATE block from a PEM
// file that also contains the private key, matching the combined
// key+certificate layout the server keeps at the cert path.
func parseLeafFromPEM(data []byte) (*x509.Certificate, error) {
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			return nil, errNoCertificateBlock
		}
		if block.Type == "CERTIFICATE" {
			return x509.ParseCertificate(block.Bytes)
		}
	}
}

// pemEncodeKeyAndCert writes the EC private key block followed by the
// certificate block into one PEM file, the on-disk shape
// EnsureCertificate and loadCertificate both expect.
func pemEncodeKeyAndCert(keyDER, certDER []byte) []byte {
	var out []byte
	out = append(out, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})...)
	out = append(out, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})...)
	return out
}
