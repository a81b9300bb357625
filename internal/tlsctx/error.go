package tlsctx

import (
	stderrors "errors"

	"github.com/openbmc-project/bmcweb-core/errors"
)

var errNoCertificateBlock = stderrors.New("tlsctx: no CERTIFICATE block found in PEM data")

const (
	ErrorCertFileUnreadable errors.CodeError = iota + errors.MinPkgTLSCtx
	ErrorCertParseFailed
	ErrorCertVerifyFatal
	ErrorCertLoadFailed
	ErrorCertWriteFailed
	ErrorKeyGenFailed
	ErrorCertSignFailed
)

func init() {
	errors.RegisterIdFctMessage(ErrorCertFileUnreadable, getMessage)
}

func getMessage(code errors.CodeError) string {
	switch code {
	case ErrorCertFileUnreadable:
		return "tlsctx: certificate file unreadable"
	case ErrorCertParseFailed:
		return "tlsctx: certificate PEM could not be parsed"
	case ErrorCertVerifyFatal:
		return "tlsctx: certificate verification failed fatally"
	case ErrorCertLoadFailed:
		return "tlsctx: certificate pair could not be installed"
	case ErrorCertWriteFailed:
		return "tlsctx: could not write generated certificate to disk"
	case ErrorKeyGenFailed:
		return "tlsctx: key generation failed"
	case ErrorCertSignFailed:
		return "tlsctx: certificate signing failed"
	}
	return ""
}
