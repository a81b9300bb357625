package certificates

import "github.com/openbmc-project/bmcweb-core/errors"

const (
	ErrorCertificatePairLoad errors.CodeError = iota + errors.MinPkgCertificates
)

func init() {
	errors.RegisterIdFctMessage(ErrorCertificatePairLoad, getMessage)
}

func getMessage(code errors.CodeError) string {
	switch code {
	case ErrorCertificatePairLoad:
		return "certificates: loading key/certificate pair failed"
	}
	return ""
}
