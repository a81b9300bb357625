package gateway

import (
	stderrors "errors"

	"github.com/openbmc-project/bmcweb-core/errors"
)

var errNoTLSContext = stderrors.New("gateway: no TLS context built")

const (
	ErrorConfigInvalid errors.CodeError = iota + errors.MinPkgGateway
	ErrorTLSBuild
	ErrorHTTP2Configure
	ErrorListenFailed
	ErrorPortInUse
	ErrorDeadlineSaturated
	ErrorPersistWrite
)

func init() {
	errors.RegisterIdFctMessage(ErrorConfigInvalid, getMessage)
}

func getMessage(code errors.CodeError) string {
	switch code {
	case ErrorConfigInvalid:
		return "gateway: invalid server configuration"
	case ErrorTLSBuild:
		return "gateway: building TLS context failed"
	case ErrorHTTP2Configure:
		return "gateway: configuring HTTP/2 on the server failed"
	case ErrorListenFailed:
		return "gateway: listen failed"
	case ErrorPortInUse:
		return "gateway: bind address already in use"
	case ErrorDeadlineSaturated:
		return "gateway: deadline queue full, connection refused"
	case ErrorPersistWrite:
		return "gateway: persisting session state failed"
	}
	return ""
}
