package session

import "github.com/openbmc-project/bmcweb-core/errors"

const (
	// ErrorCSPRNGFailure signals a token-sampling failure; callers must
	// treat this as InternalError (HTTP 500) per the error taxonomy.
	ErrorCSPRNGFailure errors.CodeError = iota + errors.MinPkgSession
)

func init() {
	errors.RegisterIdFctMessage(ErrorCSPRNGFailure, getMessage)
}

func getMessage(code errors.CodeError) string {
	switch code {
	case ErrorCSPRNGFailure:
		return "session: csprng token generation failed"
	}
	return ""
}
