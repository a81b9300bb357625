package authpipeline

// Result mirrors the subset of PAM return codes this pipeline branches
// on. The concrete PAM binding (the host's pluggable authentication
// modules) is an external collaborator — see spec's Non-goals — so this
// package only fixes the interface it needs from it.
type Result int

const (
	// Failure covers every PAM outcome other than success or an
	// expired password, including a lookup/transport error.
	Failure Result = iota
	// Success is PAM_SUCCESS.
	Success
	// NewAuthTokReqd is PAM_NEW_AUTHTOK_REQD: credentials are valid but
	// the password must be changed before anything else is permitted.
	NewAuthTokReqd
)

// Authenticator is the external PAM collaborator Basic auth calls out
// to. A production binding wraps the host's libpam; tests supply a
// stub.
type Authenticator interface {
	Authenticate(username, password string) (Result, error)
}
