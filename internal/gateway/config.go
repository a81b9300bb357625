package gateway

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	// MaxHeaderBytes bounds the request header block.
	MaxHeaderBytes = 8192

	// MaxBodyBytes is the hard request-body cap.
	MaxBodyBytes = 1 << 20

	// LoggedOutBodyBytes caps the body of an unauthenticated request,
	// enforced against Content-Length before the body is read. A
	// chunked upload with no Content-Length is only bounded by
	// MaxBodyBytes.
	LoggedOutBodyBytes = 4096

	// MaxConcurrentStreams is advertised on every HTTP/2 session.
	MaxConcurrentStreams = 10

	// loggedInIterations and loggedOutIterations express the 60s and
	// 15s connection deadlines as re-armed 5s watchdog steps.
	loggedInIterations  = 12
	loggedOutIterations = 3
)

// Config is the acceptor's server configuration, loaded from the
// persisted config file or flags by the CLI bootstrap.
type Config struct {
	// Name identifies the server in logs.
	Name string `mapstructure:"name" json:"name" yaml:"name" toml:"name"`

	// Listen is the bind address, host:port.
	Listen string `mapstructure:"listen" json:"listen" yaml:"listen" toml:"listen" validate:"required,hostname_port"`

	// Hostname is the CN a generated certificate must carry; it also
	// drives hostname rotation on boot.
	Hostname string `mapstructure:"hostname" json:"hostname" yaml:"hostname" toml:"hostname" validate:"required,hostname"`

	// CertPath is the combined key+certificate PEM file.
	CertPath string `mapstructure:"cert_path" json:"cert_path" yaml:"cert_path" toml:"cert_path" validate:"required"`

	// LegacyCertPath, if present on disk at startup, is removed.
	LegacyCertPath string `mapstructure:"legacy_cert_path" json:"legacy_cert_path" yaml:"legacy_cert_path" toml:"legacy_cert_path"`

	// HasWebUI changes the unauthorized responder (redirect to the UI
	// login page) and suppresses the client-cert prompt unless strict
	// mTLS is configured.
	HasWebUI bool `mapstructure:"has_web_ui" json:"has_web_ui" yaml:"has_web_ui" toml:"has_web_ui"`

	// StatePath is where the persisted session/config document lives.
	StatePath string `mapstructure:"state_path" json:"state_path" yaml:"state_path" toml:"state_path"`

	// SessionTimeout overrides the idle-eviction threshold when > 0.
	SessionTimeout time.Duration `mapstructure:"session_timeout" json:"session_timeout" yaml:"session_timeout" toml:"session_timeout"`

	IdleTimeout time.Duration `mapstructure:"idle_timeout" json:"idle_timeout" yaml:"idle_timeout" toml:"idle_timeout"`
}

// Validate checks the configuration, collecting every violation into a
// single error.
func (c Config) Validate() error {
	val := validator.New()
	err := val.Struct(c)
	if err == nil {
		return nil
	}

	if invalid, ok := err.(*validator.InvalidValidationError); ok {
		return ErrorConfigInvalid.Error(invalid)
	}

	out := ErrorConfigInvalid.Error(nil)
	for _, f := range err.(validator.ValidationErrors) {
		out.Add(fmt.Errorf("config field '%s' is not validated by constraint '%s'", f.Field(), f.ActualTag()))
	}
	return out
}
