// Package certificates assembles a *tls.Config from typed pieces: the
// protocol version window, the cipher and curve preference lists, the
// client-authentication mode, and the server certificate pairs. It
// holds policy only; certificate generation and rotation live with the
// gateway's TLS context.
package certificates

import (
	"crypto/tls"
	"sync"
)

// TLSConfig accumulates TLS policy and renders it as a *tls.Config.
// All methods are safe for concurrent use; TlsConfig snapshots the
// current state.
type TLSConfig interface {
	SetVersionMin(v Version)
	SetVersionMax(v Version)
	SetCipherList(c []Cipher)
	SetCurveList(c []Curve)
	SetClientAuth(a ClientAuth)

	// AddCertificatePairFile loads a key/certificate pair; both
	// arguments may name the same combined PEM file.
	AddCertificatePairFile(keyFile, crtFile string) error

	// LenCertificatePair reports how many pairs are installed.
	LenCertificatePair() int

	// TlsConfig renders the accumulated policy. serverName may be
	// empty.
	TlsConfig(serverName string) *tls.Config
}

// New returns an empty TLSConfig.
func New() TLSConfig {
	return &config{}
}

type config struct {
	mu         sync.RWMutex
	versionMin Version
	versionMax Version
	ciphers    []Cipher
	curves     []Curve
	clientAuth ClientAuth
	pairs      []tls.Certificate
}

func (c *config) SetVersionMin(v Version) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.versionMin = v
}

func (c *config) SetVersionMax(v Version) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.versionMax = v
}

func (c *config) SetCipherList(l []Cipher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ciphers = append([]Cipher{}, l...)
}

func (c *config) SetCurveList(l []Curve) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.curves = append([]Curve{}, l...)
}

func (c *config) SetClientAuth(a ClientAuth) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clientAuth = a
}

func (c *config) AddCertificatePairFile(keyFile, crtFile string) error {
	pair, err := tls.LoadX509KeyPair(crtFile, keyFile)
	if err != nil {
		return ErrorCertificatePairLoad.Error(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pairs = append(c.pairs, pair)
	return nil
}

func (c *config) LenCertificatePair() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pairs)
}

func (c *config) TlsConfig(serverName string) *tls.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := &tls.Config{
		ServerName: serverName,
		MinVersion: c.versionMin.Code(),
		MaxVersion: c.versionMax.Code(),
		ClientAuth: c.clientAuth.TLS(),
	}

	for _, ci := range c.ciphers {
		out.CipherSuites = append(out.CipherSuites, ci.Code())
	}
	for _, cu := range c.curves {
		out.CurvePreferences = append(out.CurvePreferences, cu.TLS())
	}
	out.Certificates = append(out.Certificates, c.pairs...)

	return out
}
