// Package httpc builds resty clients with explicit TLS options.
package httpc

import (
	"crypto/tls"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/loykin/proxyboot/internal/util"
)

// Options are the client settings exposed in configuration.
type Options struct {
	Insecure      bool
	MinTLSVersion string
	MaxTLSVersion string
	Timeout       time.Duration
}

// Httpc creates clients sharing one TLS configuration.
type Httpc struct {
	TLSConfig *tls.Config
	Timeout   time.Duration
}

// FromOptions translates Options. Unknown TLS versions are left unset.
func FromOptions(o Options) *Httpc {
	h := &Httpc{Timeout: o.Timeout}
	minV := parseTLSVersion(o.MinTLSVersion)
	maxV := parseTLSVersion(o.MaxTLSVersion)
	if o.Insecure || minV != 0 || maxV != 0 {
		// #nosec G402 -- InsecureSkipVerify only when explicitly configured
		h.TLSConfig = &tls.Config{MinVersion: minV, MaxVersion: maxV, InsecureSkipVerify: o.Insecure}
	}
	return h
}

// New returns a resty client. MinVersion defaults to TLS 1.2 when a TLS config
// is present without one.
func (h *Httpc) New() *resty.Client {
	c := resty.New()
	if h == nil {
		return c
	}
	if h.Timeout > 0 {
		c.SetTimeout(h.Timeout)
	}
	if h.TLSConfig == nil {
		return c
	}
	cfg := h.TLSConfig.Clone()
	if cfg.MinVersion == 0 {
		cfg.MinVersion = tls.VersionTLS12
	}
	c.SetTLSClientConfig(cfg)
	return c
}

// parseTLSVersion accepts "1.2", "12", "tls1.2" and "tls12" forms.
func parseTLSVersion(version string) uint16 {
	switch util.TrimAndLower(version) {
	case "1.0", "10", "tls1.0", "tls10":
		return tls.VersionTLS10
	case "1.1", "11", "tls1.1", "tls11":
		return tls.VersionTLS11
	case "1.2", "12", "tls1.2", "tls12":
		return tls.VersionTLS12
	case "1.3", "13", "tls1.3", "tls13":
		return tls.VersionTLS13
	default:
		return 0
	}
}
