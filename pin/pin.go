// Package pin implements certificate pinning per spec.md §6: each pin is
// sha256/<base64(SHA-256(subject-public-key or DER-encoded certificate))>,
// checked against the server's presented chain during the TLS handshake.
package pin

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/fluxhttp/flux/internal/fluxvalidate"
)

// Config holds the pin set for one host's TLS verification.
type Config struct {
	Pins []string `validate:"required,min=1,dive,required"`
}

// New validates pins and returns a Config, failing fast on an empty pin set
// or an empty pin rather than silently accepting a pin set that can never
// match anything. The sha256/<base64> form of each pin is not checked.
func New(pins []string) (Config, error) {
	c := Config{Pins: pins}
	if err := fluxvalidate.Struct(c); err != nil {
		return Config{}, err
	}
	return c, nil
}

// ErrNoMatch is returned (wrapped) when no presented certificate matches any
// configured pin.
type ErrNoMatch struct{}

func (ErrNoMatch) Error() string { return "flux/pin: no presented certificate matched a configured pin" }

// Fingerprint computes the spec.md §6 wire format for the subject public key
// of cert: "sha256/<base64(SHA-256(subject-public-key))>".
func Fingerprint(cert *x509.Certificate) string {
	sum := sha256.Sum256(cert.RawSubjectPublicKeyInfo)
	return "sha256/" + base64.StdEncoding.EncodeToString(sum[:])
}

// FingerprintDER computes the fallback wire format over the whole
// DER-encoded certificate, for servers/tooling that pin the certificate
// itself rather than its public key.
func FingerprintDER(cert *x509.Certificate) string {
	sum := sha256.Sum256(cert.Raw)
	return "sha256/" + base64.StdEncoding.EncodeToString(sum[:])
}

func (c Config) pinSet() map[string]bool {
	set := make(map[string]bool, len(c.Pins))
	for _, p := range c.Pins {
		set[strings.TrimSpace(p)] = true
	}
	return set
}

// VerifyPeerCertificate matches tls.Config.VerifyPeerCertificate: it rejects
// the handshake unless at least one presented certificate's public-key or
// whole-certificate fingerprint matches a configured pin.
func (c Config) VerifyPeerCertificate(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	pins := c.pinSet()
	for _, raw := range rawCerts {
		cert, err := x509.ParseCertificate(raw)
		if err != nil {
			continue
		}
		if pins[Fingerprint(cert)] || pins[FingerprintDER(cert)] {
			return nil
		}
	}
	return fmt.Errorf("flux/pin: %w", ErrNoMatch{})
}
