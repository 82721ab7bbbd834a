// Package enrichment talks to the remote services that fill in draft fields:
// PAN verification and postcode lookup.
package enrichment

import (
	"errors"
	"net/url"
	"time"
)

const (
	// DefaultPANVerifyURL is the PAN verification endpoint
	DefaultPANVerifyURL = "https://lab.pixel6.co/api/verify-pan.php"
	// DefaultPostcodeURL is the postcode details endpoint
	DefaultPostcodeURL = "https://lab.pixel6.co/api/get-postcode-details.php"
)

// maxResponseSize caps how much of a response body is read (1MB)
const maxResponseSize = 1 << 20

// Errors for enrichment configuration
var (
	ErrConfigMissingPANURL      = errors.New("enrichment: pan verify url is required")
	ErrConfigMissingPostcodeURL = errors.New("enrichment: postcode url is required")
	ErrConfigInvalidURL         = errors.New("enrichment: url must be absolute http(s)")
	ErrConfigNegativeTimeout    = errors.New("enrichment: timeout cannot be negative")
)

// Config holds endpoints and transport settings for both clients
type Config struct {
	PANVerifyURL string
	PostcodeURL  string
	// Timeout bounds each request. Zero leaves the transport default.
	Timeout time.Duration
}

// DefaultConfig returns the production endpoints with no request timeout
func DefaultConfig() Config {
	return Config{
		PANVerifyURL: DefaultPANVerifyURL,
		PostcodeURL:  DefaultPostcodeURL,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.PANVerifyURL == "" {
		return ErrConfigMissingPANURL
	}
	if c.PostcodeURL == "" {
		return ErrConfigMissingPostcodeURL
	}
	for _, raw := range []string{c.PANVerifyURL, c.PostcodeURL} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return ErrConfigInvalidURL
		}
	}
	if c.Timeout < 0 {
		return ErrConfigNegativeTimeout
	}
	return nil
}
