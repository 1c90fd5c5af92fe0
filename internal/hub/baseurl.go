package hub

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultBaseURL is the safe fallback when the configured hub URL fails
// validation.
const DefaultBaseURL = "http://localhost:3000"

// allowedHosts is the loopback allow-list for the hub base URL. The hub
// URL comes from configuration, so it must never be usable to steer the
// router at arbitrary network targets.
var allowedHosts = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"::1":       true,
}

// ValidateBaseURL checks that raw is an http or https URL whose host is
// on the loopback allow-list, and returns it normalized without a
// trailing slash.
func ValidateBaseURL(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("empty hub URL")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid hub URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("hub URL scheme %q not allowed", u.Scheme)
	}
	if u.User != nil {
		return "", fmt.Errorf("hub URL must not carry credentials")
	}

	host := u.Hostname()
	if !allowedHosts[host] {
		return "", fmt.Errorf("hub URL host %q not on the loopback allow-list", host)
	}

	return strings.TrimSuffix(u.String(), "/"), nil
}

// ResolveBaseURL validates raw and falls back to DefaultBaseURL when the
// value is missing or rejected, logging why.
func ResolveBaseURL(raw string, logger zerolog.Logger) string {
	if raw == "" {
		return DefaultBaseURL
	}
	validated, err := ValidateBaseURL(raw)
	if err != nil {
		logger.Warn().Err(err).Str("hub_url", raw).Msg("rejecting configured hub URL, using default")
		return DefaultBaseURL
	}
	return validated
}
