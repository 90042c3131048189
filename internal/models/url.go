package models

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// NormalizeURL lowercases the host, strips the fragment, and returns the
// canonical form used as a cache/fingerprint key.
func NormalizeURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	u.Scheme = strings.ToLower(u.Scheme)
	return u.String(), nil
}

// RegistrableDomain returns the eTLD+1 portion of a host (the session scope).
// Falls back to the raw host if the public suffix list can't resolve it
// (e.g. bare IPs or localhost).
func RegistrableDomain(host string) string {
	host = strings.ToLower(host)
	if h, _, err := splitPort(host); err == nil {
		host = h
	}
	dom, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return dom
}

func splitPort(hostport string) (string, string, error) {
	if i := strings.LastIndex(hostport, ":"); i != -1 && !strings.Contains(hostport, "]") {
		return hostport[:i], hostport[i+1:], nil
	}
	return hostport, "", nil
}

// Fingerprint returns the normalized URL string used as a cache/dedup key.
// It is a thin, named wrapper over NormalizeURL so call sites read as
// "compute the fingerprint" rather than re-deriving the normalization rule.
func Fingerprint(raw string) string {
	n, err := NormalizeURL(raw)
	if err != nil {
		return raw
	}
	return n
}
