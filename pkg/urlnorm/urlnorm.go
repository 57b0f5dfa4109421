// Package urlnorm provides URL normalization and domain-scoping helpers
// shared by the spider frontier, cache fingerprinting and link resolution.
package urlnorm

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Options controls how Canonicalize treats ambiguous cases.
type Options struct {
	StripTrailingSlash bool
}

// DefaultOptions matches the teacher pack's common convention: strip
// trailing slashes so "/a" and "/a/" dedupe to the same frontier entry.
func DefaultOptions() Options {
	return Options{StripTrailingSlash: true}
}

// Canonicalize lower-cases the scheme and host, strips the default port and
// fragment, and optionally strips a trailing slash from the path. Used both
// by the spider's seen-set and by cache fingerprinting (spec §3, §4.4).
func Canonicalize(raw string, opts Options) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(stripDefaultPort(u.Scheme, u.Host))
	u.Fragment = ""

	if opts.StripTrailingSlash && len(u.Path) > 1 && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}
	return u.String(), nil
}

func stripDefaultPort(scheme, host string) string {
	switch {
	case scheme == "http" && strings.HasSuffix(host, ":80"):
		return strings.TrimSuffix(host, ":80")
	case scheme == "https" && strings.HasSuffix(host, ":443"):
		return strings.TrimSuffix(host, ":443")
	}
	return host
}

// RegistrableDomain returns the eTLD+1 of u, used for same-domain scoping
// decisions in the spider scheduler (e.g. "blog.example.co.uk" -> "example.co.uk").
func RegistrableDomain(u *url.URL) string {
	domain, err := publicsuffix.EffectiveTLDPlusOne(u.Hostname())
	if err != nil {
		return u.Hostname()
	}
	return domain
}

// Resolve resolves a possibly-relative reference against a base URL,
// returning "" if either fails to parse.
func Resolve(base *url.URL, ref string) string {
	refURL, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ""
	}
	return base.ResolveReference(refURL).String()
}

// SameRegistrableDomain reports whether a and b share an eTLD+1.
func SameRegistrableDomain(a, b *url.URL) bool {
	return RegistrableDomain(a) == RegistrableDomain(b) && RegistrableDomain(a) != ""
}
