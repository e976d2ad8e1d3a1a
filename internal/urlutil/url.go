// Package urlutil contains the URL normalization and classification helpers
// shared by the parser and the crawl orchestrator.
package urlutil

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// nonDocumentExtensions lists file extensions that never yield crawlable
// markup. Links ending in one of these are discarded before fetching.
var nonDocumentExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".svg": {}, ".webp": {},
	".ico": {}, ".bmp": {}, ".tiff": {},
	".css": {}, ".js": {}, ".json": {}, ".xml": {}, ".rss": {},
	".pdf": {}, ".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {},
	".ppt": {}, ".pptx": {}, ".odt": {}, ".csv": {},
	".zip": {}, ".rar": {}, ".7z": {}, ".gz": {}, ".tar": {}, ".bz2": {},
	".mp3": {}, ".mp4": {}, ".avi": {}, ".mov": {}, ".wmv": {}, ".mkv": {},
	".wav": {}, ".flac": {}, ".ogg": {},
	".exe": {}, ".dmg": {}, ".apk": {}, ".msi": {}, ".deb": {}, ".rpm": {},
	".woff": {}, ".woff2": {}, ".ttf": {}, ".eot": {}, ".otf": {},
}

// Normalize standardizes a raw website URL into an absolute https URL.
// Bare relative paths (no host) are rejected; fragments are stripped.
func Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", raw, err)
	}
	if u.Scheme == "" {
		// Re-parse with a scheme so "example.gr/path" splits host and path.
		u, err = url.Parse("https://" + raw)
		if err != nil {
			return "", fmt.Errorf("parse url %q: %w", raw, err)
		}
	}
	switch u.Scheme {
	case "https":
	case "http":
		u.Scheme = "https"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url %q has no host", raw)
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}

// Resolve resolves a (possibly relative) href against a base URL.
// It returns false on malformed input rather than an error: broken hrefs
// inside a page are expected and simply skipped.
func Resolve(base *url.URL, href string) (*url.URL, bool) {
	href = strings.TrimSpace(href)
	if base == nil || href == "" {
		return nil, false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return nil, false
	}
	resolved := base.ResolveReference(ref)
	if resolved.Host == "" {
		return nil, false
	}
	return resolved, true
}

// SameRegistrableDomain reports whether two hostnames belong to the same
// site. A leading "www." label is ignored on both sides and subdomains
// count as a match (shop.example.gr belongs to example.gr).
func SameRegistrableDomain(a, b string) bool {
	a = stripWWW(a)
	b = stripWWW(b)
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	return strings.HasSuffix(a, "."+b) || strings.HasSuffix(b, "."+a)
}

// IsCrawlable reports whether a URL is worth fetching at all: HTTP(S)
// scheme and not an obvious non-document resource.
func IsCrawlable(u *url.URL) bool {
	if u == nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if u.Host == "" {
		return false
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if _, blocked := nonDocumentExtensions[ext]; blocked {
		return false
	}
	return true
}

// Canonicalize produces the dedup key used by the visited set: lowercase
// host, no query, no fragment, no trailing slash (except the bare root).
// Canonicalize is idempotent.
func Canonicalize(u *url.URL) string {
	if u == nil {
		return ""
	}
	c := *u
	c.Host = strings.ToLower(c.Host)
	c.RawQuery = ""
	c.Fragment = ""
	c.User = nil
	if c.Path == "" {
		c.Path = "/"
	}
	if c.Path != "/" {
		c.Path = strings.TrimRight(c.Path, "/")
	}
	return c.String()
}

// CanonicalizeString is Canonicalize for a raw URL string; it returns the
// input unchanged when the string does not parse.
func CanonicalizeString(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return Canonicalize(u)
}

func stripWWW(host string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(host)), "www.")
}
