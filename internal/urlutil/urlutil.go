package urlutil

import (
	"net/url"
	"path"
	"strings"
)

// skipExtensions is the denylist of file extensions that are never
// crawled. These point at documents, archives, media, executables, and
// images rather than traversable HTML pages.
var skipExtensions = map[string]bool{
	// Documents
	".pdf": true, ".doc": true, ".docx": true, ".xls": true,
	".xlsx": true, ".ppt": true, ".pptx": true,

	// Archives
	".zip": true, ".rar": true, ".tar": true, ".gz": true, ".7z": true,

	// Media
	".mp3": true, ".mp4": true, ".avi": true, ".mov": true,
	".wmv": true, ".flv": true,

	// Images
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".svg": true, ".ico": true,

	// Executables and packages
	".exe": true, ".dmg": true, ".pkg": true, ".deb": true, ".rpm": true,
}

// Normalize returns the canonical string form of a URL, used for
// identity comparison in the seen set.
//
// Canonicalization rules:
//   - scheme and host are lower-cased
//   - default ports are stripped (80 for http, 443 for https)
//   - a trailing slash is stripped from the path; an empty path becomes "/"
//   - the fragment is dropped
//   - query string and path case below the host are preserved
//
// Normalize never fails: malformed input is returned unchanged rather
// than propagating a parse error to the caller.
func Normalize(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	// Strip default ports so http://example.com:80/ and
	// http://example.com/ compare equal.
	switch {
	case u.Scheme == "http" && u.Port() == "80":
		u.Host = u.Hostname()
	case u.Scheme == "https" && u.Port() == "443":
		u.Host = u.Hostname()
	}

	u.Path = strings.TrimRight(u.Path, "/")
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}

// IsValid reports whether a URL has both a scheme and a host component.
// Discovered links failing this check never reach the frontier.
func IsValid(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

// IsSameDomain reports whether a URL belongs to the crawl's base domain.
// A leading "www." is stripped from both sides before comparison, and a
// URL is in-domain when its host equals the base domain or is a
// subdomain of it. The comparison is case-insensitive.
func IsSameDomain(rawURL, baseDomain string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	host := strings.ToLower(u.Hostname())
	base := strings.ToLower(baseDomain)

	host = strings.TrimPrefix(host, "www.")
	base = strings.TrimPrefix(base, "www.")

	if host == "" || base == "" {
		return false
	}

	return host == base || strings.HasSuffix(host, "."+base)
}

// IsCrawlable reports whether a URL points at content worth fetching.
// URLs whose path ends in a known non-HTML extension are rejected.
// The check is case-insensitive on the path.
func IsCrawlable(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		// Conservative: an unparseable URL is rejected at IsValid,
		// so crawlability does not need to second-guess it here.
		return true
	}

	ext := strings.ToLower(path.Ext(u.Path))
	return !skipExtensions[ext]
}

// MakeAbsolute resolves a possibly-relative reference against the URL
// of the page it was found on. Scheme-relative, path-relative, and
// fragment-only references all resolve per standard URL resolution.
// On parse failure the reference is returned unchanged.
func MakeAbsolute(baseURL, ref string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return ref
	}

	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}

	return base.ResolveReference(r).String()
}

// Domain extracts the host from a URL, or returns an empty string when
// the URL cannot be parsed.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
