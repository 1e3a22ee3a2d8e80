package hyper

import (
	"html"
	"net/url"
	"regexp"
	"strings"
)

// DriveKeyRegexp matches a 64 character hex drive key.
var DriveKeyRegexp = regexp.MustCompile(`(?i)[0-9a-f]{64}`)

// Origin returns scheme://host for rawURL, or "" when it cannot be parsed.
func Origin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// IsSameOrigin compares the origins of two URLs. Empty or unparseable URLs
// never match.
func IsSameOrigin(a, b string) bool {
	oa, ob := Origin(a), Origin(b)
	return oa != "" && strings.EqualFold(oa, ob)
}

// Shorten truncates s to n runes, appending "...".
func Shorten(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

func Pluralize(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// MakeSafe escapes text so it can be embedded into HTML.
func MakeSafe(s string) string {
	return html.EscapeString(s)
}

// ToNiceDomain shortens drive keys to "abcdef..12".
func ToNiceDomain(host string) string {
	if DriveKeyRegexp.MatchString(host) && len(host) >= 8 {
		return host[:6] + ".." + host[len(host)-2:]
	}
	return host
}

// ToNiceURL drops the scheme and shortens drive keys.
func ToNiceURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	s := ToNiceDomain(u.Host) + u.EscapedPath()
	if u.RawQuery != "" {
		s += "?" + u.RawQuery
	}
	return strings.TrimSuffix(s, "/")
}

// PathSegments splits the path of rawURL into its non-empty segments.
func PathSegments(rawURL string) []string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	var out []string
	for _, seg := range strings.Split(u.Path, "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}
